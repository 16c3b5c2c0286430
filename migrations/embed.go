// Package migrations embeds the PostgreSQL schema for the event log backend.
package migrations

import "embed"

// FS holds the numbered golang-migrate files.
//
//go:embed *.sql
var FS embed.FS
