// Package models contains domain types for humanand.
package models

import (
	"fmt"
	"strings"
)

// ValidateProjectName rejects names that are not a single safe path segment.
// A project is named after its channel and exists implicitly once any fact
// or event has been written for it.
func ValidateProjectName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("project name is empty")
	case name == "." || name == "..":
		return fmt.Errorf("invalid project name %q", name)
	case strings.ContainsAny(name, "/\\:\x00"):
		return fmt.Errorf("project name %q contains a path separator", name)
	}
	return nil
}
