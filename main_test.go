package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"

	"github.com/humanand/humanand/pkg/models"
	"github.com/humanand/humanand/pkg/repositories"
)

// runCLI executes the root command against dataDir with no config file.
func runCLI(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("EVENT_LOG_BACKEND", "jsonl")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"--data-dir", dataDir,
	}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedEvents(t *testing.T, dir string) []*models.Event {
	t.Helper()
	repo := repositories.NewJSONLEventRepository(dir, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = repo.Close() })

	base := time.Date(2026, 2, 21, 14, 10, 0, 0, time.UTC)
	items := []models.PendingItem{
		{PromptID: "999.000", Kind: models.EventKindUpdate, FactText: "decision: Use SQLite", AuthorUserID: "U123"},
		{PromptID: "777.000", Kind: models.EventKindQuestion, FactText: "blocker: who owns deploys", AuthorUserID: "U222"},
		{PromptID: "888.000", Kind: models.EventKindUpdate, FactText: "deadline: ship friday", AuthorUserID: "U123"},
	}

	var events []*models.Event
	for i, item := range items {
		e := models.NewApprovedEvent(item, "", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Append(context.Background(), "test-channel", e))
		events = append(events, e)
	}
	return events
}

func TestEventsCommand_Text(t *testing.T) {
	dir := t.TempDir()
	seedEvents(t, dir)

	out, err := runCLI(t, dir, "events", "test-channel")
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace([]byte(out)), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "2026-02-21 14:10")
	assert.Contains(t, string(lines[0]), "<@U123>")
	assert.Contains(t, string(lines[0]), "decision: Use SQLite")
	assert.Contains(t, string(lines[1]), "QUESTION")
}

func TestEventsCommand_JSONFilter(t *testing.T) {
	dir := t.TempDir()
	seeded := seedEvents(t, dir)

	out, err := runCLI(t, dir, "events", "test-channel", "--output", "json", "--type", "update")
	require.NoError(t, err)

	var got []*models.Event
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, seeded[0].ID, got[0].ID)
	assert.Equal(t, seeded[2].ID, got[1].ID)
}

func TestEventsCommand_YAMLLimit(t *testing.T) {
	dir := t.TempDir()
	seedEvents(t, dir)

	out, err := runCLI(t, dir, "events", "test-channel", "-o", "yaml", "-n", "1")
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "deadline: ship friday", got[0]["fact_text"])
	assert.Equal(t, "approved", got[0]["reaction"])
}

func TestEventsCommand_UnknownProjectIsEmpty(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "events", "nobody-here")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEventsCommand_UnknownFormat(t *testing.T) {
	dir := t.TempDir()
	seedEvents(t, dir)

	_, err := runCLI(t, dir, "events", "test-channel", "--output", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestKnowledgeCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "alpha"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "beta"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alpha", repositories.GroundTruthFile),
		[]byte("Project: Alpha\ndecision: Use SQLite"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "beta", repositories.GroundTruthFile),
		[]byte("Project: Beta\n"), 0o644))

	t.Run("lists projects", func(t *testing.T) {
		out, err := runCLI(t, dir, "knowledge")
		require.NoError(t, err)
		assert.Equal(t, "alpha\nbeta\n", out)
	})

	t.Run("prints one project", func(t *testing.T) {
		out, err := runCLI(t, dir, "knowledge", "alpha")
		require.NoError(t, err)
		assert.Equal(t, "Project: Alpha\ndecision: Use SQLite\n", out)
	})

	t.Run("missing project", func(t *testing.T) {
		_, err := runCLI(t, dir, "knowledge", "gamma")
		require.Error(t, err)
	})
}

func TestPeopleCommand(t *testing.T) {
	dir := t.TempDir()
	seedEvents(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test-channel", repositories.GroundTruthFile),
		[]byte("## Directory\n* **Alex** (<@U123>) — Backend"), 0o644))

	out, err := runCLI(t, dir, "people", "<@U123>")
	require.NoError(t, err)
	assert.Contains(t, out, "<@U123>")
	assert.Contains(t, out, "test-channel")
	assert.Contains(t, out, "Backend")
	assert.Contains(t, out, "decision: Use SQLite")
}

func TestCheckCommand_RequiresCredentials(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "")
	t.Setenv("SLACK_APP_TOKEN", "")

	_, err := runCLI(t, t.TempDir(), "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SLACK_BOT_TOKEN")
}

func TestFilterEvents(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []*models.Event{
		{EventType: models.EventKindUpdate, FactText: "a", Timestamp: base},
		{EventType: models.EventKindQuestion, FactText: "b", Timestamp: base},
		{EventType: models.EventKindUpdate, FactText: "c", Timestamp: base},
	}

	tests := []struct {
		name  string
		kind  models.EventKind
		limit int
		want  []string
	}{
		{name: "all", want: []string{"a", "b", "c"}},
		{name: "updates", kind: models.EventKindUpdate, want: []string{"a", "c"}},
		{name: "last two", limit: 2, want: []string{"b", "c"}},
		{name: "last update", kind: models.EventKindUpdate, limit: 1, want: []string{"c"}},
		{name: "limit larger than log", limit: 10, want: []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, e := range filterEvents(events, tt.kind, tt.limit) {
				got = append(got, e.FactText)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
