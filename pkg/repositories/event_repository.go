// Package repositories persists project data: the append-only event log and
// the knowledge text.
package repositories

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/humanand/humanand/pkg/apperrors"
	"github.com/humanand/humanand/pkg/models"
)

// EventRepository is a per-project append-only log of approved facts.
//
// Appends to one project are serialized; appends to different projects may
// run concurrently. A successful Append is durable. List returns events in
// append order and returns an empty slice for a project that has none.
type EventRepository interface {
	Append(ctx context.Context, project string, event *models.Event) error
	List(ctx context.Context, project string) ([]*models.Event, error)
	Projects(ctx context.Context) ([]string, error)
	Close() error
}

// File names inside a project directory.
const (
	EventsJSONLFile  = "events.jsonl"
	EventsSQLiteFile = "events.db"
	GroundTruthFile  = "ground_truth.txt"
)

func validateEvent(project string, event *models.Event) error {
	if err := models.ValidateProjectName(project); err != nil {
		return err
	}
	if event == nil {
		return fmt.Errorf("event is nil")
	}
	if !event.EventType.IsValid() {
		return fmt.Errorf("unknown event type %q", event.EventType)
	}
	return nil
}

func persistenceError(op, project string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", op, project, apperrors.ErrPersistence, err)
}

// projectsWithFile lists the subdirectories of dataDir containing name,
// sorted. A missing dataDir has no projects.
func projectsWithFile(dataDir, name string) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	projects := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(dataDir, entry.Name(), name)); err == nil {
			projects = append(projects, entry.Name())
		}
	}
	sort.Strings(projects)
	return projects, nil
}
