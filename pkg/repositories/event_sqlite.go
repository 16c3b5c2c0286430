package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/database"
	"github.com/humanand/humanand/pkg/models"
)

// sqliteEventRepository keeps one SQLite database per project at
// <dataDir>/<project>/events.db. Handles are opened on first use and kept
// until Close.
type sqliteEventRepository struct {
	dataDir string
	locks   *keyedMutex
	logger  *zap.Logger

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

// NewSQLiteEventRepository creates an SQLite-backed EventRepository rooted at dataDir.
func NewSQLiteEventRepository(dataDir string, logger *zap.Logger) EventRepository {
	return &sqliteEventRepository{
		dataDir: dataDir,
		locks:   newKeyedMutex(),
		logger:  logger.Named("events-sqlite"),
		dbs:     make(map[string]*sql.DB),
	}
}

var _ EventRepository = (*sqliteEventRepository)(nil)

func (r *sqliteEventRepository) path(project string) string {
	return filepath.Join(r.dataDir, project, EventsSQLiteFile)
}

// open returns the handle for project. With create false, a project without
// a database file yields a nil handle.
func (r *sqliteEventRepository) open(ctx context.Context, project string, create bool) (*sql.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if db, ok := r.dbs[project]; ok {
		return db, nil
	}

	path := r.path(project)
	if !create {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := database.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Opened project event database", zap.String("project", project))
	r.dbs[project] = db
	return db, nil
}

func (r *sqliteEventRepository) Append(ctx context.Context, project string, event *models.Event) error {
	if err := validateEvent(project, event); err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	unlock := r.locks.lock(project)
	defer unlock()

	db, err := r.open(ctx, project, true)
	if err != nil {
		return persistenceError("append event", project, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO events (id, timestamp, event_type, fact_text, author_user_id, reaction, prompt_id, permalink)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID.String(), event.Timestamp.UTC().Format(time.RFC3339Nano), string(event.EventType),
		event.FactText, event.AuthorUserID, event.Reaction, event.PromptID, event.Permalink,
	)
	if err != nil {
		return persistenceError("append event", project, err)
	}
	return nil
}

func (r *sqliteEventRepository) List(ctx context.Context, project string) ([]*models.Event, error) {
	if err := models.ValidateProjectName(project); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	db, err := r.open(ctx, project, false)
	if err != nil {
		return nil, persistenceError("list events", project, err)
	}
	if db == nil {
		return []*models.Event{}, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, timestamp, event_type, fact_text, author_user_id, reaction, prompt_id, permalink
		FROM events
		ORDER BY seq`)
	if err != nil {
		return nil, persistenceError("list events", project, err)
	}
	defer rows.Close()

	events := make([]*models.Event, 0)
	for rows.Next() {
		var (
			e         models.Event
			id, ts    string
			eventType string
		)
		if err := rows.Scan(&id, &ts, &eventType, &e.FactText, &e.AuthorUserID, &e.Reaction, &e.PromptID, &e.Permalink); err != nil {
			return nil, persistenceError("scan event", project, err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, persistenceError("parse event id", project, err)
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, persistenceError("parse event timestamp", project, err)
		}
		e.EventType = models.EventKind(eventType)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list events", project, err)
	}
	return events, nil
}

func (r *sqliteEventRepository) Projects(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return projectsWithFile(r.dataDir, EventsSQLiteFile)
}

func (r *sqliteEventRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for project, db := range r.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", project, err))
		}
		delete(r.dbs, project)
	}
	return errors.Join(errs...)
}
