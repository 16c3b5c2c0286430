package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/database"
	"github.com/humanand/humanand/pkg/models"
)

// postgresEventRepository stores every project's events in one table keyed
// by project name, ordered by an insertion sequence.
type postgresEventRepository struct {
	db     *database.DB
	locks  *keyedMutex
	logger *zap.Logger
}

// NewPostgresEventRepository creates a PostgreSQL-backed EventRepository.
// The schema must already be migrated (database.RunMigrations).
func NewPostgresEventRepository(db *database.DB, logger *zap.Logger) EventRepository {
	return &postgresEventRepository{
		db:     db,
		locks:  newKeyedMutex(),
		logger: logger.Named("events-postgres"),
	}
}

var _ EventRepository = (*postgresEventRepository)(nil)

func (r *postgresEventRepository) Append(ctx context.Context, project string, event *models.Event) error {
	if err := validateEvent(project, event); err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	unlock := r.locks.lock(project)
	defer unlock()

	query := `
		INSERT INTO events (
			id, project, timestamp, event_type, fact_text, author_user_id, reaction, prompt_id, permalink
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		event.ID, project, event.Timestamp.UTC(), string(event.EventType),
		event.FactText, event.AuthorUserID, event.Reaction, event.PromptID, event.Permalink,
	)
	if err != nil {
		return persistenceError("append event", project, err)
	}
	return nil
}

func (r *postgresEventRepository) List(ctx context.Context, project string) ([]*models.Event, error) {
	if err := models.ValidateProjectName(project); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	query := `
		SELECT id, timestamp, event_type, fact_text, author_user_id, reaction, prompt_id, permalink
		FROM events
		WHERE project = $1
		ORDER BY seq`

	rows, err := r.db.Query(ctx, query, project)
	if err != nil {
		return nil, persistenceError("list events", project, err)
	}
	defer rows.Close()

	events := make([]*models.Event, 0)
	for rows.Next() {
		e, err := scanEventRow(rows)
		if err != nil {
			return nil, persistenceError("scan event", project, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list events", project, err)
	}
	return events, nil
}

func scanEventRow(rows pgx.Rows) (*models.Event, error) {
	var (
		e         models.Event
		eventType string
	)
	err := rows.Scan(&e.ID, &e.Timestamp, &eventType, &e.FactText, &e.AuthorUserID, &e.Reaction, &e.PromptID, &e.Permalink)
	if err != nil {
		return nil, err
	}
	e.EventType = models.EventKind(eventType)
	e.Timestamp = e.Timestamp.UTC()
	return &e, nil
}

func (r *postgresEventRepository) Projects(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT project FROM events ORDER BY project`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// Close releases the connection pool.
func (r *postgresEventRepository) Close() error {
	r.db.Close()
	return nil
}
