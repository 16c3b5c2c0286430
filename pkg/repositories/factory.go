package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/config"
	"github.com/humanand/humanand/pkg/database"
)

// OpenEventRepository builds the event log backend selected in cfg.
// The postgres backend connects and migrates before returning.
func OpenEventRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (EventRepository, error) {
	switch cfg.EventLog.Backend {
	case config.BackendJSONL:
		return NewJSONLEventRepository(cfg.DataDir, logger), nil

	case config.BackendSQLite:
		return NewSQLiteEventRepository(cfg.DataDir, logger), nil

	case config.BackendPostgres:
		url := cfg.Database.ConnectionString()

		db, err := database.NewConnection(ctx, &database.Config{
			URL:            url,
			MaxConnections: cfg.Database.MaxConnections,
		}, logger)
		if err != nil {
			return nil, err
		}

		sqlDB, err := database.OpenSQL(url)
		if err != nil {
			db.Close()
			return nil, err
		}
		defer sqlDB.Close()

		if err := database.RunMigrations(sqlDB, logger); err != nil {
			db.Close()
			return nil, err
		}
		return NewPostgresEventRepository(db, logger), nil
	}

	return nil, fmt.Errorf("unknown event log backend %q", cfg.EventLog.Backend)
}
