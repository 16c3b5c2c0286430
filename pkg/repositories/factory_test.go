package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/humanand/humanand/pkg/config"
)

func TestOpenEventRepository(t *testing.T) {
	for _, backend := range []string{config.BackendJSONL, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := &config.Config{DataDir: t.TempDir(), EventLog: config.EventLogConfig{Backend: backend}}

			repo, err := OpenEventRepository(context.Background(), cfg, zaptest.NewLogger(t))
			require.NoError(t, err)
			defer repo.Close()

			events, err := repo.List(context.Background(), "anything")
			require.NoError(t, err)
			assert.Empty(t, events)
		})
	}

	_, err := OpenEventRepository(context.Background(), &config.Config{EventLog: config.EventLogConfig{Backend: "csv"}}, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "unknown event log backend")
}
