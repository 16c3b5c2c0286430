package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
env: "test"
data_dir: "/var/lib/humanand"
llm:
  provider: "openai"
  model: "gpt-4o-mini"
event_log:
  backend: "sqlite"
`)

	t.Setenv("LLM_MODEL", "gpt-4o")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")

	cfg, err := LoadFile(path, "test-version")
	require.NoError(t, err)

	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "/var/lib/humanand", cfg.DataDir)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model, "env should override yaml")
	assert.Equal(t, BackendSQLite, cfg.EventLog.Backend)
	assert.Equal(t, "xoxb-test", cfg.Slack.BotToken)
}

func TestLoadFile_MissingFileUsesEnvironment(t *testing.T) {
	t.Setenv("EVENT_LOG_BACKEND", "postgres")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), "dev")
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.EventLog.Backend)
	assert.Equal(t, ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, 20, cfg.Slack.HistoryLimit)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, time.Duration(0), cfg.Pending.TTL)
	assert.True(t, cfg.Workflow.ReportFailures)
}

func TestLoadFile_RejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, `
event_log:
  backend: "mongo"
`)

	_, err := LoadFile(path, "dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event log backend")
}

func TestLoadFile_RejectsUnknownProvider(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: "cohere"
`)

	_, err := LoadFile(path, "dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown llm provider")
}

func TestLoadFile_RejectsMalformedGitHubRepo(t *testing.T) {
	path := writeConfig(t, `
github:
  repo: "not-a-repo"
`)
	t.Setenv("GITHUB_TOKEN", "ghp_test")

	_, err := LoadFile(path, "dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner/name")
}

func TestLoadFile_PendingSweepInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	t.Run("ttl without sweep is rejected", func(t *testing.T) {
		t.Setenv("PENDING_TTL", "1h")
		t.Setenv("PENDING_SWEEP_INTERVAL", "0s")

		_, err := LoadFile(path, "dev")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sweep_interval")
	})

	t.Run("no ttl ignores sweep", func(t *testing.T) {
		t.Setenv("PENDING_TTL", "0s")
		t.Setenv("PENDING_SWEEP_INTERVAL", "0s")

		cfg, err := LoadFile(path, "dev")
		require.NoError(t, err)
		assert.Zero(t, cfg.Pending.TTL)
	})

	t.Run("ttl with sweep", func(t *testing.T) {
		t.Setenv("PENDING_TTL", "1h")
		t.Setenv("PENDING_SWEEP_INTERVAL", "1m")

		cfg, err := LoadFile(path, "dev")
		require.NoError(t, err)
		assert.Equal(t, time.Hour, cfg.Pending.TTL)
		assert.Equal(t, time.Minute, cfg.Pending.SweepInterval)
	})
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		missing []string
	}{
		{
			name: "all present",
			cfg: Config{
				Slack: SlackConfig{BotToken: "xoxb", AppToken: "xapp"},
				LLM:   LLMConfig{Provider: ProviderAnthropic, AnthropicAPIKey: "sk-ant"},
			},
		},
		{
			name:    "nothing set",
			cfg:     Config{LLM: LLMConfig{Provider: ProviderAnthropic}},
			missing: []string{"SLACK_BOT_TOKEN", "SLACK_APP_TOKEN", "ANTHROPIC_API_KEY"},
		},
		{
			name: "openai endpoint without key is allowed",
			cfg: Config{
				Slack: SlackConfig{BotToken: "xoxb", AppToken: "xapp"},
				LLM:   LLMConfig{Provider: ProviderOpenAI},
			},
		},
		{
			name: "gemini requires key",
			cfg: Config{
				Slack: SlackConfig{BotToken: "xoxb", AppToken: "xapp"},
				LLM:   LLMConfig{Provider: ProviderGemini},
			},
			missing: []string{"LLM_API_KEY"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateCredentials()
			if len(tt.missing) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, name := range tt.missing {
				assert.Contains(t, err.Error(), name)
			}
		})
	}
}

func TestGitHubConfig_OwnerRepo(t *testing.T) {
	c := GitHubConfig{Repo: "humanand/bot", Token: "t"}
	owner, repo, err := c.OwnerRepo()
	require.NoError(t, err)
	assert.Equal(t, "humanand", owner)
	assert.Equal(t, "bot", repo)
	assert.True(t, c.Enabled())

	assert.False(t, (&GitHubConfig{Repo: "humanand/bot"}).Enabled())
}

func TestLLMConfig_EffectiveAPIKey(t *testing.T) {
	c := LLMConfig{Provider: ProviderAnthropic, AnthropicAPIKey: "sk-ant"}
	assert.Equal(t, "sk-ant", c.EffectiveAPIKey())

	c.APIKey = "explicit"
	assert.Equal(t, "explicit", c.EffectiveAPIKey())

	c = LLMConfig{Provider: ProviderOpenAI, AnthropicAPIKey: "sk-ant"}
	assert.Equal(t, "", c.EffectiveAPIKey())
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/d?sslmode=disable", c.ConnectionString())
}
