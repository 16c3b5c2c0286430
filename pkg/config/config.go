package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for humanand.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (tokens, passwords, keys) must only come from environment variables.
type Config struct {
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	DataDir  string `yaml:"data_dir" env:"DATA_DIR" env-default:"projects"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Slack    SlackConfig    `yaml:"slack"`
	LLM      LLMConfig      `yaml:"llm"`
	EventLog EventLogConfig `yaml:"event_log"`
	Database DatabaseConfig `yaml:"database"`
	Pending  PendingConfig  `yaml:"pending"`
	Workflow WorkflowConfig `yaml:"workflow"`
	GitHub   GitHubConfig   `yaml:"github"`
	HTTP     HTTPConfig     `yaml:"http"`

	// GitCommit enables a best-effort git commit of each knowledge file change.
	GitCommit bool `yaml:"git_commit" env:"GIT_COMMIT" env-default:"false"`
}

// SlackConfig holds chat platform credentials.
type SlackConfig struct {
	BotToken string `yaml:"-" env:"SLACK_BOT_TOKEN"` // xoxb-..., authenticates Web API calls
	AppToken string `yaml:"-" env:"SLACK_APP_TOKEN"` // xapp-..., opens the Socket Mode connection
	APIURL   string `yaml:"api_url" env:"SLACK_API_URL" env-default:""`
	// HistoryLimit is how many recent messages are fetched as classification context.
	HistoryLimit int `yaml:"history_limit" env:"SLACK_HISTORY_LIMIT" env-default:"20"`
}

// LLMConfig selects and configures the classification model.
type LLMConfig struct {
	// Provider is one of "anthropic", "openai" or "gemini".
	Provider    string        `yaml:"provider" env:"LLM_PROVIDER" env-default:"anthropic"`
	Model       string        `yaml:"model" env:"LLM_MODEL" env-default:""`
	BaseURL     string        `yaml:"base_url" env:"LLM_BASE_URL" env-default:""`
	APIKey      string        `yaml:"-" env:"LLM_API_KEY"`
	Temperature float64       `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0"`
	MaxTokens   int           `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"200"`
	Timeout     time.Duration `yaml:"timeout" env:"LLM_TIMEOUT" env-default:"30s"`

	// AnthropicAPIKey is read when LLM_API_KEY is unset and the provider is anthropic.
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"`

	// Circuit breaker: trip after N consecutive failures, retry after ResetAfter.
	BreakerThreshold  int           `yaml:"breaker_threshold" env:"LLM_BREAKER_THRESHOLD" env-default:"5"`
	BreakerResetAfter time.Duration `yaml:"breaker_reset_after" env:"LLM_BREAKER_RESET_AFTER" env-default:"30s"`
	MaxRetries        int           `yaml:"max_retries" env:"LLM_MAX_RETRIES" env-default:"2"`
}

// EffectiveAPIKey returns the configured key for the selected provider.
func (c *LLMConfig) EffectiveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if c.Provider == ProviderAnthropic {
		return c.AnthropicAPIKey
	}
	return ""
}

// LLM provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

// Event log backend names.
const (
	BackendJSONL    = "jsonl"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// EventLogConfig selects the event log storage backend.
type EventLogConfig struct {
	Backend string `yaml:"backend" env:"EVENT_LOG_BACKEND" env-default:"jsonl"`
}

// DatabaseConfig holds PostgreSQL configuration for the postgres event log backend.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"humanand"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"humanand"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// ConnectionString returns a PostgreSQL connection URL.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// PendingConfig controls the optional expiry of unapproved items.
// A zero TTL keeps items until approval or restart.
type PendingConfig struct {
	TTL           time.Duration `yaml:"ttl" env:"PENDING_TTL" env-default:"0s"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"PENDING_SWEEP_INTERVAL" env-default:"5m"`
}

// WorkflowConfig controls user-facing feedback of the approval workflow.
type WorkflowConfig struct {
	// ReportFailures posts a thread note when an approved fact could not be persisted.
	ReportFailures bool `yaml:"report_failures" env:"WORKFLOW_REPORT_FAILURES" env-default:"true"`
	// ConfirmApprovals posts a thread note after an approved fact is recorded.
	ConfirmApprovals bool `yaml:"confirm_approvals" env:"WORKFLOW_CONFIRM_APPROVALS" env-default:"true"`
	// WatchKnowledge reloads cached knowledge when files change on disk.
	WatchKnowledge bool `yaml:"watch_knowledge" env:"WORKFLOW_WATCH_KNOWLEDGE" env-default:"true"`
}

// GitHubConfig configures the optional pull request monitor.
// The monitor only starts if both Repo and Token are set.
type GitHubConfig struct {
	Repo         string        `yaml:"repo" env:"GITHUB_REPO" env-default:""` // owner/name
	Token        string        `yaml:"-" env:"GITHUB_TOKEN"`
	ChannelID    string        `yaml:"channel_id" env:"GITHUB_CHANNEL_ID" env-default:""`
	PollInterval time.Duration `yaml:"poll_interval" env:"GITHUB_POLL_INTERVAL" env-default:"60s"`
	APIURL       string        `yaml:"api_url" env:"GITHUB_API_URL" env-default:""`
}

// Enabled reports whether the PR monitor should run.
func (c *GitHubConfig) Enabled() bool {
	return c.Repo != "" && c.Token != ""
}

// OwnerRepo splits Repo into owner and name.
func (c *GitHubConfig) OwnerRepo() (string, string, error) {
	parts := strings.Split(c.Repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("github repo must be owner/name, got %q", c.Repo)
	}
	return parts[0], parts[1], nil
}

// HTTPConfig configures the optional health and MCP listener.
type HTTPConfig struct {
	// Addr is the listen address. Empty disables the HTTP server.
	Addr string `yaml:"addr" env:"HTTP_ADDR" env-default:""`
}

// Load reads configuration from config.yaml with environment variable overrides.
// A missing config.yaml is not an error: configuration then comes from the
// environment alone. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile is Load with an explicit config path.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ValidateCredentials checks that the tokens needed to run the bot are present.
// Offline commands (reading events, knowledge) don't need them.
func (c *Config) ValidateCredentials() error {
	var missing []string
	if c.Slack.BotToken == "" {
		missing = append(missing, "SLACK_BOT_TOKEN")
	}
	if c.Slack.AppToken == "" {
		missing = append(missing, "SLACK_APP_TOKEN")
	}
	if c.LLM.EffectiveAPIKey() == "" && c.LLM.Provider != ProviderOpenAI {
		if c.LLM.Provider == ProviderAnthropic {
			missing = append(missing, "ANTHROPIC_API_KEY")
		} else {
			missing = append(missing, "LLM_API_KEY")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) validate() error {
	switch c.LLM.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}

	switch c.EventLog.Backend {
	case BackendJSONL, BackendSQLite, BackendPostgres:
	default:
		return fmt.Errorf("unknown event log backend %q", c.EventLog.Backend)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}

	if c.GitHub.Enabled() {
		if _, _, err := c.GitHub.OwnerRepo(); err != nil {
			return err
		}
		if c.GitHub.PollInterval <= 0 {
			return fmt.Errorf("github poll_interval must be positive")
		}
	}

	if c.Pending.TTL < 0 {
		return fmt.Errorf("pending ttl must not be negative")
	}
	if c.Pending.TTL > 0 && c.Pending.SweepInterval <= 0 {
		return fmt.Errorf("pending sweep_interval must be positive when ttl is set")
	}

	return nil
}
