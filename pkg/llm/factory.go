package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/config"
	"github.com/humanand/humanand/pkg/retry"
)

// Default models per provider, used when llm.model is unset.
const (
	DefaultAnthropicModel = "claude-haiku-4-5"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultGeminiModel    = "gemini-2.5-flash"

	DefaultOpenAIEndpoint = "https://api.openai.com/v1"
)

// NewClientFromConfig builds the provider client selected by cfg.Provider and
// wraps it in a GuardedClient.
func NewClientFromConfig(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GuardedClient, error) {
	clientCfg := &Config{
		Endpoint:  cfg.BaseURL,
		Model:     cfg.Model,
		APIKey:    cfg.EffectiveAPIKey(),
		MaxTokens: cfg.MaxTokens,
	}

	var (
		inner LLMClient
		err   error
	)
	switch cfg.Provider {
	case config.ProviderAnthropic:
		if clientCfg.Model == "" {
			clientCfg.Model = DefaultAnthropicModel
		}
		inner, err = NewAnthropicClient(clientCfg, logger)
	case config.ProviderOpenAI:
		if clientCfg.Model == "" {
			clientCfg.Model = DefaultOpenAIModel
		}
		if clientCfg.Endpoint == "" {
			clientCfg.Endpoint = DefaultOpenAIEndpoint
		}
		inner, err = NewClient(clientCfg, logger)
	case config.ProviderGemini:
		if clientCfg.Model == "" {
			clientCfg.Model = DefaultGeminiModel
		}
		inner, err = NewGeminiClient(ctx, clientCfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}

	breaker := NewCircuitBreaker(CircuitBreakerConfig{
		Threshold:  cfg.BreakerThreshold,
		ResetAfter: cfg.BreakerResetAfter,
	})
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.MaxRetries

	logger.Info("LLM client configured",
		zap.String("provider", cfg.Provider),
		zap.String("model", inner.GetModel()),
		zap.String("endpoint", endpointHost(inner.GetEndpoint())))

	return NewGuardedClient(inner, breaker, retryCfg, cfg.Timeout, logger), nil
}
