package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/retry"
)

// GuardedClient wraps an LLMClient with a per-call timeout, retries of
// transient failures and a circuit breaker.
type GuardedClient struct {
	inner   LLMClient
	breaker *CircuitBreaker
	retry   *retry.Config
	timeout time.Duration
	logger  *zap.Logger
}

// NewGuardedClient wraps inner. A zero timeout disables the per-call deadline.
func NewGuardedClient(inner LLMClient, breaker *CircuitBreaker, retryCfg *retry.Config, timeout time.Duration, logger *zap.Logger) *GuardedClient {
	if breaker == nil {
		breaker = NewCircuitBreaker(DefaultCircuitBreakerConfig())
	}
	return &GuardedClient{
		inner:   inner,
		breaker: breaker,
		retry:   retryCfg,
		timeout: timeout,
		logger:  logger.Named("llm-guard"),
	}
}

// GenerateResponse implements LLMClient.
func (g *GuardedClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	if err := g.breaker.Allow(); err != nil {
		return nil, err
	}

	result, err := retry.DoWithResult(ctx, g.retry, func() (*GenerateResponseResult, error) {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		return g.inner.GenerateResponse(callCtx, prompt, systemMessage, temperature)
	})
	if err != nil {
		g.breaker.RecordFailure()
		g.logger.Warn("LLM call failed",
			zap.String("model", g.inner.GetModel()),
			zap.String("circuit", g.breaker.State().String()),
			zap.Error(err))
		return nil, err
	}

	g.breaker.RecordSuccess()
	return result, nil
}

// Breaker exposes the circuit breaker for health reporting.
func (g *GuardedClient) Breaker() *CircuitBreaker {
	return g.breaker
}

// GetModel returns the wrapped client's model.
func (g *GuardedClient) GetModel() string {
	return g.inner.GetModel()
}

// GetEndpoint returns the wrapped client's endpoint.
func (g *GuardedClient) GetEndpoint() string {
	return g.inner.GetEndpoint()
}
