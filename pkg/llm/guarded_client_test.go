package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/humanand/humanand/pkg/retry"
)

func fastRetry(n int) *retry.Config {
	return &retry.Config{MaxRetries: n, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func TestGuardedClient_RetriesTransientFailures(t *testing.T) {
	mock := NewMockLLMClient()
	mock.GenerateResponseFunc = func(context.Context, string, string, float64) (*GenerateResponseResult, error) {
		if mock.Calls() < 3 {
			return nil, NewError(ErrorTypeEndpoint, "server error", true, nil)
		}
		return &GenerateResponseResult{Content: "NONE"}, nil
	}

	g := NewGuardedClient(mock, nil, fastRetry(3), 0, zaptest.NewLogger(t))

	result, err := g.GenerateResponse(context.Background(), "p", "s", 0)
	require.NoError(t, err)
	assert.Equal(t, "NONE", result.Content)
	assert.Equal(t, 3, mock.Calls())
	assert.Equal(t, CircuitClosed, g.Breaker().State())
}

func TestGuardedClient_PermanentFailureNotRetried(t *testing.T) {
	mock := NewMockLLMClient()
	mock.GenerateResponseFunc = func(context.Context, string, string, float64) (*GenerateResponseResult, error) {
		return nil, NewError(ErrorTypeAuth, "authentication failed", false, nil)
	}

	g := NewGuardedClient(mock, nil, fastRetry(3), 0, zaptest.NewLogger(t))

	_, err := g.GenerateResponse(context.Background(), "p", "s", 0)
	require.Error(t, err)
	assert.Equal(t, 1, mock.Calls())
	assert.Equal(t, 1, g.Breaker().ConsecutiveFailures())
}

func TestGuardedClient_OpenCircuitSkipsProvider(t *testing.T) {
	mock := NewMockLLMClient()
	mock.GenerateResponseFunc = func(context.Context, string, string, float64) (*GenerateResponseResult, error) {
		return nil, errors.New("boom")
	}

	breaker := NewCircuitBreaker(CircuitBreakerConfig{Threshold: 2, ResetAfter: time.Hour})
	g := NewGuardedClient(mock, breaker, fastRetry(0), 0, zaptest.NewLogger(t))

	for i := 0; i < 2; i++ {
		_, err := g.GenerateResponse(context.Background(), "p", "s", 0)
		require.Error(t, err)
	}
	require.Equal(t, CircuitOpen, breaker.State())

	_, err := g.GenerateResponse(context.Background(), "p", "s", 0)
	require.Error(t, err)
	assert.Equal(t, ErrorTypeCircuit, GetErrorType(err))
	assert.Equal(t, 2, mock.Calls())
}

func TestGuardedClient_PerCallTimeout(t *testing.T) {
	mock := NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, _ string, _ string, _ float64) (*GenerateResponseResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	g := NewGuardedClient(mock, nil, fastRetry(2), 20*time.Millisecond, zaptest.NewLogger(t))

	start := time.Now()
	_, err := g.GenerateResponse(context.Background(), "p", "s", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, mock.Calls())
}

func TestGuardedClient_DelegatesModelAndEndpoint(t *testing.T) {
	mock := NewMockLLMClient()
	g := NewGuardedClient(mock, nil, nil, 0, zaptest.NewLogger(t))

	assert.Equal(t, "mock-model", g.GetModel())
	assert.Equal(t, "http://mock-endpoint", g.GetEndpoint())
}
