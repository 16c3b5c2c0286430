package llm

import (
	"context"
	"fmt"
	"time"
)

// TestResult contains connection test results.
type TestResult struct {
	Success        bool      `json:"success" yaml:"success"`
	Message        string    `json:"message" yaml:"message"`
	Model          string    `json:"model" yaml:"model"`
	Endpoint       string    `json:"endpoint" yaml:"endpoint"`
	ErrorType      ErrorType `json:"error_type,omitempty" yaml:"error_type,omitempty"`
	ResponseTimeMs int64     `json:"response_time_ms,omitempty" yaml:"response_time_ms,omitempty"`
}

// ConnectionTester checks that a configured provider answers.
// This interface enables mocking in tests.
type ConnectionTester interface {
	Test(ctx context.Context, client LLMClient) *TestResult
}

type connectionTester struct {
	timeout time.Duration
}

// NewConnectionTester creates a new tester.
func NewConnectionTester(timeout time.Duration) ConnectionTester {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &connectionTester{timeout: timeout}
}

// Test sends a minimal prompt through client.
func (t *connectionTester) Test(ctx context.Context, client LLMClient) *TestResult {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	result := &TestResult{
		Model:    client.GetModel(),
		Endpoint: endpointHost(client.GetEndpoint()),
	}

	start := time.Now()
	resp, err := client.GenerateResponse(ctx, "Say 'ok' and nothing else.", "You are a connectivity check.", 0)
	result.ResponseTimeMs = time.Since(start).Milliseconds()

	if err != nil {
		classified := ClassifyError(err)
		result.ErrorType = classified.Type
		result.Message = describeFailure(classified)
		return result
	}

	if StripThinking(resp.Content) == "" {
		result.ErrorType = ErrorTypeUnknown
		result.Message = "LLM returned an empty response"
		return result
	}

	result.Success = true
	result.Message = fmt.Sprintf("LLM connection successful (model: %s, %dms)", result.Model, result.ResponseTimeMs)
	return result
}

func describeFailure(err *Error) string {
	switch err.Type {
	case ErrorTypeAuth:
		return "LLM: Invalid API key"
	case ErrorTypeModel:
		return "LLM: Model not found"
	case ErrorTypeCircuit:
		return "LLM: Circuit breaker open"
	case ErrorTypeEndpoint:
		if err.StatusCode == 404 {
			return "LLM: Endpoint not found - check base URL"
		}
		return fmt.Sprintf("LLM: %s - check base URL", err.Message)
	}
	return fmt.Sprintf("LLM: %v", err)
}

// Ensure connectionTester implements ConnectionTester at compile time.
var _ ConnectionTester = (*connectionTester)(nil)
