package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error_WithStatusCodeAndModel(t *testing.T) {
	err := &Error{
		Type:       ErrorTypeEndpoint,
		Message:    "server error",
		StatusCode: 503,
		Model:      "claude-haiku-4-5",
		Endpoint:   "https://api.anthropic.com/v1",
	}

	result := err.Error()
	for _, want := range []string{"HTTP 503", "model=claude-haiku-4-5", "endpoint=api.anthropic.com", "server error"} {
		if !strings.Contains(result, want) {
			t.Errorf("expected error message to contain %q, got: %s", want, result)
		}
	}
	if strings.Contains(result, "/v1") {
		t.Errorf("endpoint should be reduced to host, got: %s", result)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewError(ErrorTypeUnknown, "wrapped", false, cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
		status    int
	}{
		{"unauthorized", errors.New("error, status code: 401, message: invalid x-api-key"), ErrorTypeAuth, false, 401},
		{"authentication_error body", errors.New(`{"type":"authentication_error"}`), ErrorTypeAuth, false, 0},
		{"model not found", errors.New("model claude-x does not exist"), ErrorTypeModel, false, 0},
		{"endpoint 404", errors.New("status code: 404"), ErrorTypeEndpoint, false, 404},
		{"connection refused", errors.New("dial tcp 127.0.0.1:1: connection refused"), ErrorTypeEndpoint, true, 0},
		{"timeout", errors.New("Client.Timeout exceeded while awaiting headers"), ErrorTypeEndpoint, true, 0},
		{"deadline", context.DeadlineExceeded, ErrorTypeEndpoint, true, 0},
		{"wrapped deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), ErrorTypeEndpoint, true, 0},
		{"canceled", context.Canceled, ErrorTypeEndpoint, false, 0},
		{"rate limited", errors.New("status code: 429, rate_limit_error"), ErrorTypeUnknown, true, 429},
		{"overloaded", errors.New("status code: 529, overloaded_error"), ErrorTypeEndpoint, true, 529},
		{"server error", errors.New("status code: 502 bad gateway"), ErrorTypeEndpoint, true, 502},
		{"unknown", errors.New("something odd"), ErrorTypeUnknown, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			if got.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", got.Type, tt.wantType)
			}
			if got.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", got.Retryable, tt.retryable)
			}
			if got.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", got.StatusCode, tt.status)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("classified error should wrap the original")
			}
		})
	}
}

func TestClassifyError_Nil(t *testing.T) {
	if ClassifyError(nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestClassifyError_PassesThroughStructured(t *testing.T) {
	original := NewError(ErrorTypeModel, "bad model", false, nil)
	if got := ClassifyError(fmt.Errorf("wrap: %w", original)); got != original {
		t.Errorf("expected the existing *Error to be returned, got %v", got)
	}
}

func TestIsRetryableAndGetErrorType(t *testing.T) {
	retryable := NewError(ErrorTypeEndpoint, "timeout", true, nil)
	if !IsRetryable(retryable) {
		t.Error("expected retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
	if GetErrorType(errors.New("plain")) != ErrorTypeUnknown {
		t.Error("plain errors have unknown type")
	}
	if GetErrorType(retryable) != ErrorTypeEndpoint {
		t.Error("expected endpoint type")
	}
}
