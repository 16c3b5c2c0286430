package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripThinking(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{"plain", "NONE", "NONE"},
		{"leading think block", "<think>\nis this a decision?\n</think>\nUPDATE|decision: ship friday", "UPDATE|decision: ship friday"},
		{"whitespace", "  QUESTION|who owns billing?  \n", "QUESTION|who owns billing?"},
		{"think only", "<think>hmm</think>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripThinking(tt.response))
		})
	}
}

func TestExtractThinking(t *testing.T) {
	assert.Equal(t, "is this a decision?", ExtractThinking("<think> is this a decision? </think>NONE"))
	assert.Empty(t, ExtractThinking("NONE"))
}
