// Package classifier decides whether a chat message carries a project update
// or an open question worth recording.
package classifier

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/apperrors"
	"github.com/humanand/humanand/pkg/llm"
	"github.com/humanand/humanand/pkg/logging"
	"github.com/humanand/humanand/pkg/prompts"
)

// Classifier labels a message given the recent channel conversation.
type Classifier interface {
	Classify(ctx context.Context, text, conversation string) (Result, error)
}

// LLMClassifier classifies messages with a language model.
type LLMClassifier struct {
	client      llm.LLMClient
	temperature float64
	logger      *zap.Logger
}

var _ Classifier = (*LLMClassifier)(nil)

// New creates a classifier over client.
func New(client llm.LLMClient, temperature float64, logger *zap.Logger) *LLMClassifier {
	return &LLMClassifier{
		client:      client,
		temperature: temperature,
		logger:      logger.Named("classifier"),
	}
}

// Classify returns the category of text. Failures of the model call are
// wrapped in apperrors.ErrClassificationUnavailable.
func (c *LLMClassifier) Classify(ctx context.Context, text, conversation string) (Result, error) {
	start := time.Now()

	resp, err := c.client.GenerateResponse(ctx, prompts.BuildClassificationPrompt(text, conversation), prompts.ClassificationSystem, c.temperature)
	if err != nil {
		return None(), fmt.Errorf("%w: %w", apperrors.ErrClassificationUnavailable, err)
	}

	result := ParseResult(resp.Content)
	c.logger.Debug("Message classified",
		zap.String("kind", result.Kind().String()),
		zap.String("fact", logging.TruncateFact(result.Fact())),
		zap.Int("prompt_tokens", resp.PromptTokens),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}
