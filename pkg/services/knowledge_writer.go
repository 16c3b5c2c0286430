package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/logging"
	"github.com/humanand/humanand/pkg/projects"
	"github.com/humanand/humanand/pkg/repositories"
)

// Committer records changed files in version control.
type Committer interface {
	Commit(ctx context.Context, paths []string, message string) error
}

// KnowledgeWriter appends approved facts to a project's knowledge file.
type KnowledgeWriter interface {
	// AppendFact writes fact as a new line of the project's knowledge text.
	// The error reflects the file write only; a failed commit is logged.
	AppendFact(ctx context.Context, project, fact string) error
}

type knowledgeWriter struct {
	repo      repositories.KnowledgeRepository
	committer Committer
	cache     *projects.Cache
	logger    *zap.Logger
}

// NewKnowledgeWriter creates a knowledge writer. committer and cache may be nil.
func NewKnowledgeWriter(
	repo repositories.KnowledgeRepository,
	committer Committer,
	cache *projects.Cache,
	logger *zap.Logger,
) KnowledgeWriter {
	return &knowledgeWriter{
		repo:      repo,
		committer: committer,
		cache:     cache,
		logger:    logger.Named("knowledge"),
	}
}

var _ KnowledgeWriter = (*knowledgeWriter)(nil)

func (w *knowledgeWriter) AppendFact(ctx context.Context, project, fact string) error {
	if err := w.repo.AppendFact(ctx, project, fact); err != nil {
		return err
	}

	if w.cache != nil {
		w.cache.Invalidate(project)
	}

	w.logger.Info("Fact appended to knowledge",
		zap.String("project", project),
		zap.String("fact", logging.TruncateFact(fact)))

	if w.committer == nil {
		return nil
	}

	msg := fmt.Sprintf("%s: %s", project, logging.TruncateString(fact, 72))
	if err := w.committer.Commit(ctx, []string{w.repo.Path(project)}, msg); err != nil {
		w.logger.Warn("Failed to commit knowledge file",
			zap.String("project", project),
			zap.String("error", logging.SanitizeError(err)))
	}
	return nil
}
