// Package vcs records knowledge file changes in a git repository.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrNotRepository is returned when the data directory is not inside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Identity used for commits made by the bot.
const (
	DefaultAuthorName  = "HumanAnd"
	DefaultAuthorEmail = "humanand@localhost"
)

// GitCommitter commits files under dir with the git CLI.
type GitCommitter struct {
	dir         string
	authorName  string
	authorEmail string
	logger      *zap.Logger

	// git holds the index lock for the whole add+commit; one at a time.
	mu sync.Mutex
}

// NewGitCommitter creates a committer for the work tree containing dir.
func NewGitCommitter(dir string, logger *zap.Logger) *GitCommitter {
	return &GitCommitter{
		dir:         dir,
		authorName:  DefaultAuthorName,
		authorEmail: DefaultAuthorEmail,
		logger:      logger.Named("git"),
	}
}

// Commit stages paths and commits them with message. Paths may be absolute
// or relative to the committer's directory. Nothing staged is not an error.
func (g *GitCommitter) Commit(ctx context.Context, paths []string, message string) error {
	if len(paths) == 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.run(ctx, "rev-parse", "--is-inside-work-tree"); err != nil {
		return fmt.Errorf("%s: %w", g.dir, ErrNotRepository)
	}

	rel := make([]string, 0, len(paths))
	for _, p := range paths {
		if filepath.IsAbs(p) {
			r, err := filepath.Rel(g.dir, p)
			if err != nil {
				return fmt.Errorf("path %s outside %s: %w", p, g.dir, err)
			}
			p = r
		}
		rel = append(rel, p)
	}

	if _, err := g.run(ctx, append([]string{"add", "--"}, rel...)...); err != nil {
		return fmt.Errorf("git add: %w", err)
	}

	// diff --cached --quiet exits 0 when there is nothing to commit.
	if _, err := g.run(ctx, append([]string{"diff", "--cached", "--quiet", "--"}, rel...)...); err == nil {
		g.logger.Debug("Nothing to commit", zap.Strings("paths", rel))
		return nil
	}

	args := []string{
		"-c", "user.name=" + g.authorName,
		"-c", "user.email=" + g.authorEmail,
		"commit", "--no-verify", "-m", message, "--",
	}
	if _, err := g.run(ctx, append(args, rel...)...); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}

	g.logger.Info("Committed knowledge change", zap.Strings("paths", rel))
	return nil
}

func (g *GitCommitter) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return stdout.String(), nil
}
