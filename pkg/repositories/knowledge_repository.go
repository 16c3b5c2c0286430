package repositories

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/humanand/humanand/pkg/models"
)

// KnowledgeRepository stores each project's knowledge text in
// <dataDir>/<project>/ground_truth.txt, one fact per line.
type KnowledgeRepository interface {
	// AppendFact appends fact as one line and fsyncs. Appends to the same
	// project are serialized.
	AppendFact(ctx context.Context, project, fact string) error
	// Read returns the knowledge text, or "" for a project without one.
	Read(ctx context.Context, project string) (string, error)
	Projects(ctx context.Context) ([]string, error)
	// Path is the knowledge file location for project.
	Path(project string) string
	DataDir() string
}

type knowledgeRepository struct {
	dataDir string
	locks   *keyedMutex
}

// NewKnowledgeRepository creates a KnowledgeRepository rooted at dataDir.
func NewKnowledgeRepository(dataDir string) KnowledgeRepository {
	return &knowledgeRepository{
		dataDir: dataDir,
		locks:   newKeyedMutex(),
	}
}

var _ KnowledgeRepository = (*knowledgeRepository)(nil)

func (r *knowledgeRepository) Path(project string) string {
	return filepath.Join(r.dataDir, project, GroundTruthFile)
}

func (r *knowledgeRepository) DataDir() string {
	return r.dataDir
}

func (r *knowledgeRepository) AppendFact(ctx context.Context, project, fact string) error {
	if err := models.ValidateProjectName(project); err != nil {
		return fmt.Errorf("append fact: %w", err)
	}
	fact = singleLine(fact)
	if fact == "" {
		return fmt.Errorf("append fact: empty fact")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := r.locks.lock(project)
	defer unlock()

	path := r.Path(project)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return persistenceError("append fact", project, err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return persistenceError("append fact", project, err)
	}
	defer f.Close()

	// The file is also edited by hand; don't glue onto an unterminated last line.
	line := fact + "\n"
	if needs, err := needsLeadingNewline(f); err != nil {
		return persistenceError("append fact", project, err)
	} else if needs {
		line = "\n" + line
	}

	if _, err := f.WriteString(line); err != nil {
		return persistenceError("append fact", project, err)
	}
	if err := f.Sync(); err != nil {
		return persistenceError("append fact", project, err)
	}
	return nil
}

func needsLeadingNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (r *knowledgeRepository) Read(ctx context.Context, project string) (string, error) {
	if err := models.ValidateProjectName(project); err != nil {
		return "", fmt.Errorf("read knowledge: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(r.Path(project))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", persistenceError("read knowledge", project, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (r *knowledgeRepository) Projects(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return projectsWithFile(r.dataDir, GroundTruthFile)
}
