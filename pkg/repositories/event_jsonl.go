package repositories

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/models"
)

// jsonlEventRepository stores each project's events as one JSON object per
// line in <dataDir>/<project>/events.jsonl.
//
// Every append is fsynced. A crash can at worst leave one partial line at the
// end of the file; readers skip it and the next append truncates it.
type jsonlEventRepository struct {
	dataDir string
	locks   *keyedMutex
	logger  *zap.Logger
}

// NewJSONLEventRepository creates a file-backed EventRepository rooted at dataDir.
func NewJSONLEventRepository(dataDir string, logger *zap.Logger) EventRepository {
	return &jsonlEventRepository{
		dataDir: dataDir,
		locks:   newKeyedMutex(),
		logger:  logger.Named("events-jsonl"),
	}
}

var _ EventRepository = (*jsonlEventRepository)(nil)

func (r *jsonlEventRepository) path(project string) string {
	return filepath.Join(r.dataDir, project, EventsJSONLFile)
}

func (r *jsonlEventRepository) Append(ctx context.Context, project string, event *models.Event) error {
	if err := validateEvent(project, event); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	line = append(line, '\n')

	unlock := r.locks.lock(project)
	defer unlock()

	if err := os.MkdirAll(filepath.Dir(r.path(project)), 0o755); err != nil {
		return persistenceError("append event", project, err)
	}

	f, err := os.OpenFile(r.path(project), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return persistenceError("append event", project, err)
	}
	defer f.Close()

	end, err := r.completeLength(f)
	if err != nil {
		return persistenceError("append event", project, err)
	}
	if _, err := f.WriteAt(line, end); err != nil {
		return persistenceError("append event", project, err)
	}
	if err := f.Sync(); err != nil {
		return persistenceError("append event", project, err)
	}
	return nil
}

// completeLength returns the offset just past the last newline, truncating
// a torn final record left by an interrupted append.
func (r *jsonlEventRepository) completeLength(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := info.Size()
	if size == 0 {
		return 0, nil
	}

	const chunk = 4096
	buf := make([]byte, chunk)
	end := size
	for end > 0 {
		start := end - chunk
		if start < 0 {
			start = 0
		}
		n, err := f.ReadAt(buf[:end-start], start)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if i := bytes.LastIndexByte(buf[:n], '\n'); i >= 0 {
			complete := start + int64(i) + 1
			if complete != size {
				r.logger.Warn("Truncating torn event record",
					zap.String("file", f.Name()),
					zap.Int64("bytes", size-complete))
				if err := f.Truncate(complete); err != nil {
					return 0, err
				}
			}
			return complete, nil
		}
		end = start
	}

	r.logger.Warn("Truncating torn event record", zap.String("file", f.Name()), zap.Int64("bytes", size))
	return 0, f.Truncate(0)
}

func (r *jsonlEventRepository) List(ctx context.Context, project string) ([]*models.Event, error) {
	if err := models.ValidateProjectName(project); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := r.locks.lock(project)
	defer unlock()

	f, err := os.Open(r.path(project))
	if os.IsNotExist(err) {
		return []*models.Event{}, nil
	}
	if err != nil {
		return nil, persistenceError("list events", project, err)
	}
	defer f.Close()

	events, err := r.decode(f)
	if err != nil {
		return nil, persistenceError("list events", project, err)
	}
	return events, nil
}

// decode reads newline-terminated records. An unterminated final record, or
// an undecodable last record, is skipped. An undecodable record followed by
// valid ones is corruption and fails the read.
func (r *jsonlEventRepository) decode(f *os.File) ([]*models.Event, error) {
	reader := bufio.NewReader(f)
	events := make([]*models.Event, 0)
	badLine := 0

	for lineNo := 1; ; lineNo++ {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			if len(bytes.TrimSpace(line)) > 0 {
				r.logger.Warn("Ignoring unterminated event record",
					zap.String("file", f.Name()),
					zap.Int("line", lineNo))
			}
			break
		}
		if err != nil {
			return nil, err
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if badLine != 0 {
			return nil, fmt.Errorf("%s: corrupt record at line %d", f.Name(), badLine)
		}

		var event models.Event
		if err := json.Unmarshal(line, &event); err != nil {
			badLine = lineNo
			continue
		}
		events = append(events, &event)
	}

	if badLine != 0 {
		r.logger.Warn("Ignoring undecodable final event record",
			zap.String("file", f.Name()),
			zap.Int("line", badLine))
	}
	return events, nil
}

func (r *jsonlEventRepository) Projects(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return projectsWithFile(r.dataDir, EventsJSONLFile)
}

func (r *jsonlEventRepository) Close() error {
	return nil
}
