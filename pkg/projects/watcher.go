package projects

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/repositories"
)

// Watcher invalidates cached projects when their knowledge file changes on
// disk, so hand edits to ground_truth.txt are picked up without a restart.
type Watcher struct {
	dataDir     string
	cache       *Cache
	debounceDur time.Duration
	logger      *zap.Logger

	mu      sync.Mutex
	pending map[string]time.Time // project -> last event
}

// NewWatcher creates a watcher for the project directories under dataDir.
func NewWatcher(dataDir string, cache *Cache, logger *zap.Logger) *Watcher {
	return &Watcher{
		dataDir:     dataDir,
		cache:       cache,
		debounceDur: 250 * time.Millisecond, // editors write in bursts
		logger:      logger.Named("knowledge-watcher"),
		pending:     make(map[string]time.Time),
	}
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := os.MkdirAll(w.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := fsw.Add(w.dataDir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dataDir, err)
	}

	entries, err := os.ReadDir(w.dataDir)
	if err != nil {
		return fmt.Errorf("read data dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			w.watchProject(fsw, filepath.Join(w.dataDir, entry.Name()))
		}
	}
	w.logger.Info("Watching knowledge files", zap.String("data_dir", w.dataDir))

	ticker := time.NewTicker(w.debounceDur / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", zap.Error(err))

		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

func (w *Watcher) watchProject(fsw *fsnotify.Watcher, dir string) {
	if err := fsw.Add(dir); err != nil {
		w.logger.Warn("Failed to watch project directory", zap.String("dir", dir), zap.Error(err))
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// A new project directory: start watching it.
	if filepath.Dir(event.Name) == filepath.Clean(w.dataDir) {
		if event.Op&fsnotify.Create != 0 {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				w.watchProject(fsw, event.Name)
			}
		}
		return
	}

	if filepath.Base(event.Name) != repositories.GroundTruthFile {
		return
	}
	project := filepath.Base(filepath.Dir(event.Name))

	w.mu.Lock()
	w.pending[project] = time.Now()
	w.mu.Unlock()
}

// flush invalidates projects whose last change is older than the debounce window.
func (w *Watcher) flush(now time.Time) {
	w.mu.Lock()
	var settled []string
	for project, at := range w.pending {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, project)
			delete(w.pending, project)
		}
	}
	w.mu.Unlock()

	for _, project := range settled {
		w.cache.Invalidate(project)
		w.logger.Info("Knowledge changed on disk, reloading", zap.String("project", project))
	}
}
