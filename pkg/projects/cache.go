// Package projects caches per-project state loaded from the data directory.
package projects

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/repositories"
)

// Agent is an immutable snapshot of one project's knowledge. A reload
// replaces the Agent in the cache; holders of the old one keep a consistent
// view.
type Agent struct {
	name        string
	groundTruth string
	loadedAt    time.Time
}

// Name returns the project name.
func (a *Agent) Name() string { return a.name }

// GroundTruth returns the knowledge text, "" if the project has none yet.
func (a *Agent) GroundTruth() string { return a.groundTruth }

// LoadedAt is when the snapshot was read.
func (a *Agent) LoadedAt() time.Time { return a.loadedAt }

// Facts returns the non-empty lines of the knowledge text.
func (a *Agent) Facts() []string {
	var facts []string
	for _, line := range strings.Split(a.groundTruth, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			facts = append(facts, line)
		}
	}
	return facts
}

// Cache holds one Agent per project. It is shared by the workflow and the
// PR monitor and is safe for concurrent use.
type Cache struct {
	knowledge repositories.KnowledgeRepository
	logger    *zap.Logger

	mu     sync.RWMutex
	agents map[string]*Agent

	// generations counts invalidations per project. A load only caches its
	// snapshot if no Invalidate ran while it was reading.
	generations map[string]uint64
}

// NewCache creates an empty cache over knowledge.
func NewCache(knowledge repositories.KnowledgeRepository, logger *zap.Logger) *Cache {
	return &Cache{
		agents:      make(map[string]*Agent),
		generations: make(map[string]uint64),
		knowledge:   knowledge,
		logger:      logger.Named("projects"),
	}
}

// Get returns the cached Agent for name, loading it on first use.
func (c *Cache) Get(ctx context.Context, name string) (*Agent, error) {
	c.mu.RLock()
	agent, ok := c.agents[name]
	gen := c.generations[name]
	c.mu.RUnlock()
	if ok {
		return agent, nil
	}

	text, err := c.knowledge.Read(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", name, err)
	}
	loaded := &Agent{name: name, groundTruth: text, loadedAt: time.Now()}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[name] != gen {
		// Invalidated mid-read; the text may predate the change.
		c.logger.Debug("Project changed while loading, not caching", zap.String("project", name))
		return loaded, nil
	}
	// Another caller may have loaded it meanwhile; keep the first.
	if agent, ok := c.agents[name]; ok {
		return agent, nil
	}
	c.agents[name] = loaded
	c.logger.Debug("Project loaded", zap.String("project", name), zap.Int("knowledge_bytes", len(text)))
	return loaded, nil
}

// Invalidate drops the cached Agent for name; the next Get reloads it.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	delete(c.agents, name)
	c.generations[name]++
	c.mu.Unlock()
}

// Len returns the number of cached projects.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.agents)
}
