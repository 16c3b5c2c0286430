// Package pending holds proposed facts that are waiting for a human to
// approve them.
//
// State is in memory only: a restart forgets every unapproved item.
package pending

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/apperrors"
	"github.com/humanand/humanand/pkg/models"
)

// Registry maps prompt ids to pending items. Updates and nudges (questions)
// are kept in separate maps, and a prompt id lives in at most one of them.
type Registry struct {
	mu      sync.Mutex
	updates map[string]models.PendingItem
	nudges  map[string]models.PendingItem
	logger  *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		updates: make(map[string]models.PendingItem),
		nudges:  make(map[string]models.PendingItem),
		logger:  logger.Named("pending"),
	}
}

// RegisterUpdate stores a proposed UPDATE under its prompt id.
func (r *Registry) RegisterUpdate(item models.PendingItem) error {
	item.Kind = models.EventKindUpdate
	return r.register(r.updates, item)
}

// RegisterNudge stores a proposed QUESTION under its prompt id.
func (r *Registry) RegisterNudge(item models.PendingItem) error {
	item.Kind = models.EventKindQuestion
	return r.register(r.nudges, item)
}

// Register stores item in the map matching its kind.
func (r *Registry) Register(item models.PendingItem) error {
	switch item.Kind {
	case models.EventKindUpdate:
		return r.RegisterUpdate(item)
	case models.EventKindQuestion:
		return r.RegisterNudge(item)
	default:
		return fmt.Errorf("register pending item %s: unknown kind %q", item.PromptID, item.Kind)
	}
}

func (r *Registry) register(target map[string]models.PendingItem, item models.PendingItem) error {
	if item.PromptID == "" {
		return fmt.Errorf("register pending item: empty prompt id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.updates[item.PromptID]; ok {
		return fmt.Errorf("register %s: %w", item.PromptID, apperrors.ErrDuplicatePromptID)
	}
	if _, ok := r.nudges[item.PromptID]; ok {
		return fmt.Errorf("register %s: %w", item.PromptID, apperrors.ErrDuplicatePromptID)
	}
	target[item.PromptID] = item
	return nil
}

// Resolve removes and returns the item registered under promptID. Updates
// are checked before nudges. Of two concurrent calls for the same id, exactly
// one gets the item; the other gets ErrPendingNotFound.
func (r *Registry) Resolve(promptID string) (models.PendingItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item, ok := r.updates[promptID]; ok {
		delete(r.updates, promptID)
		return item, nil
	}
	if item, ok := r.nudges[promptID]; ok {
		delete(r.nudges, promptID)
		return item, nil
	}
	return models.PendingItem{}, apperrors.ErrPendingNotFound
}

// Count returns the number of pending updates and nudges.
func (r *Registry) Count() (updates, nudges int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates), len(r.nudges)
}

// CountByAuthor returns how many pending items were proposed from userID's messages.
func (r *Registry) CountByAuthor(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, item := range r.updates {
		if item.AuthorUserID == userID {
			n++
		}
	}
	for _, item := range r.nudges {
		if item.AuthorUserID == userID {
			n++
		}
	}
	return n
}

// Expire removes and returns every item created before olderThan.
func (r *Registry) Expire(olderThan time.Time) []models.PendingItem {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []models.PendingItem
	for _, m := range []map[string]models.PendingItem{r.updates, r.nudges} {
		for id, item := range m {
			if item.CreatedAt.Before(olderThan) {
				expired = append(expired, item)
				delete(m, id)
			}
		}
	}
	return expired
}

// StartJanitor expires items older than ttl every interval until ctx is
// done. It blocks; run it on its own goroutine.
func (r *Registry) StartJanitor(ctx context.Context, ttl, interval time.Duration) error {
	if ttl <= 0 || interval <= 0 {
		return fmt.Errorf("janitor needs positive ttl and interval, got %s and %s", ttl, interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			expired := r.Expire(now.Add(-ttl))
			for _, item := range expired {
				r.logger.Info("Pending item expired",
					zap.String("prompt_id", item.PromptID),
					zap.String("kind", string(item.Kind)),
					zap.String("project", item.ProjectName))
			}
		}
	}
}
