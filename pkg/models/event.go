package models

import (
	"time"

	"github.com/google/uuid"
)

// ReactionApproved is the only reaction value an event is ever logged with.
const ReactionApproved = "approved"

// Event is one resolved fact in a project's append-only log.
// Events are immutable once appended.
type Event struct {
	ID           uuid.UUID `json:"id" yaml:"id"`
	Timestamp    time.Time `json:"timestamp" yaml:"timestamp"`
	EventType    EventKind `json:"event_type" yaml:"event_type"`
	FactText     string    `json:"fact_text" yaml:"fact_text"`
	AuthorUserID string    `json:"author_user_id" yaml:"author_user_id"`
	Reaction     string    `json:"reaction" yaml:"reaction"`
	PromptID     string    `json:"prompt_id,omitempty" yaml:"prompt_id,omitempty"`
	Permalink    string    `json:"permalink,omitempty" yaml:"permalink,omitempty"`
}

// NewApprovedEvent builds the event recorded when a pending item is approved.
func NewApprovedEvent(item PendingItem, permalink string, now time.Time) *Event {
	return &Event{
		ID:           uuid.New(),
		Timestamp:    now.UTC(),
		EventType:    item.Kind,
		FactText:     item.FactText,
		AuthorUserID: item.AuthorUserID,
		Reaction:     ReactionApproved,
		PromptID:     item.PromptID,
		Permalink:    permalink,
	}
}
