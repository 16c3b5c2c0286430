package models

import "time"

// EventKind distinguishes the two actionable classification outcomes.
type EventKind string

const (
	EventKindUpdate   EventKind = "UPDATE"
	EventKindQuestion EventKind = "QUESTION"
)

// IsValid reports whether k is one of the known kinds.
func (k EventKind) IsValid() bool {
	return k == EventKindUpdate || k == EventKindQuestion
}

// PendingItem is a classified fact awaiting human approval, keyed by the id
// of the confirmation prompt the bot posted.
type PendingItem struct {
	PromptID        string    `json:"prompt_id"`
	Kind            EventKind `json:"kind"`
	FactText        string    `json:"fact_text"`
	AuthorUserID    string    `json:"author_user_id"`
	SourceChannelID string    `json:"source_channel_id"`
	SourceMessageID string    `json:"source_message_id,omitempty"`
	ThreadID        string    `json:"thread_id,omitempty"` // thread the prompt was posted in
	ProjectName     string    `json:"project_name"`
	CreatedAt       time.Time `json:"created_at"`
}
