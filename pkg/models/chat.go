package models

// ApprovalReaction is the reaction name that approves a pending item.
const ApprovalReaction = "white_check_mark"

// MessageEvent is an inbound channel message.
type MessageEvent struct {
	ChannelID string
	UserID    string
	Text      string
	MessageID string
	// ThreadID is set for replies inside a thread.
	ThreadID string
	BotID    string
	SubType  string
}

// FromBot reports whether the message was produced by a bot or is a
// system subtype (joins, edits, deletions).
func (m MessageEvent) FromBot() bool {
	return m.BotID != "" || m.SubType != ""
}

// ReactionEvent is an inbound reaction added to a message.
type ReactionEvent struct {
	Reaction        string
	UserID          string
	TargetMessageID string
	ChannelID       string
}

// MentionEvent is an inbound message that mentions the bot.
type MentionEvent struct {
	ChannelID string
	UserID    string
	Text      string
	MessageID string
}

// HistoryMessage is one message returned from a channel history fetch.
type HistoryMessage struct {
	UserID    string
	Text      string
	Timestamp string
	BotID     string
	SubType   string
}
