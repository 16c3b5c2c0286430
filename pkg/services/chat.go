package services

import (
	"context"

	"github.com/humanand/humanand/pkg/models"
)

// ChatPlatform is the part of the chat API the workflow depends on.
type ChatPlatform interface {
	// PostMessage posts text, threaded under threadTS when set, and returns
	// the id of the posted message.
	PostMessage(ctx context.Context, channelID, threadTS, text string) (string, error)
	IsChannelMember(ctx context.Context, channelID, userID string) (bool, error)
	// RecentMessages returns recent channel messages, oldest first.
	RecentMessages(ctx context.Context, channelID string, limit int) ([]models.HistoryMessage, error)
	ChannelName(ctx context.Context, channelID string) (string, error)
	Permalink(ctx context.Context, channelID, ts string) (string, error)
	BotUserID(ctx context.Context) (string, error)
}

// ChannelPoster posts to a channel it knows by id.
type ChannelPoster interface {
	PostMessage(ctx context.Context, channelID, threadTS, text string) (string, error)
	ChannelName(ctx context.Context, channelID string) (string, error)
}

// PendingCounter reports how many items a user has awaiting approval.
type PendingCounter interface {
	CountByAuthor(userID string) int
}
