package slack

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	goslack "github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/config"
	"github.com/humanand/humanand/pkg/models"
	"github.com/humanand/humanand/pkg/retry"
)

const membersPageSize = 200

// WebClient wraps the Slack Web API calls the bot makes. Transient failures
// and rate limiting are retried; message posts are retried only when Slack
// rejected them with a rate limit, so a prompt is never posted twice.
type WebClient struct {
	api    *goslack.Client
	retry  *retry.Config
	logger *zap.Logger

	mu           sync.RWMutex
	channelNames map[string]string
	botUserID    string
}

// NewWebClient creates a Web API client from the bot and app tokens.
func NewWebClient(cfg config.SlackConfig, logger *zap.Logger) *WebClient {
	opts := []goslack.Option{goslack.OptionAppLevelToken(cfg.AppToken)}
	if cfg.APIURL != "" {
		opts = append(opts, goslack.OptionAPIURL(strings.TrimRight(cfg.APIURL, "/")+"/"))
	}
	return &WebClient{
		api:          goslack.New(cfg.BotToken, opts...),
		retry:        retry.DefaultConfig(),
		logger:       logger.Named("slack"),
		channelNames: make(map[string]string),
	}
}

// onlyRateLimits marks every error except a rate limit as permanent.
type onlyRateLimits struct{ err error }

func (e *onlyRateLimits) Error() string { return e.err.Error() }
func (e *onlyRateLimits) Unwrap() error { return e.err }
func (e *onlyRateLimits) IsRetryable() bool {
	var rl *goslack.RateLimitedError
	return errors.As(e.err, &rl)
}

// PostMessage posts text to a channel, as a thread reply when threadTS is
// set, and returns the timestamp that identifies the posted message.
func (w *WebClient) PostMessage(ctx context.Context, channelID, threadTS, text string) (string, error) {
	opts := []goslack.MsgOption{goslack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, goslack.MsgOptionTS(threadTS))
	}
	ts, err := retry.DoWithResult(ctx, w.retry, func() (string, error) {
		_, ts, err := w.api.PostMessageContext(ctx, channelID, opts...)
		if err != nil {
			return "", &onlyRateLimits{err: err}
		}
		return ts, nil
	})
	if err != nil {
		return "", fmt.Errorf("chat.postMessage: %w", err)
	}
	return ts, nil
}

// IsChannelMember reports whether userID is a member of channelID, walking
// every page of the member list.
func (w *WebClient) IsChannelMember(ctx context.Context, channelID, userID string) (bool, error) {
	cursor := ""
	for {
		params := &goslack.GetUsersInConversationParameters{
			ChannelID: channelID,
			Cursor:    cursor,
			Limit:     membersPageSize,
		}
		type page struct {
			members []string
			next    string
		}
		p, err := retry.DoWithResult(ctx, w.retry, func() (page, error) {
			members, next, err := w.api.GetUsersInConversationContext(ctx, params)
			return page{members: members, next: next}, err
		})
		if err != nil {
			return false, fmt.Errorf("conversations.members: %w", err)
		}
		if slices.Contains(p.members, userID) {
			return true, nil
		}
		if p.next == "" {
			return false, nil
		}
		cursor = p.next
	}
}

// RecentMessages returns up to limit recent channel messages, oldest first.
func (w *WebClient) RecentMessages(ctx context.Context, channelID string, limit int) ([]models.HistoryMessage, error) {
	resp, err := retry.DoWithResult(ctx, w.retry, func() (*goslack.GetConversationHistoryResponse, error) {
		return w.api.GetConversationHistoryContext(ctx, &goslack.GetConversationHistoryParameters{
			ChannelID: channelID,
			Limit:     limit,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("conversations.history: %w", err)
	}

	messages := make([]models.HistoryMessage, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		messages = append(messages, models.HistoryMessage{
			UserID:    m.User,
			Text:      m.Text,
			Timestamp: m.Timestamp,
			BotID:     m.BotID,
			SubType:   m.SubType,
		})
	}
	// Slack returns newest first.
	slices.Reverse(messages)
	return messages, nil
}

// ChannelName resolves a channel id to its name. Names are cached for the
// life of the process.
func (w *WebClient) ChannelName(ctx context.Context, channelID string) (string, error) {
	w.mu.RLock()
	name, ok := w.channelNames[channelID]
	w.mu.RUnlock()
	if ok {
		return name, nil
	}

	ch, err := retry.DoWithResult(ctx, w.retry, func() (*goslack.Channel, error) {
		return w.api.GetConversationInfoContext(ctx, &goslack.GetConversationInfoInput{ChannelID: channelID})
	})
	if err != nil {
		return "", fmt.Errorf("conversations.info: %w", err)
	}
	if ch.Name == "" {
		return "", fmt.Errorf("conversations.info: channel %s has no name", channelID)
	}

	w.mu.Lock()
	w.channelNames[channelID] = ch.Name
	w.mu.Unlock()
	return ch.Name, nil
}

// Permalink returns a link to a message.
func (w *WebClient) Permalink(ctx context.Context, channelID, ts string) (string, error) {
	link, err := retry.DoWithResult(ctx, w.retry, func() (string, error) {
		return w.api.GetPermalinkContext(ctx, &goslack.PermalinkParameters{Channel: channelID, Ts: ts})
	})
	if err != nil {
		return "", fmt.Errorf("chat.getPermalink: %w", err)
	}
	return link, nil
}

// BotUserID returns the bot's own user id from auth.test.
func (w *WebClient) BotUserID(ctx context.Context) (string, error) {
	w.mu.RLock()
	id := w.botUserID
	w.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	resp, err := retry.DoWithResult(ctx, w.retry, func() (*goslack.AuthTestResponse, error) {
		return w.api.AuthTestContext(ctx)
	})
	if err != nil {
		return "", fmt.Errorf("auth.test: %w", err)
	}

	w.mu.Lock()
	w.botUserID = resp.UserID
	w.mu.Unlock()
	w.logger.Info("Authenticated", zap.String("bot_user_id", resp.UserID), zap.String("team", resp.Team))
	return resp.UserID, nil
}

// OpenSocketURL calls apps.connections.open with the app-level token.
func (w *WebClient) OpenSocketURL(ctx context.Context) (string, error) {
	url, err := retry.DoWithResult(ctx, w.retry, func() (string, error) {
		_, url, err := w.api.StartSocketModeContext(ctx)
		return url, err
	})
	if err != nil {
		return "", fmt.Errorf("apps.connections.open: %w", err)
	}
	return url, nil
}
