package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/humanand/humanand/pkg/models"
)

type sentMessage struct {
	channelID string
	threadTS  string
	text      string
}

// fakeChat is an in-memory ChatPlatform.
type fakeChat struct {
	mu sync.Mutex

	botID      string
	channels   map[string]string
	members    map[string][]string
	memberErr  error
	history    []models.HistoryMessage
	historyErr error
	postErr    error
	nextTS     []string
	permalinks map[string]string

	sent []sentMessage
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		botID:      "UBOT",
		channels:   map[string]string{"C123": "test-channel"},
		members:    map[string][]string{"C123": {"U123"}},
		permalinks: make(map[string]string),
	}
}

func (f *fakeChat) PostMessage(_ context.Context, channelID, threadTS, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return "", f.postErr
	}
	f.sent = append(f.sent, sentMessage{channelID: channelID, threadTS: threadTS, text: text})
	if len(f.nextTS) > 0 {
		ts := f.nextTS[0]
		f.nextTS = f.nextTS[1:]
		return ts, nil
	}
	return fmt.Sprintf("%d.000", 1000+len(f.sent)), nil
}

func (f *fakeChat) IsChannelMember(_ context.Context, channelID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.memberErr != nil {
		return false, f.memberErr
	}
	return slices.Contains(f.members[channelID], userID), nil
}

func (f *fakeChat) RecentMessages(_ context.Context, _ string, limit int) ([]models.HistoryMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	h := f.history
	if len(h) > limit {
		h = h[len(h)-limit:]
	}
	return append([]models.HistoryMessage(nil), h...), nil
}

func (f *fakeChat) ChannelName(_ context.Context, channelID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.channels[channelID]
	if !ok {
		return "", errors.New("channel_not_found")
	}
	return name, nil
}

func (f *fakeChat) Permalink(_ context.Context, channelID, ts string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if link, ok := f.permalinks[channelID+"/"+ts]; ok {
		return link, nil
	}
	return "", errors.New("message_not_found")
}

func (f *fakeChat) BotUserID(context.Context) (string, error) {
	return f.botID, nil
}

func (f *fakeChat) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

var _ ChatPlatform = (*fakeChat)(nil)

type fakeCommitter struct {
	mu      sync.Mutex
	err     error
	commits [][]string
}

func (c *fakeCommitter) Commit(_ context.Context, paths []string, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commits = append(c.commits, paths)
	return c.err
}

type failingKnowledgeWriter struct{ err error }

func (w failingKnowledgeWriter) AppendFact(context.Context, string, string) error { return w.err }

type fakePeople struct {
	summaries map[string]string
}

func (p fakePeople) Summary(_ context.Context, userID string) (string, error) {
	return p.summaries[userID], nil
}

func (p fakePeople) Projects(context.Context, string) ([]ProjectRole, error) { return nil, nil }

func (p fakePeople) Activity(context.Context, string, int) ([]Activity, error) { return nil, nil }
