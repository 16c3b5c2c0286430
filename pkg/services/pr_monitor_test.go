package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/humanand/humanand/pkg/config"
	"github.com/humanand/humanand/pkg/projects"
	"github.com/humanand/humanand/pkg/repositories"
)

type fakePR struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	HTMLURL string `json:"html_url"`
	User    struct {
		Login string `json:"login"`
	} `json:"user"`
}

func newFakePR(n int, title, login string) fakePR {
	pr := fakePR{Number: n, Title: title, HTMLURL: "https://github.com/acme/widgets/pull/" + strconv.Itoa(n)}
	pr.User.Login = login
	return pr
}

// fakeGitHub serves the open pull request list for acme/widgets.
type fakeGitHub struct {
	server *httptest.Server

	mu    sync.Mutex
	prs   []fakePR
	query []string
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	f := &fakeGitHub{}
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.query = append(f.query, r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.prs)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGitHub) setPRs(prs ...fakePR) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prs = prs
}

func newTestMonitor(t *testing.T, gh *fakeGitHub, chat ChannelPoster, cache *projects.Cache) *PRMonitor {
	t.Helper()
	m, err := NewPRMonitor(config.GitHubConfig{
		Repo:         "acme/widgets",
		Token:        "ghp_test",
		ChannelID:    "C123",
		PollInterval: 10 * time.Millisecond,
		APIURL:       gh.server.URL,
	}, chat, cache, zaptest.NewLogger(t))
	require.NoError(t, err)
	return m
}

func TestPRMonitor_FirstPollOnlySeeds(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.setPRs(newFakePR(12, "Old work", "alice"), newFakePR(10, "Older work", "bob"))
	chat := newFakeChat()
	m := newTestMonitor(t, gh, chat, nil)
	ctx := context.Background()

	require.NoError(t, m.poll(ctx))
	assert.Empty(t, chat.messages())
	assert.Equal(t, 12, m.lastSeen)

	gh.setPRs(newFakePR(14, "Add SQLite store", "carol"), newFakePR(13, "Fix login", "dave"), newFakePR(12, "Old work", "alice"))
	require.NoError(t, m.poll(ctx))

	sent := chat.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, "C123", sent[0].channelID)
	assert.Equal(t, ":git: New PR #13: Fix login by dave — https://github.com/acme/widgets/pull/13", sent[0].text)
	assert.Equal(t, ":git: New PR #14: Add SQLite store by carol — https://github.com/acme/widgets/pull/14", sent[1].text)
	assert.Equal(t, 14, m.lastSeen)

	require.NoError(t, m.poll(ctx))
	assert.Len(t, chat.messages(), 2)

	gh.mu.Lock()
	defer gh.mu.Unlock()
	assert.Contains(t, gh.query[0], "state=open")
	assert.Contains(t, gh.query[0], "direction=desc")
}

func TestPRMonitor_PostFailureRetriesNextPoll(t *testing.T) {
	gh := newFakeGitHub(t)
	chat := newFakeChat()
	m := newTestMonitor(t, gh, chat, nil)
	ctx := context.Background()

	require.NoError(t, m.poll(ctx))
	gh.setPRs(newFakePR(1, "First", "alice"))

	chat.postErr = assert.AnError
	require.Error(t, m.poll(ctx))
	assert.Equal(t, 0, m.lastSeen)

	chat.postErr = nil
	require.NoError(t, m.poll(ctx))
	assert.Len(t, chat.messages(), 1)
	assert.Equal(t, 1, m.lastSeen)
}

func TestPRMonitor_AnnotatesWithProjectFacts(t *testing.T) {
	dir := t.TempDir()
	writeGroundTruth(t, dir, "test-channel", "decision: Use SQLite\ndecision: Ship Friday\n\nowner: <@U111>")
	logger := zaptest.NewLogger(t)
	cache := projects.NewCache(repositories.NewKnowledgeRepository(dir), logger)

	gh := newFakeGitHub(t)
	chat := newFakeChat()
	m := newTestMonitor(t, gh, chat, cache)
	ctx := context.Background()

	require.NoError(t, m.poll(ctx))
	gh.setPRs(newFakePR(7, "Wire cache", "erin"))
	require.NoError(t, m.poll(ctx))

	sent := chat.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, ":git: New PR #7: Wire cache by erin — https://github.com/acme/widgets/pull/7\n_*test-channel* has 3 facts on record_", sent[0].text)
}

func TestPRMonitor_StartStopsOnCancel(t *testing.T) {
	gh := newFakeGitHub(t)
	chat := newFakeChat()
	m := newTestMonitor(t, gh, chat, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	require.Eventually(t, func() bool {
		gh.mu.Lock()
		defer gh.mu.Unlock()
		return len(gh.query) >= 2
	}, 5*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestNewPRMonitor_RejectsBadRepo(t *testing.T) {
	_, err := NewPRMonitor(config.GitHubConfig{Repo: "nope", Token: "t"}, newFakeChat(), nil, zaptest.NewLogger(t))
	assert.Error(t, err)
}
