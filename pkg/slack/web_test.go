package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/humanand/humanand/pkg/config"
	"github.com/humanand/humanand/pkg/retry"
)

// fakeSlackAPI serves canned Web API responses keyed by method name.
type fakeSlackAPI struct {
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	calls    map[string]int
	forms    map[string][]map[string]string
}

func newFakeSlackAPI(t *testing.T) *fakeSlackAPI {
	f := &fakeSlackAPI{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		calls:    make(map[string]int),
		forms:    make(map[string][]map[string]string),
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.TrimPrefix(r.URL.Path, "/")
		_ = r.ParseForm()
		form := make(map[string]string)
		for k := range r.Form {
			form[k] = r.Form.Get(k)
		}

		f.mu.Lock()
		f.calls[method]++
		f.forms[method] = append(f.forms[method], form)
		h := f.handlers[method]
		f.mu.Unlock()

		if h == nil {
			writeSlackJSON(w, map[string]any{"ok": false, "error": "unknown_method"})
			return
		}
		h(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeSlackAPI) handle(method string, h func(w http.ResponseWriter, r *http.Request)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
}

func (f *fakeSlackAPI) respond(method string, body map[string]any) {
	f.handle(method, func(w http.ResponseWriter, _ *http.Request) {
		writeSlackJSON(w, body)
	})
}

func (f *fakeSlackAPI) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeSlackAPI) formsFor(method string) []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.forms[method]...)
}

func writeSlackJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func newTestWebClient(t *testing.T, api *fakeSlackAPI) *WebClient {
	t.Helper()
	w := NewWebClient(config.SlackConfig{
		BotToken: "xoxb-test",
		AppToken: "xapp-test",
		APIURL:   api.server.URL,
	}, zaptest.NewLogger(t))
	w.retry = &retry.Config{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
	return w
}

func TestWebClient_PostMessage_ThreadReply(t *testing.T) {
	api := newFakeSlackAPI(t)
	api.respond("chat.postMessage", map[string]any{"ok": true, "channel": "C123", "ts": "999.000"})
	client := newTestWebClient(t, api)

	ts, err := client.PostMessage(context.Background(), "C123", "111.000", "Proposed update")
	require.NoError(t, err)
	assert.Equal(t, "999.000", ts)

	forms := api.formsFor("chat.postMessage")
	require.Len(t, forms, 1)
	assert.Equal(t, "C123", forms[0]["channel"])
	assert.Equal(t, "111.000", forms[0]["thread_ts"])
	assert.Equal(t, "Proposed update", forms[0]["text"])
}

func TestWebClient_PostMessage_DoesNotRetryOrdinaryFailures(t *testing.T) {
	api := newFakeSlackAPI(t)
	api.respond("chat.postMessage", map[string]any{"ok": false, "error": "service unavailable"})
	client := newTestWebClient(t, api)

	_, err := client.PostMessage(context.Background(), "C123", "", "hi")
	require.Error(t, err)
	assert.Equal(t, 1, api.callCount("chat.postMessage"))
}

func TestWebClient_PostMessage_RetriesRateLimit(t *testing.T) {
	api := newFakeSlackAPI(t)
	var mu sync.Mutex
	attempts := 0
	api.handle("chat.postMessage", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeSlackJSON(w, map[string]any{"ok": true, "channel": "C123", "ts": "777.000"})
	})
	client := newTestWebClient(t, api)

	ts, err := client.PostMessage(context.Background(), "C123", "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "777.000", ts)
	assert.Equal(t, 2, api.callCount("chat.postMessage"))
}

func TestWebClient_IsChannelMember_Paginates(t *testing.T) {
	api := newFakeSlackAPI(t)
	api.handle("conversations.members", func(w http.ResponseWriter, r *http.Request) {
		if r.Form.Get("cursor") == "" {
			writeSlackJSON(w, map[string]any{
				"ok":                true,
				"members":           []string{"U1", "U2"},
				"response_metadata": map[string]any{"next_cursor": "page2"},
			})
			return
		}
		writeSlackJSON(w, map[string]any{
			"ok":                true,
			"members":           []string{"U123"},
			"response_metadata": map[string]any{"next_cursor": ""},
		})
	})
	client := newTestWebClient(t, api)

	ok, err := client.IsChannelMember(context.Background(), "C123", "U123")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, api.callCount("conversations.members"))

	ok, err = client.IsChannelMember(context.Background(), "C123", "U999")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWebClient_IsChannelMember_Error(t *testing.T) {
	api := newFakeSlackAPI(t)
	api.respond("conversations.members", map[string]any{"ok": false, "error": "channel_not_found"})
	client := newTestWebClient(t, api)

	_, err := client.IsChannelMember(context.Background(), "C404", "U123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestWebClient_RecentMessages_OldestFirst(t *testing.T) {
	api := newFakeSlackAPI(t)
	api.respond("conversations.history", map[string]any{
		"ok": true,
		"messages": []map[string]any{
			{"type": "message", "user": "U2", "text": "second", "ts": "2.000"},
			{"type": "message", "bot_id": "B1", "text": "bot says", "ts": "1.500"},
			{"type": "message", "user": "U1", "text": "first", "ts": "1.000"},
		},
	})
	client := newTestWebClient(t, api)

	msgs, err := client.RecentMessages(context.Background(), "C123", 20)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, "U1", msgs[0].UserID)
	assert.Equal(t, "B1", msgs[1].BotID)
	assert.Equal(t, "second", msgs[2].Text)

	forms := api.formsFor("conversations.history")
	require.Len(t, forms, 1)
	assert.Equal(t, "20", forms[0]["limit"])
}

func TestWebClient_ChannelName_Cached(t *testing.T) {
	api := newFakeSlackAPI(t)
	api.respond("conversations.info", map[string]any{
		"ok":      true,
		"channel": map[string]any{"id": "C123", "name": "test-channel"},
	})
	client := newTestWebClient(t, api)

	for range 3 {
		name, err := client.ChannelName(context.Background(), "C123")
		require.NoError(t, err)
		assert.Equal(t, "test-channel", name)
	}
	assert.Equal(t, 1, api.callCount("conversations.info"))
}

func TestWebClient_PermalinkAndAuth(t *testing.T) {
	api := newFakeSlackAPI(t)
	api.respond("chat.getPermalink", map[string]any{
		"ok":        true,
		"channel":   "C123",
		"permalink": "https://example.slack.com/archives/C123/p999000",
	})
	api.respond("auth.test", map[string]any{"ok": true, "user_id": "UBOT", "team": "acme"})
	client := newTestWebClient(t, api)

	link, err := client.Permalink(context.Background(), "C123", "999.000")
	require.NoError(t, err)
	assert.Equal(t, "https://example.slack.com/archives/C123/p999000", link)

	id, err := client.BotUserID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "UBOT", id)

	_, err = client.BotUserID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, api.callCount("auth.test"))
}

func TestWebClient_OpenSocketURL(t *testing.T) {
	api := newFakeSlackAPI(t)
	api.respond("apps.connections.open", map[string]any{"ok": true, "url": "wss://wss.example/link"})
	client := newTestWebClient(t, api)

	url, err := client.OpenSocketURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wss://wss.example/link", url)
}
