package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverfjs/tghtml"
	"github.com/riverfjs/tghtml/internal/dispatch"
	"github.com/riverfjs/tghtml/internal/store"
)

type chunkSender struct {
	mu     sync.Mutex
	sent   []string
	chats  []int64
	nextID int
	err    error
}

func (c *chunkSender) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *chunkSender) sentChunks() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func (c *chunkSender) sentChats() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.chats...)
}

func (c *chunkSender) SendHTML(_ context.Context, chatID int64, html string, _ bool) (tgbotapi.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return tgbotapi.Message{}, c.err
	}
	c.nextID++
	c.sent = append(c.sent, html)
	c.chats = append(c.chats, chatID)
	return tgbotapi.Message{MessageID: c.nextID, Chat: &tgbotapi.Chat{ID: chatID}}, nil
}

func (c *chunkSender) SendText(ctx context.Context, chatID int64, text string, preview bool) (tgbotapi.Message, error) {
	return c.SendHTML(ctx, chatID, text, preview)
}

type testEnv struct {
	srv    *httptest.Server
	sender *chunkSender
	store  *store.Store
}

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "n.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	sender := &chunkSender{}
	d := dispatch.New(sender, dispatch.Options{RatePerSecond: 1000, Burst: 100, Recorder: st})
	s := New(Options{Notifier: d, History: st, APIKey: apiKey})

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, sender: sender, store: st}
}

func (e *testEnv) do(t *testing.T, method, path, body string, header map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHeartbeat(t *testing.T) {
	env := newTestEnv(t, "secret")

	resp, body := env.do(t, http.MethodGet, "/api/heartbeat", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, map[string]any{"status": "ok"}, body)
}

func TestNotify(t *testing.T) {
	env := newTestEnv(t, "")

	resp, body := env.do(t, http.MethodPost, "/api/notify", `{"chat_id": 7, "text": "**done** & dusted"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["chunks"])
	assert.Equal(t, []any{float64(1)}, body["message_ids"])
	assert.Equal(t, []string{"<b>done</b> &amp; dusted"}, env.sender.sentChunks())

	list, err := env.store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "done & dusted", list[0].Notification)
}

func TestNotifyBadRequests(t *testing.T) {
	env := newTestEnv(t, "")

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"chat_id":`},
		{"missing chat", `{"text": "hi"}`},
		{"empty text", `{"chat_id": 7, "text": "  "}`},
		{"zero in chat_ids", `{"chat_ids": [8, 0], "text": "hi"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/api/notify", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.Empty(t, env.sender.sentChunks())
}

func TestNotifyDeliveryError(t *testing.T) {
	env := newTestEnv(t, "")
	env.sender.setErr(errors.New("Forbidden: bot was blocked by the user"))

	resp, body := env.do(t, http.MethodPost, "/api/notify", `{"chat_id": 7, "text": "hi"}`, nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body["error"], "blocked")
	assert.Equal(t, float64(0), body["chunks"])
}

func TestNotifyBroadcast(t *testing.T) {
	env := newTestEnv(t, "")

	resp, body := env.do(t, http.MethodPost, "/api/notify", `{"chat_id": 7, "chat_ids": [8, 7], "text": "hi"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results, ok := body["results"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, results, 2)
	assert.Contains(t, results, "7")
	assert.Contains(t, results, "8")

	// 7 重复出现也只发一次
	assert.ElementsMatch(t, []int64{7, 8}, env.sender.sentChats())

	list, err := env.store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestNotifyBroadcastDeliveryError(t *testing.T) {
	env := newTestEnv(t, "")
	env.sender.setErr(errors.New("Forbidden: bot was blocked by the user"))

	resp, body := env.do(t, http.MethodPost, "/api/notify", `{"chat_ids": [1, 2], "text": "hi"}`, nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body["error"], "blocked")
}

func TestNotifyJob(t *testing.T) {
	env := newTestEnv(t, "")

	resp, _ := env.do(t, http.MethodPost, "/api/notify/job",
		`{"chat_id": 7, "job_id": "abcdef123456", "success": false, "summary": "tests failed"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	want := tghtml.JobNotification{JobID: "abcdef123456", Summary: "tests failed"}.Format()
	assert.Equal(t, []string{want}, env.sender.sentChunks())
}

func TestNotifyJobRequiresJobID(t *testing.T) {
	env := newTestEnv(t, "")
	resp, _ := env.do(t, http.MethodPost, "/api/notify/job", `{"chat_id": 7}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIKey(t *testing.T) {
	env := newTestEnv(t, "secret")

	resp, _ := env.do(t, http.MethodPost, "/api/notify", `{"chat_id": 7, "text": "hi"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/notify", `{"chat_id": 7, "text": "hi"}`,
		map[string]string{APIKeyHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/notify", `{"chat_id": 7, "text": "hi"}`,
		map[string]string{APIKeyHeader: "secret"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNotificationsListAndRead(t *testing.T) {
	env := newTestEnv(t, "")
	for _, text := range []string{"one", "two", "three"} {
		resp, _ := env.do(t, http.MethodPost, "/api/notify", `{"chat_id": 7, "text": "`+text+`"}`, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := env.do(t, http.MethodGet, "/api/notifications?limit=2", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["unread"])
	items, ok := body["notifications"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)

	resp, body = env.do(t, http.MethodPost, "/api/notifications/read", `{"id": "`+first["id"].(string)+`"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["updated"])

	resp, _ = env.do(t, http.MethodPost, "/api/notifications/read", `{"id": "missing"}`, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/api/notifications/read", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["updated"])

	_, body = env.do(t, http.MethodGet, "/api/notifications", "", nil)
	assert.Equal(t, float64(0), body["unread"])
}

func TestMarkReadEmptyChunkedBody(t *testing.T) {
	env := newTestEnv(t, "")
	_, err := env.store.Add(context.Background(), "one", nil)
	require.NoError(t, err)

	s := New(Options{History: env.store})
	req := httptest.NewRequest(http.MethodPost, "/api/notifications/read", strings.NewReader(""))
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["updated"])
}

func TestMarkReadInvalidJSON(t *testing.T) {
	env := newTestEnv(t, "")
	resp, _ := env.do(t, http.MethodPost, "/api/notifications/read", `{"id":`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNotificationsInvalidLimit(t *testing.T) {
	env := newTestEnv(t, "")
	resp, _ := env.do(t, http.MethodGet, "/api/notifications?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNotificationsWithoutStore(t *testing.T) {
	s := New(Options{Notifier: dispatch.New(&chunkSender{}, dispatch.Options{})})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s := New(Options{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notify", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	require.NoError(t, <-done)
}
