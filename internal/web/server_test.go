package web

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/longkey1/chatmem/internal/chatmem"
	"github.com/longkey1/chatmem/internal/chatmem/config"
	"github.com/longkey1/chatmem/internal/chatmem/session"
	"github.com/longkey1/chatmem/internal/chatmem/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	fragments []string
	err       error
}

func (p *stubProvider) StreamChat(ctx context.Context, systemPrompt string, messages []chatmem.Message, onFragment func(string) error) (string, error) {
	var sb strings.Builder
	for _, f := range p.fragments {
		if err := onFragment(f); err != nil {
			return "", err
		}
		sb.WriteString(f)
	}
	if p.err != nil {
		return "", p.err
	}
	return sb.String(), nil
}

type testEnv struct {
	srv         *httptest.Server
	client      *http.Client
	provider    *stubProvider
	historyPath string
	contextPath string
}

// newTestEnv starts a server. With requireKey set the provider factory
// refuses to build a provider until a session key is set.
func newTestEnv(t *testing.T, requireKey bool) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		provider:    &stubProvider{},
		historyPath: filepath.Join(dir, "chat_history.json"),
		contextPath: filepath.Join(dir, "chat_context.json"),
	}
	st := store.New(store.NewFileBackend(env.historyPath, env.contextPath), config.DefaultContext, nil)
	factory := func(apiKey string) (chatmem.Provider, error) {
		if requireKey && apiKey == "" {
			return nil, session.ErrNoAPIKey
		}
		return env.provider, nil
	}
	manager := session.NewManager(st, factory, !requireKey, nil)

	env.srv = httptest.NewServer(NewServer(manager, nil, nil).Handler())
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	env.client = &http.Client{Jar: jar, Timeout: 5 * time.Second}

	t.Cleanup(func() {
		env.client.CloseIdleConnections()
		env.srv.Close()
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) state(t *testing.T) stateView {
	t.Helper()
	resp := e.do(t, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view stateView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	return view
}

type sseEvent struct {
	name string
	data map[string]string
}

func readEvents(t *testing.T, resp *http.Response) []sseEvent {
	t.Helper()
	var events []sseEvent
	var current sseEvent
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &current.data))
		case line == "":
			if current.name != "" {
				events = append(events, current)
			}
			current = sseEvent{}
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ok"])
}

func TestIndexPage(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp = env.do(t, http.MethodGet, "/ui/app.js", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")

	resp = env.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestState_CreatesSessionCookie(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.do(t, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	first := env.state(t)
	second := env.state(t)
	assert.Equal(t, cookie.Value, first.SessionID)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, config.DefaultContext, first.Context)
	assert.Equal(t, "idle", first.State)
	assert.True(t, first.HasKey)
	assert.Empty(t, first.Messages)

	created, err := time.Parse(time.RFC3339, first.CreatedAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), created, time.Minute)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestChat_StreamsAndPersists(t *testing.T) {
	env := newTestEnv(t, false)
	env.provider.fragments = []string{"Remember that your name is Max. ", "The sky is **blue**."}

	resp := env.do(t, http.MethodPost, "/api/chat", `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(t, resp)
	require.Len(t, events, 3)
	assert.Equal(t, "delta", events[0].name)
	assert.Equal(t, "Remember that your name is Max. ", events[0].data["text"])
	assert.Equal(t, "delta", events[1].name)

	done := events[2]
	assert.Equal(t, "done", done.name)
	assert.Equal(t, "Remember that your name is Max. The sky is **blue**.", done.data["content"])
	assert.Contains(t, done.data["html"], "<strong>blue</strong>")
	assert.Equal(t, config.DefaultContext+"\nRemember that your name is Max", done.data["context"])

	view := env.state(t)
	require.Len(t, view.Messages, 2)
	assert.Equal(t, "user", view.Messages[0].Role)
	assert.Equal(t, "assistant", view.Messages[1].Role)

	_, err := os.Stat(env.historyPath)
	assert.NoError(t, err)
	_, err = os.Stat(env.contextPath)
	assert.NoError(t, err)
}

func TestChat_ErrorsBeforeStreaming(t *testing.T) {
	tests := []struct {
		name       string
		requireKey bool
		body       string
		want       int
	}{
		{name: "empty message", body: `{"message":"  "}`, want: http.StatusBadRequest},
		{name: "invalid json", body: `{`, want: http.StatusBadRequest},
		{name: "missing key", requireKey: true, body: `{"message":"hi"}`, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.requireKey)

			resp := env.do(t, http.MethodPost, "/api/chat", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, false, body["ok"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestChat_ProviderFailureMidStream(t *testing.T) {
	env := newTestEnv(t, false)
	env.provider.fragments = []string{"partial"}
	env.provider.err = errors.New("connection reset")

	resp := env.do(t, http.MethodPost, "/api/chat", `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := readEvents(t, resp)
	require.Len(t, events, 2)
	assert.Equal(t, "delta", events[0].name)
	assert.Equal(t, "error", events[1].name)
	assert.Contains(t, events[1].data["error"], "connection reset")

	_, err := os.Stat(env.historyPath)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, "idle", env.state(t).State)
}

func TestKey_EnablesChat(t *testing.T) {
	env := newTestEnv(t, true)
	env.provider.fragments = []string{"ok"}

	assert.False(t, env.state(t).HasKey)

	resp := env.do(t, http.MethodPost, "/api/key", `{"api_key":" sk-test "}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view stateView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.True(t, view.HasKey)

	resp = env.do(t, http.MethodPost, "/api/chat", `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	events := readEvents(t, resp)
	require.NotEmpty(t, events)
	assert.Equal(t, "done", events[len(events)-1].name)
}

func TestResetAndLoadHistory(t *testing.T) {
	env := newTestEnv(t, false)
	env.provider.fragments = []string{"hello"}

	resp := env.do(t, http.MethodPost, "/api/chat", `{"message":"hi"}`)
	readEvents(t, resp)
	historyBefore, err := os.ReadFile(env.historyPath)
	require.NoError(t, err)

	resp = env.do(t, http.MethodPost, "/api/reset", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view stateView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Empty(t, view.Messages)

	historyAfter, err := os.ReadFile(env.historyPath)
	require.NoError(t, err)
	assert.Equal(t, historyBefore, historyAfter)

	resp = env.do(t, http.MethodPost, "/api/history/load", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = stateView{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	require.Len(t, view.Messages, 2)
	assert.Equal(t, "hi", view.Messages[0].Content)
	assert.Equal(t, "hello", view.Messages[1].Content)
	assert.Contains(t, view.Messages[1].HTML, "<p>hello</p>")
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.do(t, http.MethodGet, "/api/chat", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{session.ErrEmptyPrompt, http.StatusBadRequest},
		{session.ErrNoAPIKey, http.StatusUnauthorized},
		{session.ErrBusy, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
	assert.Equal(t, http.StatusUnauthorized, statusFor(errors.Join(errors.New("creating provider"), session.ErrNoAPIKey)))
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	dir := t.TempDir()
	st := store.New(store.NewFileBackend(filepath.Join(dir, "h.json"), filepath.Join(dir, "c.json")), config.DefaultContext, nil)
	manager := session.NewManager(st, func(string) (chatmem.Provider, error) { return &stubProvider{}, nil }, true, nil)
	srv := NewServer(manager, nil, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	http.DefaultClient.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
