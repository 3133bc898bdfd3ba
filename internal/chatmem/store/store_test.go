package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/longkey1/chatmem/internal/chatmem"
	"github.com/longkey1/chatmem/internal/chatmem/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendCase struct {
	name string
	open func(t *testing.T) Backend
}

func backends() []backendCase {
	return []backendCase{
		{
			name: "json",
			open: func(t *testing.T) Backend {
				dir := t.TempDir()
				return NewFileBackend(filepath.Join(dir, "chat_history.json"), filepath.Join(dir, "chat_context.json"))
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T) Backend {
				b, err := OpenSQLite(filepath.Join(t.TempDir(), "chatmem.db"))
				require.NoError(t, err)
				return b
			},
		},
	}
}

func TestStore_LoadMissingReturnsDefaults(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			s := New(bc.open(t), config.DefaultContext, nil)
			defer s.Close()

			history, err := s.LoadHistory()
			require.NoError(t, err)
			assert.NotNil(t, history)
			assert.Empty(t, history)

			ctx, err := s.LoadContext()
			require.NoError(t, err)
			assert.Equal(t, "You are a helpful assistant.", ctx)
		})
	}
}

func TestStore_HistoryRoundTrip(t *testing.T) {
	in := []chatmem.Message{
		{Role: chatmem.RoleUser, Content: "hi"},
		{Role: chatmem.RoleAssistant, Content: "hello <b>there</b> & welcome"},
		{Role: chatmem.RoleUser, Content: "again"},
	}

	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			s := New(bc.open(t), config.DefaultContext, nil)
			defer s.Close()

			require.NoError(t, s.SaveHistory(in))
			out, err := s.LoadHistory()
			require.NoError(t, err)
			if diff := cmp.Diff(in, out); diff != "" {
				t.Fatalf("history mismatch (-want +got):\n%s", diff)
			}

			// Saving overwrites rather than appends.
			require.NoError(t, s.SaveHistory(in[:1]))
			out, err = s.LoadHistory()
			require.NoError(t, err)
			assert.Len(t, out, 1)
		})
	}
}

func TestStore_ContextRoundTrip(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			s := New(bc.open(t), config.DefaultContext, nil)
			defer s.Close()

			want := "You are a helpful assistant.\nRemember that your name is Max"
			require.NoError(t, s.SaveContext(want))
			got, err := s.LoadContext()
			require.NoError(t, err)
			assert.Equal(t, want, got)

			// An explicitly saved empty context is not replaced by the default.
			require.NoError(t, s.SaveContext(""))
			got, err = s.LoadContext()
			require.NoError(t, err)
			assert.Equal(t, "", got)
		})
	}
}

func TestFileBackend_FileFormat(t *testing.T) {
	dir := t.TempDir()
	historyPath := filepath.Join(dir, "chat_history.json")
	contextPath := filepath.Join(dir, "chat_context.json")
	s := New(NewFileBackend(historyPath, contextPath), config.DefaultContext, nil)

	require.NoError(t, s.SaveHistory([]chatmem.Message{{Role: chatmem.RoleUser, Content: "hi"}}))
	require.NoError(t, s.SaveContext("ctx"))

	data, err := os.ReadFile(historyPath)
	require.NoError(t, err)
	assert.Equal(t, "[\n    {\n        \"role\": \"user\",\n        \"content\": \"hi\"\n    }\n]", string(data))

	data, err = os.ReadFile(contextPath)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"context\": \"ctx\"\n}", string(data))
}

func TestFileBackend_ContextWithoutKey(t *testing.T) {
	dir := t.TempDir()
	contextPath := filepath.Join(dir, "chat_context.json")
	require.NoError(t, os.WriteFile(contextPath, []byte(`{"other": 1}`), 0644))

	s := New(NewFileBackend(filepath.Join(dir, "h.json"), contextPath), config.DefaultContext, nil)
	got, err := s.LoadContext()
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestFileBackend_InvalidJSONPropagates(t *testing.T) {
	dir := t.TempDir()
	historyPath := filepath.Join(dir, "chat_history.json")
	contextPath := filepath.Join(dir, "chat_context.json")
	require.NoError(t, os.WriteFile(historyPath, []byte("{oops"), 0644))
	require.NoError(t, os.WriteFile(contextPath, []byte("[1, 2"), 0644))

	s := New(NewFileBackend(historyPath, contextPath), config.DefaultContext, nil)

	_, err := s.LoadHistory()
	assert.Error(t, err)
	_, err = s.LoadContext()
	assert.Error(t, err)
}

func TestStore_LoadHistoryRejectsUnknownRole(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			backend := bc.open(t)
			body := []byte(`[{"role": "user", "content": "hi"}, {"role": "bot", "content": "hello"}]`)
			require.NoError(t, backend.Write(HistoryKey, body))

			s := New(backend, config.DefaultContext, nil)
			defer s.Close()

			history, err := s.LoadHistory()
			require.Error(t, err)
			assert.Nil(t, history)
			assert.Contains(t, err.Error(), "message 1")
			assert.Contains(t, err.Error(), `"bot"`)
		})
	}
}

func TestFileBackend_Path(t *testing.T) {
	b := NewFileBackend("/tmp/h.json", "/tmp/c.json")
	assert.Equal(t, "/tmp/h.json", b.Path(HistoryKey))
	assert.Equal(t, "/tmp/c.json", b.Path(ContextKey))
	assert.Equal(t, "", b.Path("other"))
}

func TestFileBackend_ReadErrorOtherThanMissing(t *testing.T) {
	dir := t.TempDir()
	// A directory where a file is expected is a read error, not "not found".
	historyPath := filepath.Join(dir, "history")
	require.NoError(t, os.Mkdir(historyPath, 0755))

	s := New(NewFileBackend(historyPath, filepath.Join(dir, "c.json")), config.DefaultContext, nil)
	_, err := s.LoadHistory()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	cfg := config.NewDefaultConfig(dir)
	cfg.HistoryFile = filepath.Join(dir, "h.json")
	cfg.ContextFile = filepath.Join(dir, "c.json")
	cfg.SQLiteFile = filepath.Join(dir, "chatmem.db")

	for _, kind := range []string{config.StoreJSON, config.StoreSQLite} {
		t.Run(kind, func(t *testing.T) {
			cfg.Store = kind
			s, err := OpenWithDefault(cfg, "You are a pirate.", nil)
			require.NoError(t, err)
			defer s.Close()

			got, err := s.LoadContext()
			require.NoError(t, err)
			assert.Equal(t, "You are a pirate.", got)
		})
	}

	cfg.Store = "redis"
	_, err := Open(cfg, nil)
	assert.Error(t, err)
}
