// Package web serves the browser chat UI and its JSON/SSE API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/longkey1/chatmem/internal/chatmem/session"
	"github.com/longkey1/chatmem/internal/render"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SessionCookie carries the browser's session ID.
const SessionCookie = "chatmem_session"

const shutdownTimeout = 5 * time.Second

// Server is the HTTP transport for chat sessions.
type Server struct {
	sessions *session.Manager
	html     *render.HTML
	logger   *zap.Logger
}

// NewServer creates a Server backed by sessions.
func NewServer(sessions *session.Manager, html *render.HTML, logger *zap.Logger) *Server {
	if html == nil {
		html = render.NewHTML()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		sessions: sessions,
		html:     html,
		logger:   logger,
	}
}

// Handler returns the routes of the UI and API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":       true,
			"time":     time.Now().UTC().Format(time.RFC3339Nano),
			"sessions": s.sessions.Len(),
		})
	})

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/key", s.handleKey)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/history/load", s.handleLoadHistory)
	mux.HandleFunc("POST /api/reset", s.handleReset)

	registerUI(mux)
	return mux
}

// Run listens on addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("serving chat UI", zap.String("addr", "http://"+ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

////////////////////////////////////////////////////////////////////////////////
// Handlers
////////////////////////////////////////////////////////////////////////////////

type messageView struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	HTML    string `json:"html"`
}

type stateView struct {
	OK        bool          `json:"ok"`
	SessionID string        `json:"session_id"`
	CreatedAt string        `json:"created_at"`
	HasKey    bool          `json:"has_key"`
	State     string        `json:"state"`
	Context   string        `json:"context"`
	Messages  []messageView `json:"messages"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeState(w, sess)
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		APIKey string `json:"api_key"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.SetAPIKey(body.APIKey)
	s.writeState(w, sess)
}

func (s *Server) handleLoadHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.LoadPrevious(); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.writeState(w, sess)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Reset(); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.writeState(w, sess)
}

// handleChat runs one turn and streams it back as server-sent events.
// Failures before the first event are answered with a JSON error instead.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	events := newEventWriter(w)
	response, err := sess.Submit(r.Context(), body.Message, func(fragment string) error {
		return events.Send("delta", map[string]string{"text": fragment})
	})
	if err != nil {
		s.logger.Warn("chat turn failed", zap.String("session", sess.GetShortID()), zap.Error(err))
		if !events.Started() {
			writeError(w, statusFor(err), err)
			return
		}
		_ = events.Send("error", map[string]string{"error": err.Error()})
		return
	}

	html, err := s.html.Render(response)
	if err != nil {
		s.logger.Warn("rendering response failed", zap.Error(err))
	}
	_ = events.Send("done", map[string]string{
		"content": response,
		"html":    html,
		"context": sess.Snapshot().Context,
	})
}

// session resolves the caller's session from the cookie, creating one when
// the cookie is missing or unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}

	sess, created, err := s.sessions.GetOrCreate(id)
	if err != nil {
		s.logger.Error("creating session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess, true
}

func (s *Server) writeState(w http.ResponseWriter, sess *session.Session) {
	snap := sess.Snapshot()
	view := stateView{
		OK:        true,
		SessionID: snap.ID,
		CreatedAt: snap.CreatedAt.UTC().Format(time.RFC3339),
		HasKey:    snap.HasAPIKey,
		State:     string(snap.State),
		Context:   snap.Context,
		Messages:  make([]messageView, 0, len(snap.Messages)),
	}
	for _, msg := range snap.Messages {
		html, err := s.html.Render(msg.Content)
		if err != nil {
			s.logger.Warn("rendering message failed", zap.Error(err))
		}
		view.Messages = append(view.Messages, messageView{
			Role:    string(msg.Role),
			Content: msg.Content,
			HTML:    html,
		})
	}
	writeJSON(w, http.StatusOK, view)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrEmptyPrompt):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNoAPIKey):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

////////////////////////////////////////////////////////////////////////////////
// Helpers
////////////////////////////////////////////////////////////////////////////////

func readJSON(r *http.Request, dst any) error {
	if r == nil || r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	defer r.Body.Close()

	const maxBytes = 1_000_000
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return fmt.Errorf("failed reading request body: %w", err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		b = []byte("{}")
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	b, err := json.Marshal(v)
	if err != nil {
		_, _ = w.Write([]byte(`{"ok":false,"error":"failed to marshal json"}`))
		return
	}
	_, _ = w.Write(append(b, '\n'))
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"ok": false, "error": err.Error()})
}
