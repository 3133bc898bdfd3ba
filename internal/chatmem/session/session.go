// Package session holds the per-browser conversation state and drives one
// chat turn at a time: send the context plus messages to the provider,
// relay the streamed reply, then persist the turn and any extracted context.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/longkey1/chatmem/internal/chatmem"
	"github.com/longkey1/chatmem/internal/chatmem/extract"
	"go.uber.org/zap"
)

var (
	// ErrBusy is returned when a turn is already streaming for the session.
	ErrBusy = errors.New("session is awaiting a response")

	// ErrEmptyPrompt is returned for blank user input.
	ErrEmptyPrompt = errors.New("message is empty")

	// ErrNoAPIKey is returned by a ProviderFactory when neither the session
	// nor the configuration supplies a credential.
	ErrNoAPIKey = errors.New("no API key configured")
)

// State is the turn state of a session.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingResponse State = "awaiting-response"
)

// Store is the persistence a session needs.
type Store interface {
	LoadHistory() ([]chatmem.Message, error)
	SaveHistory(history []chatmem.Message) error
	LoadContext() (string, error)
	SaveContext(context string) error
}

// ProviderFactory builds a provider for the given per-session API key.
// An empty key means "use the configured token".
type ProviderFactory func(apiKey string) (chatmem.Provider, error)

// Session represents one UI conversation
type Session struct {
	ID        string
	CreatedAt time.Time

	store       Store
	newProvider ProviderFactory
	defaultKey  bool
	logger      *zap.Logger

	mu          sync.Mutex
	state       State
	messages    []chatmem.Message
	fullHistory []chatmem.Message
	context     string
	apiKey      string
}

// Snapshot is a point-in-time copy of a session's visible state.
type Snapshot struct {
	ID        string            `json:"session_id"`
	CreatedAt time.Time         `json:"created_at"`
	State     State             `json:"state"`
	HasAPIKey bool              `json:"has_key"`
	Context   string            `json:"context"`
	Messages  []chatmem.Message `json:"messages"`
}

// New creates a session, loading the persisted history and context.
// defaultKey reports whether the configuration already carries a token, in
// which case the user is not asked for one.
func New(store Store, newProvider ProviderFactory, defaultKey bool, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	history, err := store.LoadHistory()
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	ctx, err := store.LoadContext()
	if err != nil {
		return nil, fmt.Errorf("loading context: %w", err)
	}

	id := uuid.New().String()
	return &Session{
		ID:          id,
		CreatedAt:   time.Now(),
		store:       store,
		newProvider: newProvider,
		defaultKey:  defaultKey,
		logger:      logger.With(zap.String("session", shortID(id))),
		state:       StateIdle,
		messages:    []chatmem.Message{},
		fullHistory: history,
		context:     ctx,
	}, nil
}

// GetShortID returns the shortened session ID (first 8 characters)
func (s *Session) GetShortID() string {
	return shortID(s.ID)
}

// SetAPIKey stores a credential for this session only. It is never persisted.
func (s *Session) SetAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = strings.TrimSpace(key)
	s.logger.Debug("api key updated", zap.Bool("present", s.apiKey != ""))
}

// Snapshot returns a copy of the session's messages, context and state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		State:     s.state,
		HasAPIKey: s.apiKey != "" || s.defaultKey,
		Context:   s.context,
		Messages:  chatmem.CloneMessages(s.messages),
	}
}

// LoadPrevious replaces the in-memory messages with the history that was
// persisted when the session started, plus the turns taken since.
func (s *Session) LoadPrevious() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrBusy
	}
	s.messages = chatmem.CloneMessages(s.fullHistory)
	s.logger.Debug("loaded previous chats", zap.Int("messages", len(s.messages)))
	return nil
}

// Reset clears the in-memory messages. The persisted history and context are
// left untouched.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrBusy
	}
	s.messages = []chatmem.Message{}
	s.logger.Debug("session reset")
	return nil
}

// Submit runs one chat turn. Every streamed fragment is passed to
// onFragment as it arrives. On success the full reply is returned and the
// turn is persisted; on failure nothing is persisted and the user message
// stays in the in-memory conversation.
func (s *Session) Submit(ctx context.Context, prompt string, onFragment func(string) error) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	// idle -> awaiting-response
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return "", ErrBusy
	}
	provider, err := s.newProvider(s.apiKey)
	if err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("creating provider: %w", err)
	}
	s.state = StateAwaitingResponse
	s.messages = append(s.messages, chatmem.Message{Role: chatmem.RoleUser, Content: prompt})
	systemPrompt := s.context
	request := chatmem.CloneMessages(s.messages)
	s.mu.Unlock()

	s.logger.Info("sending message", zap.Int("messages", len(request)))
	start := time.Now()

	if onFragment == nil {
		onFragment = func(string) error { return nil }
	}
	response, err := provider.StreamChat(ctx, systemPrompt, request, onFragment)

	// awaiting-response -> idle
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle

	if err != nil {
		s.logger.Warn("chat request failed", zap.Error(err))
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	s.logger.Info("received response",
		zap.Int("chars", len(response)),
		zap.Duration("elapsed", time.Since(start)))

	s.messages = append(s.messages, chatmem.Message{Role: chatmem.RoleAssistant, Content: response})

	if updated, changed := extract.Append(s.context, response); changed {
		s.context = updated
		if err := s.store.SaveContext(s.context); err != nil {
			return response, fmt.Errorf("saving context: %w", err)
		}
		s.logger.Debug("context extended", zap.Int("bytes", len(s.context)))
	}

	s.fullHistory = append(s.fullHistory,
		chatmem.Message{Role: chatmem.RoleUser, Content: prompt},
		chatmem.Message{Role: chatmem.RoleAssistant, Content: response},
	)
	if err := s.store.SaveHistory(s.fullHistory); err != nil {
		return response, fmt.Errorf("saving history: %w", err)
	}

	return response, nil
}

func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
