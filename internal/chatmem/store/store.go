// Package store persists the conversation log and the context string.
//
// Both values are kept as whole JSON documents that are rewritten in full on
// every save. Nothing coordinates concurrent writers: two sessions saving the
// same document race and the last write wins.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/longkey1/chatmem/internal/chatmem"
	"go.uber.org/zap"
)

// ErrNotFound is returned by a Backend when a document has never been written.
var ErrNotFound = errors.New("document not found")

// Document keys
const (
	HistoryKey = "history"
	ContextKey = "context"
)

// Backend reads and writes raw documents by key.
type Backend interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
	Close() error
}

// contextDocument is the on-disk shape of the context document.
type contextDocument struct {
	Context string `json:"context"`
}

// Store loads and saves the conversation log and context string.
type Store struct {
	backend        Backend
	defaultContext string
	logger         *zap.Logger
}

// New creates a Store on top of backend. defaultContext is returned by
// LoadContext when no context document exists.
func New(backend Backend, defaultContext string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend:        backend,
		defaultContext: defaultContext,
		logger:         logger,
	}
}

// LoadHistory returns the saved conversation log, or an empty log if none
// was saved yet.
func (s *Store) LoadHistory() ([]chatmem.Message, error) {
	data, err := s.backend.Read(HistoryKey)
	if errors.Is(err, ErrNotFound) {
		s.logger.Debug("no saved history, starting empty")
		return []chatmem.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	var history []chatmem.Message
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	for i, msg := range history {
		if _, err := chatmem.ParseRole(string(msg.Role)); err != nil {
			return nil, fmt.Errorf("failed to parse history: message %d: %w", i, err)
		}
	}
	if history == nil {
		history = []chatmem.Message{}
	}
	return history, nil
}

// SaveHistory overwrites the conversation log.
func (s *Store) SaveHistory(history []chatmem.Message) error {
	if history == nil {
		history = []chatmem.Message{}
	}
	data, err := marshalIndent(history)
	if err != nil {
		return fmt.Errorf("failed to serialize history: %w", err)
	}
	if err := s.backend.Write(HistoryKey, data); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	s.logger.Debug("saved history", zap.Int("messages", len(history)))
	return nil
}

// LoadContext returns the saved context string. If no context document
// exists the default instruction is returned; a document without a
// "context" field yields "".
func (s *Store) LoadContext() (string, error) {
	data, err := s.backend.Read(ContextKey)
	if errors.Is(err, ErrNotFound) {
		s.logger.Debug("no saved context, using default")
		return s.defaultContext, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read context: %w", err)
	}

	var doc contextDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("failed to parse context: %w", err)
	}
	return doc.Context, nil
}

// SaveContext overwrites the context document.
func (s *Store) SaveContext(context string) error {
	data, err := marshalIndent(contextDocument{Context: context})
	if err != nil {
		return fmt.Errorf("failed to serialize context: %w", err)
	}
	if err := s.backend.Write(ContextKey, data); err != nil {
		return fmt.Errorf("failed to write context: %w", err)
	}
	s.logger.Debug("saved context", zap.Int("bytes", len(context)))
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// marshalIndent encodes v with a 4-space indent and without HTML escaping so
// the files stay readable.
func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
