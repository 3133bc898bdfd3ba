package session

import (
	"sync"

	"go.uber.org/zap"
)

// Manager owns the live sessions of a running server, keyed by session ID.
// Sessions live for the lifetime of the process.
type Manager struct {
	store       Store
	newProvider ProviderFactory
	defaultKey  bool
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. defaultKey reports whether the configuration
// supplies an API token.
func NewManager(store Store, newProvider ProviderFactory, defaultKey bool, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:       store,
		newProvider: newProvider,
		defaultKey:  defaultKey,
		logger:      logger,
		sessions:    make(map[string]*Session),
	}
}

// Create starts a new session from the persisted history and context.
func (m *Manager) Create() (*Session, error) {
	sess, err := New(m.store, m.newProvider, m.defaultKey, m.logger)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	m.logger.Info("session created",
		zap.String("session", sess.GetShortID()),
		zap.Time("created_at", sess.CreatedAt))
	return sess, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// GetOrCreate returns the session with the given ID, or a new one if the ID
// is unknown. The second result reports whether a session was created.
func (m *Manager) GetOrCreate(id string) (*Session, bool, error) {
	if id != "" {
		if sess, ok := m.Get(id); ok {
			return sess, false, nil
		}
	}
	sess, err := m.Create()
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
