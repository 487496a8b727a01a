package session

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory implementation of Store. Used in tests and
// as the fallback when no database is configured; sessions do not survive
// a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
	}
}

// Save creates or replaces the session for its key.
func (m *MemoryStore) Save(_ context.Context, sess *Session) error {
	if sess.Key == "" {
		return fmt.Errorf("session key is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Stored by value so later mutations of the caller's struct don't leak in.
	m.sessions[sess.Key] = *sess
	return nil
}

// Get retrieves a session by key.
func (m *MemoryStore) Get(_ context.Context, key string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[key]
	if !ok {
		return nil, fmt.Errorf("key %q: %w", key, ErrNotFound)
	}

	copied := sess
	return &copied, nil
}

// Delete removes a session. Absent keys are not an error.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, key)
	return nil
}
