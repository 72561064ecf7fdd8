package taleweave

import "sync"

// SessionStore persists session state between requests and across restarts.
// Saves happen only after a turn settles, never mid-generation, so a
// restored session is always in a resumable phase.
type SessionStore interface {
	Save(state SessionState) error
	Load(id string) (SessionState, bool, error)
	Delete(id string) error
}

// MemoryStore keeps sessions in-process. Used by tests and the CLI, where
// durability across restarts does not matter.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]SessionState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]SessionState)}
}

func (m *MemoryStore) Save(state SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[state.ID] = state
	return nil
}

func (m *MemoryStore) Load(id string) (SessionState, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.sessions[id]
	return state, ok, nil
}

func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
