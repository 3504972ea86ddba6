package history

import (
	"context"
	"sync"
)

// MemoryKV is an in-memory KV backend, used when DATABASE_URL is not set and
// in tests.
type MemoryKV struct {
	mu   sync.RWMutex
	logs map[string][]Entry
}

// NewMemoryKV creates an empty in-memory backend.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{logs: make(map[string][]Entry)}
}

// Compile-time interface check
var _ KV = (*MemoryKV)(nil)

// Get returns a copy of the user's log; unknown keys yield an empty log.
func (m *MemoryKV) Get(ctx context.Context, userKey string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	log, ok := m.logs[userKey]
	if !ok {
		return []Entry{}, nil
	}
	out := make([]Entry, len(log))
	copy(out, log)
	return out, nil
}

// Set replaces the user's log with a copy of the given one.
func (m *MemoryKV) Set(ctx context.Context, userKey string, log []Entry) error {
	stored := make([]Entry, len(log))
	copy(stored, log)

	m.mu.Lock()
	m.logs[userKey] = stored
	m.mu.Unlock()
	return nil
}

// Delete removes the user's log. Unknown keys are a no-op.
func (m *MemoryKV) Delete(ctx context.Context, userKey string) error {
	m.mu.Lock()
	delete(m.logs, userKey)
	m.mu.Unlock()
	return nil
}
