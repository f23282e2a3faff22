package statestore

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	Entry
	expiresAt time.Time
}

// Memory is a process-local Store. Expired entries are swept on every Put.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory creates an in-memory store
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{ttl: ttl, entries: make(map[string]memoryEntry), now: time.Now}
}

// SetClock overrides the time source. Used by tests.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Put(_ context.Context, state string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	m.entries[state] = memoryEntry{Entry: entry, expiresAt: entry.CreatedAt.Add(m.ttl)}
	return nil
}

func (m *Memory) Consume(_ context.Context, state string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[state]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.entries, state)
	if !m.now().Before(e.expiresAt) {
		return nil, ErrNotFound
	}
	entry := e.Entry
	return &entry, nil
}

// Len returns the number of pending states
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
