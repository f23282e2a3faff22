package lock

import (
	"context"
	"sync"
)

// Memory is an in-process Locker. Each key is a one-slot semaphore so that
// waiting can be abandoned when the context ends.
type Memory struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

var _ Locker = (*Memory)(nil)

// NewMemory creates an empty in-process locker
func NewMemory() *Memory {
	return &Memory{slots: make(map[string]*slot)}
}

func (m *Memory) ref(key string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	return s
}

func (m *Memory) unref(key string, s *slot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
}

func (m *Memory) release(key string, s *slot) Release {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			m.unref(key, s)
		})
	}
}

// Acquire blocks until key is free or ctx is done
func (m *Memory) Acquire(ctx context.Context, key string) (Release, error) {
	s := m.ref(key)
	select {
	case s.ch <- struct{}{}:
		return m.release(key, s), nil
	case <-ctx.Done():
		m.unref(key, s)
		return nil, ctx.Err()
	}
}

// TryAcquire takes key only if nobody holds it
func (m *Memory) TryAcquire(_ context.Context, key string) (Release, bool, error) {
	s := m.ref(key)
	select {
	case s.ch <- struct{}{}:
		return m.release(key, s), true, nil
	default:
		m.unref(key, s)
		return nil, false, nil
	}
}
