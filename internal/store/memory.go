package store

import (
	"context"
	"sync"
	"time"
)

// Memory is a single-process Store. Slow watchers miss changes rather than
// block writers.
type Memory struct {
	mu       sync.Mutex
	data     map[string]memoryEntry
	watchers map[string]map[chan Change]struct{}
	now      func() time.Time
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

func NewMemory() *Memory {
	return &Memory{
		data:     make(map[string]memoryEntry),
		watchers: make(map[string]map[chan Change]struct{}),
		now:      time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.data, key)
		return nil, nil
	}
	return clone(e.value), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: clone(value)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.data[key] = e
	m.notify(Change{Key: key, Value: clone(value)})
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	m.notify(Change{Key: key})
	return nil
}

func (m *Memory) Watch(ctx context.Context, key string) (<-chan Change, error) {
	ch := make(chan Change, watchBuffer)

	m.mu.Lock()
	if m.watchers[key] == nil {
		m.watchers[key] = make(map[chan Change]struct{})
	}
	m.watchers[key][ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.watchers[key], ch)
		if len(m.watchers[key]) == 0 {
			delete(m.watchers, key)
		}
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}

// notify must be called with mu held.
func (m *Memory) notify(c Change) {
	for ch := range m.watchers[c.Key] {
		select {
		case ch <- c:
		default:
		}
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
