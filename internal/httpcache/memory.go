package httpcache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// MemoryBackend is an in-process LRU cache with per-entry expiry.
type MemoryBackend struct {
	mu         sync.Mutex
	clock      clockwork.Clock
	maxEntries int
	order      *list.List // front is most recently used
	entries    map[string]*list.Element
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// NewMemoryBackend creates a cache holding at most maxEntries responses.
// A nil clock uses real time.
func NewMemoryBackend(maxEntries int, clock clockwork.Clock) *MemoryBackend {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &MemoryBackend{
		clock:      clock,
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	it := e.Value.(*memoryEntry)
	if !m.clock.Now().Before(it.expiresAt) {
		m.order.Remove(e)
		delete(m.entries, key)
		return nil, false, nil
	}
	m.order.MoveToFront(e)
	return it.value, true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt := m.clock.Now().Add(ttl)
	if e, ok := m.entries[key]; ok {
		it := e.Value.(*memoryEntry)
		it.value = value
		it.expiresAt = expiresAt
		m.order.MoveToFront(e)
		return nil
	}

	m.entries[key] = m.order.PushFront(&memoryEntry{key: key, value: value, expiresAt: expiresAt})
	for m.order.Len() > m.maxEntries {
		oldest := m.order.Back()
		delete(m.entries, oldest.Value.(*memoryEntry).key)
		m.order.Remove(oldest)
	}
	return nil
}

// Len returns the number of entries currently held, expired or not.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
