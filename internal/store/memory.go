package store

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	data      []byte
	list      [][]byte
	isList    bool
	expiresAt time.Time
}

func (e *memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Memory is an in-process Store with TTL support.
// It is safe for concurrent use.
type Memory struct {
	mu    sync.Mutex
	items map[string]*memEntry
	now   Clock
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithMemoryClock overrides the clock used for expiry (useful in tests).
func WithMemoryClock(c Clock) MemoryOption {
	return func(m *Memory) {
		if c != nil {
			m.now = c
		}
	}
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		items: make(map[string]*memEntry),
		now:   systemClock,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// lookup returns the live entry for key, dropping it if expired.
// Callers must hold m.mu.
func (m *Memory) lookup(key string) *memEntry {
	e, ok := m.items[key]
	if !ok {
		return nil
	}
	if e.expired(m.now()) {
		delete(m.items, key)
		return nil
	}
	return e
}

// Incr implements Counter.
func (m *Memory) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e != nil && e.isList {
		return 0, ErrWrongType
	}
	var cur []byte
	if e != nil {
		cur = append([]byte{}, e.data...)
	}
	n, err := nextCounter(cur)
	if err != nil {
		return 0, err
	}
	if e == nil {
		e = &memEntry{}
		m.items[key] = e
	}
	e.data = []byte(formatInt(n))
	return n, nil
}

// Set implements Store.
func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := &memEntry{data: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.items[key] = e
	return nil
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		return nil, ErrNotFound
	}
	if e.isList {
		return nil, ErrWrongType
	}
	return append([]byte(nil), e.data...), nil
}

// Exists implements Store. A key named twice is counted twice, as in Redis.
func (m *Memory) Exists(ctx context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, k := range keys {
		if m.lookup(k) != nil {
			n++
		}
	}
	return n, nil
}

// RPush implements Lister.
func (m *Memory) RPush(ctx context.Context, key string, values ...[]byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e != nil && !e.isList {
		return 0, ErrWrongType
	}
	if e == nil {
		e = &memEntry{isList: true}
		m.items[key] = e
	}
	for _, v := range values {
		e.list = append(e.list, append([]byte(nil), v...))
	}
	return int64(len(e.list)), nil
}

// LRange implements Lister.
func (m *Memory) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		return [][]byte{}, nil
	}
	if !e.isList {
		return nil, ErrWrongType
	}
	lo, hi, ok := listBounds(int64(len(e.list)), start, stop)
	if !ok {
		return [][]byte{}, nil
	}
	out := make([][]byte, 0, hi-lo)
	for _, v := range e.list[lo:hi] {
		out = append(out, append([]byte(nil), v...))
	}
	return out, nil
}

// FlushDB implements Store.
func (m *Memory) FlushDB(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*memEntry)
	return nil
}

// Close implements Store. The memory store holds no external resources.
func (m *Memory) Close() error {
	return nil
}

// Len returns the number of live keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for _, e := range m.items {
		if !e.expired(now) {
			n++
		}
	}
	return n
}
