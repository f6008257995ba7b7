// Package cache stores scalar values under random keys and reads them back.
//
// Every Store call is instrumented: the store keeps a call counter and the
// input/output history for the operation named StoreOp, which Replay prints.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/kvcache/internal/instrument"
	"github.com/roach88/kvcache/internal/store"
)

// StoreOp is the qualified name Store calls are counted and recorded under.
const StoreOp = "Cache.Store"

// Cache is the store facade.
type Cache struct {
	st         store.Store
	keys       KeyGenerator
	instrument bool
	storeFn    instrument.Func[any, string]
}

// Option configures a Cache.
type Option func(*Cache)

// WithKeyGenerator overrides how keys are generated (tests use fixed keys).
func WithKeyGenerator(g KeyGenerator) Option {
	return func(c *Cache) {
		if g != nil {
			c.keys = g
		}
	}
}

// WithoutInstrumentation disables call counting and history for Store.
func WithoutInstrumentation() Option {
	return func(c *Cache) {
		c.instrument = false
	}
}

// New builds a Cache over st and flushes the whole database first.
//
// The flush is a deliberate clean slate: do not point a Cache at a shared
// store database.
func New(ctx context.Context, st store.Store, opts ...Option) (*Cache, error) {
	if st == nil {
		return nil, errors.New("cache: store is nil")
	}
	c := &Cache{
		st:         st,
		keys:       UUIDGenerator{},
		instrument: true,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := st.FlushDB(ctx); err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	slog.Debug("store flushed")

	c.storeFn = c.store
	if c.instrument {
		c.storeFn = instrument.CallHistory(st, StoreOp, instrument.CountCalls(st, StoreOp, c.storeFn))
	}
	return c, nil
}

// Store writes value under a new random key and returns the key.
// Accepts strings, byte slices, integers, floats, and booleans.
func (c *Cache) Store(ctx context.Context, value any) (string, error) {
	return c.storeFn(ctx, value)
}

func (c *Cache) store(ctx context.Context, value any) (string, error) {
	data, err := store.Encode(value)
	if err != nil {
		return "", fmt.Errorf("cache: %w", err)
	}
	key := c.keys.Generate()
	if err := c.st.Set(ctx, key, data, 0); err != nil {
		return "", fmt.Errorf("cache: %w", err)
	}
	slog.Debug("value stored", "key", key, "bytes", len(data))
	return key, nil
}

// Get returns the raw bytes stored under key, or nil if key is absent.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.st.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return data, nil
}

// GetStr returns the value under key as text.
func (c *Cache) GetStr(ctx context.Context, key string) (string, error) {
	return GetAs(ctx, c, key, String)
}

// GetInt returns the value under key as an integer.
func (c *Cache) GetInt(ctx context.Context, key string) (int64, error) {
	return GetAs(ctx, c, key, Int)
}

// GetFloat returns the value under key as a float.
func (c *Cache) GetFloat(ctx context.Context, key string) (float64, error) {
	return GetAs(ctx, c, key, Float)
}

// Replay prints the recorded history of Store to w.
func (c *Cache) Replay(ctx context.Context, w io.Writer) error {
	return instrument.Replay(ctx, w, c.st, StoreOp)
}

// GetAs reads key and applies dec to the raw value.
// An absent key returns store.ErrNotFound.
func GetAs[T any](ctx context.Context, c *Cache, key string, dec Decoder[T]) (T, error) {
	return Lookup(ctx, c.st, key, dec)
}

// Lookup reads key straight from a store handle and decodes it, without the
// flush that constructing a Cache performs.
func Lookup[T any](ctx context.Context, st store.Store, key string, dec Decoder[T]) (T, error) {
	var zero T
	data, err := st.Get(ctx, key)
	if err != nil {
		return zero, fmt.Errorf("cache: %w", err)
	}
	v, err := dec(data)
	if err != nil {
		return zero, fmt.Errorf("cache: key %s: %w", key, err)
	}
	return v, nil
}
