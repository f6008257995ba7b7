package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key is missing or expired.
	ErrNotFound = errors.New("store: key not found")
	// ErrWrongType is returned when a command targets a key holding the other kind of value.
	ErrWrongType = errors.New("store: operation against a key holding the wrong kind of value")
	// ErrNotInteger is returned by Incr when the stored value is not a base-10 integer.
	ErrNotInteger = errors.New("store: value is not an integer or out of range")
	// ErrUnsupportedValue is returned by Encode for types that have no wire form.
	ErrUnsupportedValue = errors.New("store: unsupported value type")
)

// Counter increments integer counters.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
}

// Lister appends to and reads ordered lists.
type Lister interface {
	RPush(ctx context.Context, key string, values ...[]byte) (int64, error)
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
}

// Store is the key-value handle every component receives explicitly.
type Store interface {
	Counter
	Lister

	// Set stores value under key. A zero ttl means the key never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Exists reports how many of the given keys exist.
	Exists(ctx context.Context, keys ...string) (int64, error)

	// FlushDB removes every key in the current database.
	FlushDB(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

// Clock returns the current wall time. Backends that track expiry accept one
// so tests can move time forward without sleeping.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now()
}

// listBounds converts Redis LRANGE indices into a half-open [lo, hi) slice range
// over a list of length n. Negative indices count from the tail.
func listBounds(n, start, stop int64) (lo, hi int64, ok bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop + 1, true
}
