package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/roach88/kvcache/internal/testutil"
)

// backend bundles a Store with a way to move its notion of time forward.
type backend struct {
	name    string
	store   Store
	advance func(d time.Duration)
}

// createTestSQLite creates a new file-backed SQLite store for testing.
func createTestSQLite(t *testing.T, opts ...SQLiteOption) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQLite(path, opts...)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// allBackends returns one fresh instance of every backend.
// Redis runs against an in-process miniredis server.
func allBackends(t *testing.T) []backend {
	t.Helper()

	memClock := testutil.NewFakeClock(time.Time{})
	mem := NewMemory(WithMemoryClock(memClock.Now))

	sqlClock := testutil.NewFakeClock(time.Time{})
	lite := createTestSQLite(t, WithSQLiteClock(sqlClock.Now))

	mr := miniredis.RunT(t)
	rdb := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { rdb.Close() })

	return []backend{
		{name: "memory", store: mem, advance: func(d time.Duration) { memClock.Advance(d) }},
		{name: "sqlite", store: lite, advance: func(d time.Duration) { sqlClock.Advance(d) }},
		{name: "redis", store: rdb, advance: mr.FastForward},
	}
}

// forEachBackend runs fn as a subtest against every backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, b backend)) {
	t.Helper()
	for _, b := range allBackends(t) {
		b := b
		t.Run(b.name, func(t *testing.T) {
			fn(t, b)
		})
	}
}
