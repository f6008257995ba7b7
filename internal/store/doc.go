// Package store provides the key-value store handle used by the cache, the
// instrumentation middleware, and the page fetcher.
//
// The Store interface is a narrow slice of the Redis command set:
//   - Strings: SET (with optional TTL), GET, INCR
//   - Lists: RPUSH, LRANGE
//   - Keyspace: EXISTS, FLUSHDB
//
// # Backends
//
//   - Redis: go-redis v9 client against a real server (the default)
//   - SQLite: single-file durable store with lazy expiry
//   - Memory: in-process maps with TTL, used by tests and one-shot CLI runs
//
// All backends share Redis semantics: SET overwrites any type and resets the TTL,
// INCR keeps it, list commands on a string key fail with ErrWrongType, and a
// missing key reads as ErrNotFound.
//
// # Value Encoding
//
// Values reach a backend as raw bytes. Encode converts the scalar types accepted
// by callers (strings, byte slices, integers, floats, booleans) the same way Redis
// clients do, so a value written through one backend reads back identically
// through another.
package store
