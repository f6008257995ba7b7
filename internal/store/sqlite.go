package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on entries.expires_at
const currentSchemaVersion = 1

const (
	kindString = 0
	kindList   = 1
)

// SQLite is a durable Store backed by a single SQLite file.
// Uses WAL mode and a single connection, so writes are serialized.
type SQLite struct {
	db  *sql.DB
	now Clock
}

// SQLiteOption configures a SQLite store.
type SQLiteOption func(*SQLite)

// WithSQLiteClock overrides the clock used for expiry (useful in tests).
func WithSQLiteClock(c Clock) SQLiteOption {
	return func(s *SQLite) {
		if c != nil {
			s.now = c
		}
	}
}

// OpenSQLite creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement (list items cascade with their key)
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &SQLite{db: db, now: systemClock}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Incr implements Counter. An existing expiry is kept.
func (s *SQLite) Incr(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		kind, data, found, err := s.load(ctx, tx, key)
		if err != nil {
			return err
		}
		if found && kind != kindString {
			return ErrWrongType
		}
		if found && data == nil {
			data = []byte{}
		}
		n, err = nextCounter(data)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO entries (key, kind, value, expires_at)
			VALUES (?, 0, ?, NULL)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, []byte(formatInt(n)))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	return n, nil
}

// Set implements Store. Overwrites any existing value, list or string.
func (s *SQLite) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if value == nil {
		value = []byte{}
	}
	var expires sql.NullInt64
	if ttl > 0 {
		expires = sql.NullInt64{Int64: s.now().Add(ttl).UnixNano(), Valid: true}
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM list_items WHERE key = ?`, key); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entries (key, kind, value, expires_at)
			VALUES (?, 0, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				kind = 0,
				value = excluded.value,
				expires_at = excluded.expires_at
		`, key, value, expires)
		return err
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Get implements Store.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		kind, value, found, err := s.load(ctx, tx, key)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
		if kind != kindString {
			return ErrWrongType
		}
		data = value
		if data == nil {
			data = []byte{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

// Exists implements Store.
func (s *SQLite) Exists(ctx context.Context, keys ...string) (int64, error) {
	var n int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, key := range keys {
			_, _, found, err := s.load(ctx, tx, key)
			if err != nil {
				return err
			}
			if found {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("exists: %w", err)
	}
	return n, nil
}

// RPush implements Lister.
func (s *SQLite) RPush(ctx context.Context, key string, values ...[]byte) (int64, error) {
	var length int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		kind, _, found, err := s.load(ctx, tx, key)
		if err != nil {
			return err
		}
		if found && kind != kindList {
			return ErrWrongType
		}
		if !found {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO entries (key, kind, value, expires_at) VALUES (?, 1, NULL, NULL)
			`, key); err != nil {
				return err
			}
		}

		var next int64
		if err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(idx) + 1, 0) FROM list_items WHERE key = ?
		`, key).Scan(&next); err != nil {
			return err
		}
		for i, v := range values {
			if v == nil {
				v = []byte{}
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO list_items (key, idx, value) VALUES (?, ?, ?)
			`, key, next+int64(i), v); err != nil {
				return err
			}
		}
		length = next + int64(len(values))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("rpush %s: %w", key, err)
	}
	return length, nil
}

// LRange implements Lister.
func (s *SQLite) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	out := [][]byte{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		kind, _, found, err := s.load(ctx, tx, key)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		if kind != kindList {
			return ErrWrongType
		}

		var n int64
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM list_items WHERE key = ?
		`, key).Scan(&n); err != nil {
			return err
		}
		lo, hi, ok := listBounds(n, start, stop)
		if !ok {
			return nil
		}

		// Indices are dense from 0 because lists only grow at the tail.
		rows, err := tx.QueryContext(ctx, `
			SELECT value FROM list_items
			WHERE key = ? AND idx >= ? AND idx < ?
			ORDER BY idx ASC
		`, key, lo, hi)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var v []byte
			if err := rows.Scan(&v); err != nil {
				return err
			}
			if v == nil {
				v = []byte{}
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}
	return out, nil
}

// FlushDB implements Store.
func (s *SQLite) FlushDB(ctx context.Context) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM list_items`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM entries`)
		return err
	})
	if err != nil {
		return fmt.Errorf("flushdb: %w", err)
	}
	return nil
}

// load returns the kind and string value of key, expiring it first if its
// deadline has passed.
func (s *SQLite) load(ctx context.Context, tx *sql.Tx, key string) (kind int, value []byte, found bool, err error) {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM entries
		WHERE key = ? AND expires_at IS NOT NULL AND expires_at <= ?
	`, key, s.now().UnixNano()); err != nil {
		return 0, nil, false, err
	}

	err = tx.QueryRowContext(ctx, `
		SELECT kind, value FROM entries WHERE key = ?
	`, key).Scan(&kind, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, err
	}
	return kind, value, true, nil
}

// withTx runs fn in a transaction, committing only if fn succeeds.
func (s *SQLite) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 indexes expiry deadlines so lazy expiry stays cheap on large keyspaces.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_entries_expires_at
		ON entries(expires_at) WHERE expires_at IS NOT NULL
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *SQLite) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
