// Package sqlitestore implements cache.Cache on a single SQLite table using
// the pure-Go modernc.org/sqlite driver.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jonwraymond/breadcrumb/cache"
	"github.com/jonwraymond/breadcrumb/observe"
	"github.com/jonwraymond/breadcrumb/resilience"
)

// ErrPathRequired indicates an empty database path.
var ErrPathRequired = errors.New("sqlitestore: path is required")

const schemaSQL = `CREATE TABLE IF NOT EXISTS breadcrumb_cache (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    expires_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS breadcrumb_cache_expires ON breadcrumb_cache (expires_at)
    WHERE expires_at > 0;`

const (
	getSQL = `SELECT value FROM breadcrumb_cache
WHERE key = ? AND (expires_at = 0 OR expires_at > ?)`

	upsertSQL = `INSERT INTO breadcrumb_cache (key, value, expires_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`

	deleteSQL = `DELETE FROM breadcrumb_cache WHERE key = ?`

	scanSQL = `SELECT key, value FROM breadcrumb_cache
WHERE (? = 0 OR substr(CAST(key AS BLOB), 1, ?) = ?) AND (expires_at = 0 OR expires_at > ?)
ORDER BY key`

	purgeSQL = `DELETE FROM breadcrumb_cache WHERE expires_at > 0 AND expires_at <= ?`
)

// Config holds configuration for a SQLite-backed store.
type Config struct {
	// Path is the database file. The parent directory is created if needed.
	Path string

	// BusyTimeout is how long SQLite itself waits on a locked database.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// Retry re-runs statements that still fail with SQLITE_BUSY or
	// SQLITE_LOCKED. Zero MaxAttempts uses resilience defaults.
	Retry resilience.RetryConfig

	// Logger receives retry notices. Nil discards them.
	Logger observe.Logger
}

// Store is a cache.Cache backed by SQLite.
type Store struct {
	db     *sql.DB
	retry  *resilience.Retry
	logger observe.Logger
}

// Open opens (creating if needed) the database at cfg.Path and ensures the
// cache table exists. Expired rows are purged on open.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, ErrPathRequired
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("sqlitestore: create directory %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: create schema: %w", err)
	}

	rc := cfg.Retry
	rc.RetryIf = IsBusy
	userOnRetry := rc.OnRetry
	rc.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Debug(context.Background(), "sqlite busy, retrying",
			observe.Field{Key: "attempt", Value: attempt},
			observe.Field{Key: "delay_ms", Value: delay.Milliseconds()},
		)
		if userOnRetry != nil {
			userOnRetry(attempt, err, delay)
		}
	}

	s := &Store{
		db:     db,
		retry:  resilience.NewRetry(rc),
		logger: logger,
	}

	if _, err := s.Purge(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// IsBusy reports whether err is SQLite's busy or locked condition.
func IsBusy(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	// Extended result codes carry the primary code in the low byte.
	switch serr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	default:
		return false
	}
}

// Get retrieves a value. Returns (nil, false, nil) on miss or expiry.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := cache.ValidateKey(key); err != nil {
		return nil, false, err
	}

	var value []byte
	err := s.retry.Execute(ctx, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, getSQL, key, time.Now().UnixNano()).Scan(&value)
	})
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, s.wrap("get", err)
	}
	return value, true, nil
}

// Set upserts value under key. ttl=0 stores the row without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}

	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixNano()
	}
	if value == nil {
		value = []byte{}
	}

	err := s.retry.Execute(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, upsertSQL, key, value, expiresAt)
		return err
	})
	return s.wrap("set", err)
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}

	err := s.retry.Execute(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, deleteSQL, key)
		return err
	})
	return s.wrap("delete", err)
}

// Scan visits live entries under prefix in key order.
func (s *Store) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	// The prefix is compared as bytes; substr on TEXT counts characters.
	rows, err := s.db.QueryContext(ctx, scanSQL, len(prefix), len(prefix), []byte(prefix), time.Now().UnixNano())
	if err != nil {
		return s.wrap("scan", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return s.wrap("scan", err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return s.wrap("scan", rows.Err())
}

// Purge deletes expired rows and reports how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	var n int64
	err := s.retry.Execute(ctx, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, purgeSQL, time.Now().UnixNano())
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, s.wrap("purge", err)
	}
	if n > 0 {
		s.logger.Debug(ctx, "purged expired breadcrumb rows", observe.Field{Key: "rows", Value: n})
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, sql.ErrConnDone), strings.Contains(err.Error(), "database is closed"):
		return fmt.Errorf("sqlitestore: %s: %w", op, cache.ErrClosed)
	default:
		return fmt.Errorf("sqlitestore: %s: %w", op, err)
	}
}

var (
	_ cache.Cache   = (*Store)(nil)
	_ cache.Scanner = (*Store)(nil)
)
