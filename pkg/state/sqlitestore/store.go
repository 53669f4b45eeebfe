// Package sqlitestore persists option overrides in a local SQLite file. The
// file is owned by one process at a time, enforced with an advisory lock next
// to the database.
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

	"github.com/gofrs/flock"
	opts "github.com/goliatone/go-sysoptions"
	"github.com/goliatone/go-sysoptions/pkg/state"
	_ "modernc.org/sqlite"
)

// ErrLocked indicates another process owns the database.
var ErrLocked = errors.New("sqlitestore: database locked by another process")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store is an opts.Store backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

var _ opts.Store = (*Store)(nil)

// Open creates or opens the database at path, applies migrations and takes
// the owner lock at path+".lock".
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlitestore: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlitestore: ensure directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("sqlitestore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("sqlitestore: apply pragma %q: %w", pragma, err)
		}
	}

	store := &Store{db: db, path: path, lock: lock}
	if err := store.applyMigrations(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("sqlitestore: %w", err)
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) Get(ctx context.Context, name opts.Name) (opts.Value, bool, error) {
	var record string
	err := s.db.QueryRowContext(ctx, "SELECT record FROM options WHERE key = ?", string(name)).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return opts.Value{}, false, nil
	}
	if err != nil {
		return opts.Value{}, false, fmt.Errorf("sqlitestore: get %q: %w", name, err)
	}
	value, err := state.DecodeValue(string(name), []byte(record))
	if err != nil {
		return opts.Value{}, false, err
	}
	return value, true, nil
}

func (s *Store) Put(ctx context.Context, name opts.Name, value opts.Value) error {
	record, err := state.EncodeValue(value)
	if err != nil {
		return err
	}
	return s.exec(ctx,
		`INSERT INTO options (key, record, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`,
		string(name), string(record), time.Now().UTC().UnixMilli(),
	)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.exec(ctx, "DELETE FROM options WHERE key = ?", key)
}

func (s *Store) All(ctx context.Context) ([]opts.Entry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, record FROM options ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list: %w", err)
	}
	defer rows.Close()

	var entries []opts.Entry
	for rows.Next() {
		var key, record string
		if err := rows.Scan(&key, &record); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan: %w", err)
		}
		value, err := state.DecodeValue(key, []byte(record))
		if err != nil {
			return nil, err
		}
		entries = append(entries, opts.Entry{Key: key, Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitestore: list: %w", err)
	}
	return entries, nil
}

// Close closes the database and releases the owner lock.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}
	return err
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("sqlitestore: %w", err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
