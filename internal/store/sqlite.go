// Package store provides snapshot blob stores for the analytics
// engine: a durable SQLite-backed store and an in-memory store
// for tests.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
    key        TEXT PRIMARY KEY,
    data       BLOB NOT NULL,
    updated_at TEXT NOT NULL
);
`

// SQLiteStore persists snapshot blobs in a single SQLite table.
// It keeps a single-connection writer and a small read pool.
type SQLiteStore struct {
	writer *sql.DB
	reader *sql.DB
	mu     sync.Mutex // serializes writes
}

// makeDSN builds a SQLite connection string with shared pragmas.
func makeDSN(path string, readOnly bool) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", "5000")
	if readOnly {
		params.Set("mode", "ro")
	} else {
		params.Set("_synchronous", "NORMAL")
	}
	return path + "?" + params.Encode()
}

// Open creates or opens the snapshot database at path.
func Open(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	writer, err := sql.Open("sqlite3", makeDSN(path, false))
	if err != nil {
		return nil, fmt.Errorf("opening writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	if _, err := writer.Exec(schemaSQL); err != nil {
		writer.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	reader, err := sql.Open("sqlite3", makeDSN(path, true))
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("opening reader: %w", err)
	}
	reader.SetMaxOpenConns(2)

	return &SQLiteStore{writer: writer, reader: reader}, nil
}

// Load returns the blob stored under key, or ok=false when the
// key has never been written.
func (s *SQLiteStore) Load(key string) ([]byte, bool, error) {
	var data []byte
	err := s.reader.QueryRow(
		"SELECT data FROM snapshots WHERE key = ?", key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading snapshot %q: %w", key, err)
	}
	return data, true, nil
}

// Save stores the blob under key, replacing any prior value.
func (s *SQLiteStore) Save(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.writer.Exec(
		`INSERT INTO snapshots (key, data, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		     data = excluded.data,
		     updated_at = excluded.updated_at`,
		key, data, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot %q: %w", key, err)
	}
	return nil
}

// Delete removes the blob stored under key. Missing keys are
// not an error.
func (s *SQLiteStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Exec(
		"DELETE FROM snapshots WHERE key = ?", key,
	); err != nil {
		return fmt.Errorf("deleting snapshot %q: %w", key, err)
	}
	return nil
}

// UpdatedAt reports when key was last written, or ok=false for
// unknown keys.
func (s *SQLiteStore) UpdatedAt(key string) (time.Time, bool, error) {
	var ts string
	err := s.reader.QueryRow(
		"SELECT updated_at FROM snapshots WHERE key = ?", key,
	).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false,
			fmt.Errorf("reading snapshot time %q: %w", key, err)
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, false,
			fmt.Errorf("parsing snapshot time %q: %w", ts, err)
	}
	return t, true, nil
}

// Close closes both connections.
func (s *SQLiteStore) Close() error {
	return errors.Join(s.writer.Close(), s.reader.Close())
}
