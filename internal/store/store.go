// Package store persists the app's user state in a single SQLite database:
// coordinates, notification and voice settings, the date adjustment, the
// per-year prayer data cache, and assorted bookkeeping stamps.
//
// The database is a flat key/value table. Values are JSON or plain strings;
// typed accessors live in settings.go. A schema_version table is written on
// open so future layouts can be migrated instead of misparsed.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("key not found")

// SchemaVersion is the current database layout version.
const SchemaVersion = 1

const dbFileName = "ramadan-times.db"

// Store is a key/value preferences store backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the store under dir.
// If dir is empty, it defaults to ~/.local/share/ramadan-times/.
func Open(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".local", "share", "ramadan-times")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create data directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, dbFileName))
	if err != nil {
		return nil, fmt.Errorf("cannot open preferences database: %w", err)
	}
	// The store has a single writer context; one connection avoids
	// SQLITE_BUSY churn from the pure-Go driver.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.bootstrap(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) bootstrap() error {
	const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS preferences (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("cannot create schema: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, SchemaVersion); err != nil {
			return fmt.Errorf("cannot record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("cannot read schema version: %w", err)
	case version > SchemaVersion:
		return fmt.Errorf("preferences database schema v%d is newer than this build (v%d)", version, SchemaVersion)
	}
	return nil
}

// GetValue returns the raw value for key, or ErrNotFound.
func (s *Store) GetValue(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return value, nil
}

// SetValue stores the raw value for key, replacing any prior value.
func (s *Store) SetValue(key, value string) error {
	_, err := s.db.Exec(`
INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// DeleteValue removes key. Deleting an absent key is not an error.
func (s *Store) DeleteValue(key string) error {
	if _, err := s.db.Exec(`DELETE FROM preferences WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
