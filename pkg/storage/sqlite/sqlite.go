// Package sqlite persists the storage medium in a SQLite database so cached
// entries survive restarts.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/kubdash/kubdash/pkg/storage"
)

// Store is a storage.Storage backed by a single SQLite table.
type Store struct {
	db       *sql.DB
	maxBytes int64
}

const createStorageTable = `
CREATE TABLE IF NOT EXISTS storage (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// New opens (or creates) the database at dbPath. maxBytes <= 0 disables the
// capacity limit.
func New(dbPath string, maxBytes int64) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}
	// One connection serializes every call, matching the synchronous medium.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createStorageTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate storage db: %w", err)
	}

	return &Store{db: db, maxBytes: maxBytes}, nil
}

func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM storage WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("storage get: %w", err)
	}
	return value, nil
}

func (s *Store) Set(key, value string) error {
	if s.maxBytes <= 0 {
		_, err := s.db.Exec(`INSERT OR REPLACE INTO storage (key, value) VALUES (?, ?)`, key, value)
		if err != nil {
			return fmt.Errorf("storage set: %w", err)
		}
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("storage set: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var used int64
	err = tx.QueryRow(
		`SELECT COALESCE(SUM(length(CAST(key AS BLOB)) + length(CAST(value AS BLOB))), 0) FROM storage WHERE key <> ?`,
		key,
	).Scan(&used)
	if err != nil {
		return fmt.Errorf("storage set: %w", err)
	}
	if used+int64(len(key)+len(value)) > s.maxBytes {
		return storage.ErrQuotaExceeded
	}

	if _, err := tx.Exec(`INSERT OR REPLACE INTO storage (key, value) VALUES (?, ?)`, key, value); err != nil {
		return fmt.Errorf("storage set: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage set: %w", err)
	}
	return nil
}

func (s *Store) Remove(key string) error {
	if _, err := s.db.Exec(`DELETE FROM storage WHERE key = ?`, key); err != nil {
		return fmt.Errorf("storage remove: %w", err)
	}
	return nil
}

// Keys uses a primary-key range scan for ASCII prefixes so that unrelated
// keys are never visited.
func (s *Store) Keys(prefix string) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if end, ok := prefixEnd(prefix); ok {
		rows, err = s.db.Query(`SELECT key FROM storage WHERE key >= ? AND key < ? ORDER BY key`, prefix, end)
	} else {
		rows, err = s.db.Query(`SELECT key FROM storage ORDER BY key`)
	}
	if err != nil {
		return nil, fmt.Errorf("storage keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("storage keys: %w", err)
		}
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage keys: %w", err)
	}
	return keys, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// prefixEnd returns the smallest string greater than every string carrying
// prefix. Only non-empty ASCII prefixes whose last byte can be incremented
// qualify.
func prefixEnd(prefix string) (string, bool) {
	if prefix == "" {
		return "", false
	}
	for i := 0; i < len(prefix); i++ {
		if prefix[i] >= 0x7f {
			return "", false
		}
	}
	b := []byte(prefix)
	b[len(b)-1]++
	return string(b), true
}

var _ storage.Storage = (*Store)(nil)
