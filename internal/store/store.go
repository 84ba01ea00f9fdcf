// Package store persists sessions, messages, path policies, audit entries,
// and behavioral observations in a single SQLite database shared by the
// supervisor process.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/nestmesh/nest/internal/sqlitedriver"
)

// ErrNotFound is returned by lookups that found no matching row. Callers
// treat it as the recoverable NotFound class of error.
var ErrNotFound = errors.New("store: not found")

// Store wraps one SQLite database handle (a pool of connections, limited
// to a single connection for ":memory:"). All writes go through mu so that
// a writer never holds the lock across more than one statement, per the
// concurrency model's "hold time <= 1 SQL statement" rule.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if necessary) the SQLite database at path and
// applies the schema. Use ":memory:" for an ephemeral, test-only store.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if path == ":memory:" {
		// A single shared connection keeps the in-memory database from
		// disappearing between pooled connections.
		db.SetMaxOpenConns(1)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating store: %w", err)
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schemaSQL)
	return err
}
