// Package sqlitestore keeps the session slot in a SQLite table.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/giihelpdesk/helpdesk-client/session"
)

const (
	backendName = "sqlite"
	tableName   = "sessions"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	slot TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

// Store is a session.Store backed by one row of the sessions table.
type Store struct {
	db     *sql.DB
	slot   string
	owned  bool
	closed atomic.Bool
}

var _ session.Store = (*Store)(nil)

// New opens (creating if needed) the database at path and prepares the schema.
func New(ctx context.Context, path, slot string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlitestore: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one writer is all a single slot ever needs
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := NewWithDB(db, slot)
	s.owned = true
	return s, nil
}

// NewWithDB wraps an existing handle whose schema is already in place.
// Close does not close a borrowed handle.
func NewWithDB(db *sql.DB, slot string) *Store {
	if slot == "" {
		slot = session.DefaultKey
	}
	return &Store{db: db, slot: slot}
}

func (s *Store) Load(ctx context.Context) (*session.Session, error) {
	if s.closed.Load() {
		return nil, session.ErrClosed
	}

	query, args, err := sq.Select("data").From(tableName).Where(sq.Eq{"slot": s.slot}).ToSql()
	if err != nil {
		return nil, session.NewOperationError(backendName, "load", err)
	}

	var data string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, session.NewOperationError(backendName, "load", err)
	}
	return session.Unmarshal([]byte(data))
}

func (s *Store) Save(ctx context.Context, sess *session.Session) error {
	if s.closed.Load() {
		return session.ErrClosed
	}

	data, err := session.Marshal(sess)
	if err != nil {
		return session.NewOperationError(backendName, "save", err)
	}

	query, args, err := sq.Insert(tableName).
		Columns("slot", "data", "updated_at").
		Values(s.slot, string(data), time.Now().Unix()).
		Suffix("ON CONFLICT(slot) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return session.NewOperationError(backendName, "save", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return session.NewOperationError(backendName, "save", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context) error {
	if s.closed.Load() {
		return session.ErrClosed
	}

	query, args, err := sq.Delete(tableName).Where(sq.Eq{"slot": s.slot}).ToSql()
	if err != nil {
		return session.NewOperationError(backendName, "delete", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return session.NewOperationError(backendName, "delete", err)
	}
	return nil
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return session.ErrClosed
	}
	if s.owned {
		return s.db.Close()
	}
	return nil
}
