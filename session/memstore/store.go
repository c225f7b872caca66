// Package memstore keeps the session slot in process memory using go-memdb.
package memstore

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/hashicorp/go-memdb"

	"github.com/giihelpdesk/helpdesk-client/session"
)

const (
	backendName = "memory"
	tableName   = "sessions"
)

var dbSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tableName: {
			Name: tableName,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:         "id",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "Slot"},
				},
			},
		},
	},
}

type record struct {
	Slot    string
	Session *session.Session
}

// Store is a session.Store that lives as long as the process.
type Store struct {
	db     *memdb.MemDB
	slot   string
	closed atomic.Bool
}

var _ session.Store = (*Store)(nil)

// New creates an empty store for the given slot.
func New(slot string) (*Store, error) {
	if slot == "" {
		slot = session.DefaultKey
	}
	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, slot: slot}, nil
}

func (s *Store) Load(_ context.Context) (*session.Session, error) {
	if s.closed.Load() {
		return nil, session.ErrClosed
	}

	txn := s.db.Txn(false)
	obj, err := txn.First(tableName, "id", s.slot)
	if err != nil {
		return nil, session.NewOperationError(backendName, "load", err)
	}
	if obj == nil {
		return nil, session.ErrNotFound
	}
	// hand out a copy so callers cannot mutate the indexed object
	return obj.(*record).Session.Clone(), nil
}

func (s *Store) Save(_ context.Context, sess *session.Session) error {
	if s.closed.Load() {
		return session.ErrClosed
	}
	if sess == nil {
		return session.NewOperationError(backendName, "save", errors.New("nil record"))
	}

	txn := s.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tableName, &record{Slot: s.slot, Session: sess.Clone()}); err != nil {
		return session.NewOperationError(backendName, "save", err)
	}
	txn.Commit()
	return nil
}

func (s *Store) Delete(_ context.Context) error {
	if s.closed.Load() {
		return session.ErrClosed
	}

	txn := s.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll(tableName, "id", s.slot); err != nil {
		return session.NewOperationError(backendName, "delete", err)
	}
	txn.Commit()
	return nil
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return session.ErrClosed
	}
	return nil
}
