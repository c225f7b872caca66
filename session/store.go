package session

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors shared by all backends. Match them with errors.Is.
var (
	// ErrNotFound is returned by Load when the slot is empty.
	ErrNotFound = errors.New("session: not found")

	// ErrCorrupt is returned by Load when the slot holds data that is not a session.
	ErrCorrupt = errors.New("session: corrupt record")

	// ErrClosed is returned when a closed store is used.
	ErrClosed = errors.New("session: store closed")
)

// Store persists at most one Session in a single slot.
// Implementations must be safe for concurrent use.
type Store interface {
	// Load returns the stored session or ErrNotFound.
	Load(ctx context.Context) (*Session, error)

	// Save replaces the stored session.
	Save(ctx context.Context, s *Session) error

	// Delete empties the slot. Deleting an empty slot is not an error.
	Delete(ctx context.Context) error

	// Close releases the backend. Further calls return ErrClosed.
	Close() error
}

// OperationError wraps a backend failure.
type OperationError struct {
	Op      string // "load", "save" or "delete"
	Backend string
	Err     error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("session %s error: %s failed: %v", e.Backend, e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// NewOperationError creates an OperationError.
func NewOperationError(backend, op string, err error) *OperationError {
	return &OperationError{Op: op, Backend: backend, Err: err}
}
