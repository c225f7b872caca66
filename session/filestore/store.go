// Package filestore keeps the session slot in a JSON file.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/giihelpdesk/helpdesk-client/session"
)

const backendName = "file"

// Store is a session.Store backed by a single file, written atomically.
type Store struct {
	path   string
	mu     sync.Mutex
	closed bool
}

var _ session.Store = (*Store)(nil)

// DefaultPath returns <user config dir>/helpdesk/<key>.json.
func DefaultPath(key string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("filestore: resolve config dir: %w", err)
	}
	return filepath.Join(dir, "helpdesk", key+".json"), nil
}

// New returns a store writing to path. The parent directory is created on first save.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("filestore: empty path")
	}
	return &Store{path: path}, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

func (s *Store) Load(_ context.Context) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, session.ErrClosed
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, session.ErrNotFound
		}
		return nil, session.NewOperationError(backendName, "load", err)
	}
	return session.Unmarshal(data)
}

func (s *Store) Save(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return session.ErrClosed
	}

	data, err := session.Marshal(sess)
	if err != nil {
		return session.NewOperationError(backendName, "save", err)
	}
	if err := s.writeAtomic(data); err != nil {
		return session.NewOperationError(backendName, "save", err)
	}
	return nil
}

func (s *Store) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return session.ErrClosed
	}

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return session.NewOperationError(backendName, "delete", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return session.ErrClosed
	}
	s.closed = true
	return nil
}

// writeAtomic writes to a temp file in the same directory and renames it over the target.
func (s *Store) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tempPath := tmp.Name()
	defer os.Remove(tempPath) // no-op after a successful rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
