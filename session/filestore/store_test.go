package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giihelpdesk/helpdesk-client/session"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "nested", "user.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.Load(ctx)
	assert.True(t, errors.Is(err, session.ErrNotFound))

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	in := &session.Session{Token: "t1", Email: "a@b.com", Domain: "b.com", CreatedAt: now, UpdatedAt: now,
		Subscription: session.PlanSubscription("pro")}
	require.NoError(t, s.Save(ctx, in))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(s.Path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	require.NoError(t, s.Delete(ctx))
	require.NoError(t, s.Delete(ctx), "delete is idempotent")
	_, err = s.Load(ctx)
	assert.True(t, errors.Is(err, session.ErrNotFound))
}

func TestStoreSaveReplaces(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Save(ctx, &session.Session{Token: "old"}))
	require.NoError(t, s.Save(ctx, &session.Session{Token: "new"}))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", out.Token)

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestStoreCorruptFile(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
	require.NoError(t, os.WriteFile(s.Path(), []byte("{broken"), 0o600))

	_, err := s.Load(context.Background())
	assert.True(t, errors.Is(err, session.ErrCorrupt))
}

func TestStoreClosed(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Close())
	assert.True(t, errors.Is(s.Close(), session.ErrClosed))

	_, err := s.Load(ctx)
	assert.True(t, errors.Is(err, session.ErrClosed))
	assert.True(t, errors.Is(s.Save(ctx, &session.Session{}), session.ErrClosed))
	assert.True(t, errors.Is(s.Delete(ctx), session.ErrClosed))
}

func TestNewRejectsEmptyPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
