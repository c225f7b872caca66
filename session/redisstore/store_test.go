package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giihelpdesk/helpdesk-client/session"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	s, err := New(context.Background(), &Config{Addr: mr.Addr(), Prefix: "helpdesk:", Slot: "user", TTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := setupTestRedis(t, 0)
	assert.Equal(t, "helpdesk:user", s.Key())

	_, err := s.Load(ctx)
	assert.True(t, errors.Is(err, session.ErrNotFound))

	in := &session.Session{Token: "t1", Email: "a@b.com", Domain: "b.com", Subscription: session.PlanSubscription("pro")}
	require.NoError(t, s.Save(ctx, in))
	assert.True(t, mr.Exists("helpdesk:user"))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	require.NoError(t, s.Delete(ctx))
	require.NoError(t, s.Delete(ctx))
	assert.False(t, mr.Exists("helpdesk:user"))
}

func TestStoreTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := setupTestRedis(t, time.Hour)

	require.NoError(t, s.Save(ctx, &session.Session{Token: "t1"}))
	assert.Equal(t, time.Hour, mr.TTL("helpdesk:user"))

	mr.FastForward(2 * time.Hour)
	_, err := s.Load(ctx)
	assert.True(t, errors.Is(err, session.ErrNotFound))
}

func TestStoreCorruptValue(t *testing.T) {
	s, mr := setupTestRedis(t, 0)
	require.NoError(t, mr.Set("helpdesk:user", "garbage"))

	_, err := s.Load(context.Background())
	assert.True(t, errors.Is(err, session.ErrCorrupt))
}

func TestStoreServerFailure(t *testing.T) {
	s, mr := setupTestRedis(t, 0)
	mr.SetError("ERR simulated failure")

	_, err := s.Load(context.Background())
	var opErr *session.OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "load", opErr.Op)
}

func TestStoreClose(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestRedis(t, 0)

	require.NoError(t, s.Close())
	assert.True(t, errors.Is(s.Close(), session.ErrClosed))
	_, err := s.Load(ctx)
	assert.True(t, errors.Is(err, session.ErrClosed))
	assert.True(t, errors.Is(s.Save(ctx, &session.Session{}), session.ErrClosed))
}

func TestNewValidation(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, &Config{})
	assert.Error(t, err)

	_, err = New(ctx, &Config{Addr: "localhost:6379", DB: 16})
	assert.Error(t, err)

	_, err = New(ctx, &Config{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	assert.Error(t, err)
}
