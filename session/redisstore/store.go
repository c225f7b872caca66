// Package redisstore keeps the session slot in Redis so several client
// processes on one machine or container share a sign-in.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/giihelpdesk/helpdesk-client/session"
)

const backendName = "redis"

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string //nolint:gosec // loaded from env
	DB       int
	// Prefix is prepended to the slot key, e.g. "helpdesk:" + "user".
	Prefix string
	Slot   string
	// TTL bounds how long the record survives without a save; zero keeps it forever.
	TTL         time.Duration
	DialTimeout time.Duration
}

// Validate checks the settings before dialing.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("redisstore: addr is required")
	}
	if c.DB < 0 || c.DB > 15 {
		return fmt.Errorf("redisstore: invalid database number: %d (must be 0-15)", c.DB)
	}
	if c.TTL < 0 {
		return errors.New("redisstore: ttl cannot be negative")
	}
	return nil
}

// Store is a session.Store backed by a Redis string key.
type Store struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	closed atomic.Bool
}

var _ session.Store = (*Store)(nil)

// New connects to Redis and checks the connection with PING.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redisstore: ping %s: %w", cfg.Addr, err)
	}

	slot := cfg.Slot
	if slot == "" {
		slot = session.DefaultKey
	}
	return &Store{client: client, key: cfg.Prefix + slot, ttl: cfg.TTL}, nil
}

// Key returns the Redis key holding the record.
func (s *Store) Key() string { return s.key }

func (s *Store) Load(ctx context.Context) (*session.Session, error) {
	if s.closed.Load() {
		return nil, session.ErrClosed
	}

	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrNotFound
		}
		return nil, session.NewOperationError(backendName, "load", err)
	}
	return session.Unmarshal(data)
}

func (s *Store) Save(ctx context.Context, sess *session.Session) error {
	if s.closed.Load() {
		return session.ErrClosed
	}

	data, err := session.Marshal(sess)
	if err != nil {
		return session.NewOperationError(backendName, "save", err)
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return session.NewOperationError(backendName, "save", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context) error {
	if s.closed.Load() {
		return session.ErrClosed
	}

	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return session.NewOperationError(backendName, "delete", err)
	}
	return nil
}

// Close is idempotent; the second call reports ErrClosed.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return session.ErrClosed
	}
	return s.client.Close()
}
