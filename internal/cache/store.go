// Package cache provides the optional key-value accelerator used for user
// snapshots and the token blacklist.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a minimal key-value contract with per-key TTL.
type Store interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores the value with the given TTL.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// Delete removes the key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Exists reports whether the key is present.
	Exists(ctx context.Context, key string) (bool, error)
}

// RedisStore implements Store on a go-redis client.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Client limits. Every cache call sits on a request path, so an unreachable
// Redis has to fail within a fraction of a second.
const (
	DialTimeout  = 500 * time.Millisecond
	ReadTimeout  = 250 * time.Millisecond
	WriteTimeout = 250 * time.Millisecond
	PoolTimeout  = 500 * time.Millisecond
	MaxRetries   = 1
	pingTimeout  = 5 * time.Second
)

// Dial creates a Redis client and checks it with a bounded ping.
// The client is returned even when the ping fails so callers can decide
// whether to run degraded.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   MaxRetries,
		DialTimeout:  DialTimeout,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		PoolTimeout:  PoolTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return client, fmt.Errorf("cache: ping: %w", err)
	}
	return client, nil
}

// Get reads a key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Set writes a key with SET ... EX.
func (s *RedisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, val, ttl).Err()
}

// Delete removes a key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Exists checks key presence.
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Nop is the absent cache: reads miss and writes vanish.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) Delete(context.Context, string) error { return nil }
func (Nop) Exists(context.Context, string) (bool, error) { return false, nil }

var (
	_ Store = (*RedisStore)(nil)
	_ Store = Nop{}
)
