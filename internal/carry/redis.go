package carry

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix is prepended to every redis key.
const DefaultPrefix = "turtle:carry:"

// Redis is a Store backed by a redis server, for sessions that move between
// processes.
type Redis struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Redis store.
type Option func(*Redis)

// WithTTL expires carried programs after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(r *Redis) {
		r.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// NewRedis connects to the redis server at addr.
func NewRedis(addr, password string, db int, opts ...Option) *Redis {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisFromClient(client, opts...)
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *backend.Client, opts ...Option) *Redis {
	r := &Redis{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(sessionID, key string) string {
	return r.prefix + sessionID + ":" + key
}

// Put replaces the blob for sessionID and key.
func (r *Redis) Put(ctx context.Context, sessionID, key, blob string) error {
	if err := r.client.Set(ctx, r.key(sessionID, key), blob, r.ttl).Err(); err != nil {
		return fmt.Errorf("carry: saving %s: %w", key, err)
	}
	return nil
}

// Get returns the blob for sessionID and key, or ErrNotFound.
func (r *Redis) Get(ctx context.Context, sessionID, key string) (string, error) {
	val, err := r.client.Get(ctx, r.key(sessionID, key)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("carry: loading %s: %w", key, err)
	}
	return val, nil
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
