package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Store.Get when a key is absent or expired
var ErrNotFound = errors.New("cache: key not found")

// Store is the low-level key-value backend. Two implementations exist:
// RedisStore for the shared cache and MemoryStore for the in-process
// fallback. Callers go through Cache, which hides which one is live.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	MGet(ctx context.Context, keys ...string) (map[string]string, error)
	MSet(ctx context.Context, entries map[string]string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	DelPattern(ctx context.Context, pattern string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	Ping(ctx context.Context) error
	Close() error
}
