// Package cache provides the shared read cache for dashboard queries. Redis
// is the primary backend; when it is absent or unreachable, operations fall
// through to an in-process store so callers never see cache errors.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/adpulse/adsync/pkg/metrics"
	"github.com/adpulse/adsync/pkg/tracing"
)

// Entry lifetimes per namespace. Metric blobs churn the fastest, account
// metadata the slowest.
const (
	InsightsTTL  = 15 * time.Minute
	AccountTTL   = 60 * time.Minute
	CampaignsTTL = 30 * time.Minute
)

const keyPrefix = "adsync"

// Cache is the caching facade. All errors from the backends are swallowed:
// a failed read is a miss, a failed write is a no-op. The store of record
// always has the data.
type Cache struct {
	primary  Store
	fallback *MemoryStore
	logger   ectologger.Logger
}

// New creates a cache over an optional primary store. Passing nil primary
// runs fully in-process.
func New(primary Store, logger ectologger.Logger) *Cache {
	return &Cache{
		primary:  primary,
		fallback: NewMemoryStore(),
		logger:   logger,
	}
}

// Key builds a namespaced cache key. The namespace and scope stay plaintext
// so invalidation can match them with a glob; the variable parts are
// md5-hashed to keep keys short and charset-safe.
func Key(namespace, scope string, parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%s:%s:%x", keyPrefix, namespace, scope, sum)
}

// InsightsKey builds the cache key for an insights query under an account
func InsightsKey(accountID string, params ...string) string {
	return Key("insights", accountID, params...)
}

// AccountKey builds the cache key for account metadata
func AccountKey(accountID string) string {
	return Key("account", accountID)
}

// CampaignsKey builds the cache key for an account's campaign list
func CampaignsKey(accountID string, params ...string) string {
	return Key("campaigns", accountID, params...)
}

// GetJSON reads and unmarshals a cached value into dest. It returns false on
// a miss, a backend error, or a decode error; callers fall through to the
// store of record.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) bool {
	ctx, span := tracing.StartSpan(ctx, "Cache.GetJSON")
	defer span.End()

	raw, err := c.get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"key": key,
			}).Warn("cache read failed")
		}
		metrics.CacheMissesTotal.Inc()
		return false
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"key": key,
		}).Warn("cache entry is not valid JSON, dropping")
		_ = c.Delete(ctx, key)
		metrics.CacheMissesTotal.Inc()
		return false
	}

	return true
}

// SetJSON marshals and stores a value with the given TTL. Failures are
// logged and swallowed.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	ctx, span := tracing.StartSpan(ctx, "Cache.SetJSON")
	defer span.End()

	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"key": key,
		}).Warn("cache value not serializable")
		return
	}

	if err := c.set(ctx, key, string(raw), ttl); err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"key": key,
		}).Warn("cache write failed")
	}
}

// GetMany reads several keys in one round trip. Absent keys are missing
// from the result; backend errors degrade to the in-process store like a
// single-key read.
func (c *Cache) GetMany(ctx context.Context, keys ...string) map[string]string {
	ctx, span := tracing.StartSpan(ctx, "Cache.GetMany")
	defer span.End()

	if c.primary != nil {
		out, err := c.primary.MGet(ctx, keys...)
		if err == nil {
			metrics.CacheHitsTotal.WithLabelValues("redis").Add(float64(len(out)))
			return out
		}
		c.logger.WithContext(ctx).WithError(err).Warn("cache bulk read failed")
		metrics.CacheFallbacksTotal.Inc()
	}

	out, _ := c.fallback.MGet(ctx, keys...)
	metrics.CacheHitsTotal.WithLabelValues("memory").Add(float64(len(out)))
	return out
}

// SetMany writes several entries with one shared TTL. Failures are logged
// and swallowed like a single-key write.
func (c *Cache) SetMany(ctx context.Context, entries map[string]string, ttl time.Duration) {
	ctx, span := tracing.StartSpan(ctx, "Cache.SetMany")
	defer span.End()

	if c.primary != nil {
		if err := c.primary.MSet(ctx, entries, ttl); err == nil {
			return
		}
		metrics.CacheFallbacksTotal.Inc()
	}
	if err := c.fallback.MSet(ctx, entries, ttl); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("cache bulk write failed")
	}
}

// Delete removes keys from both backends
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	ctx, span := tracing.StartSpan(ctx, "Cache.Delete")
	defer span.End()

	var err error
	if c.primary != nil {
		err = c.primary.Del(ctx, keys...)
	}
	if ferr := c.fallback.Del(ctx, keys...); err == nil {
		err = ferr
	}
	return err
}

// InvalidateAccount drops every cached entry scoped to an account. Called
// after sync writes so readers never see stale data longer than one request.
func (c *Cache) InvalidateAccount(ctx context.Context, accountID string) {
	ctx, span := tracing.StartSpan(ctx, "Cache.InvalidateAccount")
	defer span.End()

	patterns := []string{
		fmt.Sprintf("%s:insights:%s:*", keyPrefix, accountID),
		fmt.Sprintf("%s:account:%s:*", keyPrefix, accountID),
		fmt.Sprintf("%s:campaigns:%s:*", keyPrefix, accountID),
	}

	for _, pattern := range patterns {
		if c.primary != nil {
			if _, err := c.primary.DelPattern(ctx, pattern); err != nil {
				c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
					"pattern": pattern,
				}).Warn("cache invalidation failed")
			}
		}
		_, _ = c.fallback.DelPattern(ctx, pattern)
	}
}

// Cleanup sweeps expired entries out of the in-process store. Redis entries
// expire on their own.
func (c *Cache) Cleanup(ctx context.Context) int {
	_, span := tracing.StartSpan(ctx, "Cache.Cleanup")
	defer span.End()

	removed := c.fallback.Sweep()
	if removed > 0 {
		c.logger.WithContext(ctx).WithFields(map[string]any{
			"removed": removed,
		}).Info("Swept expired cache entries")
	}
	return removed
}

// Healthy reports whether the primary backend is reachable. The cache stays
// usable either way.
func (c *Cache) Healthy(ctx context.Context) bool {
	if c.primary == nil {
		return true
	}
	return c.primary.Ping(ctx) == nil
}

// Store exposes the live backend for counters: the primary when reachable,
// the in-process store otherwise. Used by the rate limiter.
func (c *Cache) Store(ctx context.Context) Store {
	if c.primary != nil && c.primary.Ping(ctx) == nil {
		return c.primary
	}
	if c.primary != nil {
		metrics.CacheFallbacksTotal.Inc()
	}
	return c.fallback
}

// Close releases both backends
func (c *Cache) Close() error {
	var err error
	if c.primary != nil {
		err = c.primary.Close()
	}
	if ferr := c.fallback.Close(); err == nil {
		err = ferr
	}
	return err
}

func (c *Cache) get(ctx context.Context, key string) (string, error) {
	if c.primary != nil {
		raw, err := c.primary.Get(ctx, key)
		if err == nil {
			metrics.CacheHitsTotal.WithLabelValues("redis").Inc()
			return raw, nil
		}
		if errors.Is(err, ErrNotFound) {
			return "", err
		}
		// Redis is unhealthy, fall through to the in-process store
		metrics.CacheFallbacksTotal.Inc()
	}

	raw, err := c.fallback.Get(ctx, key)
	if err == nil {
		metrics.CacheHitsTotal.WithLabelValues("memory").Inc()
	}
	return raw, err
}

func (c *Cache) set(ctx context.Context, key, value string, ttl time.Duration) error {
	if c.primary != nil {
		if err := c.primary.Set(ctx, key, value, ttl); err == nil {
			return nil
		}
		metrics.CacheFallbacksTotal.Inc()
	}
	return c.fallback.Set(ctx, key, value, ttl)
}
