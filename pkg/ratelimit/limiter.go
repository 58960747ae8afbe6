// Package ratelimit implements a fixed-window request limiter over the cache
// backend. Windows are aligned to wall-clock boundaries: every client in the
// same window shares its reset instant.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/adpulse/adsync/pkg/cache"
	"github.com/adpulse/adsync/pkg/tracing"
)

const keyPrefix = "adsync:ratelimit"

// defaultWindow backs any caller that passes a zero or negative window,
// which would otherwise divide by zero in the bucket math.
const defaultWindow = time.Minute

// Result reports the outcome of a limiter check
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the wait until the current window closes
func (r Result) RetryAfter() time.Duration {
	d := time.Until(r.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// Limiter counts requests per identity per aligned time window
type Limiter struct {
	cache  *cache.Cache
	logger ectologger.Logger
}

// NewLimiter creates a limiter over the shared cache
func NewLimiter(c *cache.Cache, logger ectologger.Logger) *Limiter {
	return &Limiter{cache: c, logger: logger}
}

// Allow counts one request for ident under scope and reports whether it fits
// within limit per window. When the counter backend fails, the request is
// allowed: losing rate limiting briefly beats refusing all traffic.
func (l *Limiter) Allow(ctx context.Context, scope, ident string, limit int, window time.Duration) Result {
	ctx, span := tracing.StartSpan(ctx, "Limiter.Allow")
	defer span.End()

	if window <= 0 {
		window = defaultWindow
	}

	now := time.Now()
	bucket := now.UnixNano() / int64(window)
	resetAt := time.Unix(0, (bucket+1)*int64(window))
	key := fmt.Sprintf("%s:%s:%s:%d", keyPrefix, scope, ident, bucket)

	store := l.cache.Store(ctx)
	count, err := store.Incr(ctx, key)
	if err != nil {
		l.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"scope": scope,
		}).Warn("rate limit counter unavailable, failing open")
		return Result{Allowed: true, Limit: limit, Remaining: limit, ResetAt: resetAt}
	}

	if count == 1 {
		// First hit in this window owns the expiry. The extra slack lets
		// late reads in the same window still find the counter.
		if err := store.Expire(ctx, key, window+time.Second); err != nil {
			l.logger.WithContext(ctx).WithError(err).Warn("failed to expire rate limit counter")
		}
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
