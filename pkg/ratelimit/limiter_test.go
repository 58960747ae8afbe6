package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/adpulse/adsync/pkg/cache"
	"github.com/adpulse/adsync/pkg/ratelimit"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func TestLimiter_AllowsUpToLimit(t *testing.T) {
	limiter := ratelimit.NewLimiter(cache.New(nil, getTestLogger()), getTestLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result := limiter.Allow(ctx, "api", "10.0.0.1", 5, time.Minute)
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 5-(i+1), result.Remaining)
	}

	result := limiter.Allow(ctx, "api", "10.0.0.1", 5, time.Minute)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.Greater(t, result.RetryAfter(), time.Duration(0))
	assert.LessOrEqual(t, result.RetryAfter(), time.Minute)
}

func TestLimiter_ScopesAndIdentsAreIndependent(t *testing.T) {
	limiter := ratelimit.NewLimiter(cache.New(nil, getTestLogger()), getTestLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		limiter.Allow(ctx, "api", "10.0.0.1", 3, time.Minute)
	}

	assert.False(t, limiter.Allow(ctx, "api", "10.0.0.1", 3, time.Minute).Allowed)
	assert.True(t, limiter.Allow(ctx, "api", "10.0.0.2", 3, time.Minute).Allowed, "other clients are unaffected")
	assert.True(t, limiter.Allow(ctx, "mutating", "10.0.0.1", 3, time.Minute).Allowed, "other scopes are unaffected")
}

func TestLimiter_ZeroWindowFallsBackToDefault(t *testing.T) {
	limiter := ratelimit.NewLimiter(cache.New(nil, getTestLogger()), getTestLogger())
	ctx := context.Background()

	// A zero window must not panic, and still counts against the limit
	result := limiter.Allow(ctx, "api", "10.0.0.9", 1, 0)
	assert.True(t, result.Allowed)
	assert.LessOrEqual(t, result.RetryAfter(), time.Minute)

	result = limiter.Allow(ctx, "api", "10.0.0.9", 1, 0)
	assert.False(t, result.Allowed)

	result = limiter.Allow(ctx, "api", "10.0.0.10", 2, -time.Second)
	assert.True(t, result.Allowed, "negative window behaves like the default")
}

func TestLimiter_WindowRolls(t *testing.T) {
	limiter := ratelimit.NewLimiter(cache.New(nil, getTestLogger()), getTestLogger())
	ctx := context.Background()

	window := 500 * time.Millisecond
	assert.True(t, limiter.Allow(ctx, "api", "burst", 1, window).Allowed)
	assert.False(t, limiter.Allow(ctx, "api", "burst", 1, window).Allowed)

	// Wait past the aligned window boundary
	time.Sleep(window + 100*time.Millisecond)

	assert.True(t, limiter.Allow(ctx, "api", "burst", 1, window).Allowed)
}
