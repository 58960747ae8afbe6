package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adpulse/adsync/pkg/cache"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

// failingStore simulates an unreachable Redis
type failingStore struct{}

var errDown = errors.New("connection refused")

func (failingStore) Get(context.Context, string) (string, error)          { return "", errDown }
func (failingStore) Set(context.Context, string, string, time.Duration) error { return errDown }
func (failingStore) MGet(context.Context, ...string) (map[string]string, error) {
	return nil, errDown
}
func (failingStore) MSet(context.Context, map[string]string, time.Duration) error { return errDown }
func (failingStore) Del(context.Context, ...string) error                 { return errDown }
func (failingStore) DelPattern(context.Context, string) (int64, error)    { return 0, errDown }
func (failingStore) Exists(context.Context, string) (bool, error)         { return false, errDown }
func (failingStore) Incr(context.Context, string) (int64, error)          { return 0, errDown }
func (failingStore) Expire(context.Context, string, time.Duration) error  { return errDown }
func (failingStore) TTL(context.Context, string) (time.Duration, error)   { return 0, errDown }
func (failingStore) Ping(context.Context) error                           { return errDown }
func (failingStore) Close() error                                         { return nil }

type payload struct {
	Name  string  `json:"name"`
	Spend float64 `json:"spend"`
}

func TestCache_RoundTrip(t *testing.T) {
	c := cache.New(nil, getTestLogger())
	ctx := context.Background()

	key := cache.InsightsKey("act_1", "campaign", "2026-08-01", "2026-08-07")
	c.SetJSON(ctx, key, payload{Name: "Summer Sale", Spend: 42.5}, cache.InsightsTTL)

	var got payload
	require.True(t, c.GetJSON(ctx, key, &got))
	assert.Equal(t, "Summer Sale", got.Name)
	assert.Equal(t, 42.5, got.Spend)
}

func TestCache_MissReturnsFalse(t *testing.T) {
	c := cache.New(nil, getTestLogger())

	var got payload
	assert.False(t, c.GetJSON(context.Background(), cache.AccountKey("act_missing"), &got))
}

func TestCache_FallsBackWhenPrimaryDown(t *testing.T) {
	// Every primary operation fails, but callers must not notice
	c := cache.New(failingStore{}, getTestLogger())
	ctx := context.Background()

	key := cache.AccountKey("act_2")
	c.SetJSON(ctx, key, payload{Name: "fallback"}, cache.AccountTTL)

	var got payload
	require.True(t, c.GetJSON(ctx, key, &got))
	assert.Equal(t, "fallback", got.Name)
	assert.True(t, c.Healthy(context.Background()) == false)
}

func TestCache_KeyIsDeterministicAndNamespaced(t *testing.T) {
	a := cache.InsightsKey("act_1", "campaign", "7")
	b := cache.InsightsKey("act_1", "campaign", "7")
	other := cache.InsightsKey("act_1", "campaign", "14")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, other)
	assert.Contains(t, a, "adsync:insights:act_1:")
}

func TestCache_InvalidateAccount(t *testing.T) {
	c := cache.New(nil, getTestLogger())
	ctx := context.Background()

	keep := cache.InsightsKey("act_other", "campaign")
	c.SetJSON(ctx, cache.InsightsKey("act_1", "campaign"), payload{Name: "a"}, time.Minute)
	c.SetJSON(ctx, cache.AccountKey("act_1"), payload{Name: "b"}, time.Minute)
	c.SetJSON(ctx, cache.CampaignsKey("act_1"), payload{Name: "c"}, time.Minute)
	c.SetJSON(ctx, keep, payload{Name: "survivor"}, time.Minute)

	c.InvalidateAccount(ctx, "act_1")

	var got payload
	assert.False(t, c.GetJSON(ctx, cache.InsightsKey("act_1", "campaign"), &got))
	assert.False(t, c.GetJSON(ctx, cache.AccountKey("act_1"), &got))
	assert.False(t, c.GetJSON(ctx, cache.CampaignsKey("act_1"), &got))
	require.True(t, c.GetJSON(ctx, keep, &got), "other accounts keep their entries")
	assert.Equal(t, "survivor", got.Name)
}

func TestCache_BulkRoundTrip(t *testing.T) {
	c := cache.New(nil, getTestLogger())
	ctx := context.Background()

	entries := map[string]string{
		cache.CampaignsKey("act_1", "c1"): `{"name":"one"}`,
		cache.CampaignsKey("act_1", "c2"): `{"name":"two"}`,
	}
	c.SetMany(ctx, entries, cache.CampaignsTTL)

	got := c.GetMany(ctx, cache.CampaignsKey("act_1", "c1"), cache.CampaignsKey("act_1", "c2"), cache.CampaignsKey("act_1", "missing"))
	assert.Len(t, got, 2)
	assert.Equal(t, `{"name":"one"}`, got[cache.CampaignsKey("act_1", "c1")])
}

func TestCache_BulkFallsBackWhenPrimaryDown(t *testing.T) {
	c := cache.New(failingStore{}, getTestLogger())
	ctx := context.Background()

	key := cache.CampaignsKey("act_2", "c1")
	c.SetMany(ctx, map[string]string{key: "v"}, cache.CampaignsTTL)

	got := c.GetMany(ctx, key)
	assert.Equal(t, "v", got[key])
}

func TestMemoryStore_MGetSkipsExpired(t *testing.T) {
	s := cache.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.MSet(ctx, map[string]string{"keep": "a"}, 0))
	require.NoError(t, s.Set(ctx, "gone", "b", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	got, err := s.MGet(ctx, "keep", "gone", "never")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"keep": "a"}, got)
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := cache.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v", 10*time.Millisecond))

	val, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	time.Sleep(20 * time.Millisecond)

	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestMemoryStore_Sweep(t *testing.T) {
	s := cache.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "short", "v", 5*time.Millisecond))
	require.NoError(t, s.Set(ctx, "long", "v", time.Hour))

	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_Incr(t *testing.T) {
	s := cache.NewMemoryStore()
	ctx := context.Background()

	n, err := s.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, s.Expire(ctx, "counter", time.Hour))
	ttl, err := s.TTL(ctx, "counter")
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
}
