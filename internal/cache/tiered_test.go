package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refract/redirector/internal/metrics"
	"github.com/refract/redirector/internal/model"
	"github.com/refract/redirector/internal/testutil"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type failingRemote struct {
	err      error
	getCalls int
	setCalls int
}

func (f *failingRemote) Get(ctx context.Context, key string) (string, time.Duration, error) {
	f.getCalls++
	return "", 0, f.err
}

func (f *failingRemote) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.setCalls++
	return f.err
}

func newLocal(t *testing.T, ttl time.Duration) *LocalTier {
	t.Helper()
	l1, err := NewLocalTier(100, ttl)
	require.NoError(t, err)
	t.Cleanup(l1.Close)
	return l1
}

func newTieredWithRedis(t *testing.T) (*Tiered, *RedisTier, *metrics.InMemoryRecorder) {
	t.Helper()
	_, client := testutil.NewMiniredis(t)
	l2 := NewRedisTier(client, BreakerConfig{MaxFailures: 5, OpenTimeout: time.Second}, discardLogger)
	rec := metrics.NewInMemory()
	return NewTiered(newLocal(t, time.Minute), l2, time.Hour, discardLogger, rec), l2, rec
}

func TestTiered_MissThenSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _, rec := newTieredWithRedis(t)

	_, _, ok := c.Get(ctx, "redirect:abc")
	assert.False(t, ok)

	require.NoError(t, c.SetWithStrategy(ctx, "redirect:abc", "value", DefaultTTL()))

	value, tier, ok := c.Get(ctx, "redirect:abc")
	require.True(t, ok)
	assert.Equal(t, "value", value)
	assert.Equal(t, model.TierL1, tier)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.L1Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 50.0, stats.HitRate, 0.001)
	assert.Equal(t, uint64(1), rec.Snapshot().CacheResults[metrics.ResultMiss])
}

func TestTiered_SetWritesDefaultTTLToRedis(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, l2, _ := newTieredWithRedis(t)

	require.NoError(t, c.SetWithStrategy(ctx, "redirect:def", "v", DefaultTTL()))

	ttl, err := l2.Client().TTL(ctx, "redirect:def").Result()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)
}

func TestTiered_CustomTTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, l2, _ := newTieredWithRedis(t)

	require.NoError(t, c.SetWithStrategy(ctx, "redirect:custom", "v", CustomTTL(10*time.Second)))

	ttl, err := l2.Client().TTL(ctx, "redirect:custom").Result()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, ttl)

	l1TTL, ok := c.l1.cache.GetTTL("redirect:custom")
	require.True(t, ok)
	assert.LessOrEqual(t, l1TTL, 10*time.Second)
}

func TestTiered_InvalidTTL(t *testing.T) {
	t.Parallel()
	c, _, _ := newTieredWithRedis(t)

	err := c.SetWithStrategy(context.Background(), "redirect:zero", "v", CustomTTL(0))
	assert.ErrorIs(t, err, ErrInvalidTTL)

	_, _, ok := c.Get(context.Background(), "redirect:zero")
	assert.False(t, ok)
}

func TestTiered_L2HitPromotesToL1(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, l2, _ := newTieredWithRedis(t)

	require.NoError(t, l2.Client().Set(ctx, "redirect:shared", "from-l2", 30*time.Second).Err())

	value, tier, ok := c.Get(ctx, "redirect:shared")
	require.True(t, ok)
	assert.Equal(t, "from-l2", value)
	assert.Equal(t, model.TierL2, tier)

	_, tier, ok = c.Get(ctx, "redirect:shared")
	require.True(t, ok)
	assert.Equal(t, model.TierL1, tier)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.L1Hits)
	assert.Equal(t, int64(1), stats.L2Hits)
	assert.Equal(t, int64(0), stats.Misses)
	assert.InDelta(t, 100.0, stats.HitRate, 0.001)
}

func TestTiered_PromotionKeepsRemainingTTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, l2, _ := newTieredWithRedis(t)

	require.NoError(t, l2.Client().Set(ctx, "redirect:short", "v", 2*time.Second).Err())

	_, _, ok := c.Get(ctx, "redirect:short")
	require.True(t, ok)

	ttl, ok := c.l1.cache.GetTTL("redirect:short")
	require.True(t, ok)
	assert.LessOrEqual(t, ttl, 2*time.Second)
}

func TestTiered_RemoteErrorFailsOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	remote := &failingRemote{err: errors.New("connection refused")}
	rec := metrics.NewInMemory()
	c := NewTiered(newLocal(t, time.Minute), remote, time.Hour, discardLogger, rec)

	_, _, ok := c.Get(ctx, "redirect:x")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Misses)
	assert.Equal(t, uint64(1), rec.Snapshot().CacheErrors)

	err := c.SetWithStrategy(ctx, "redirect:x", "v", DefaultTTL())
	require.Error(t, err)

	value, tier, ok := c.Get(ctx, "redirect:x")
	require.True(t, ok, "l1 should be populated even when l2 write fails")
	assert.Equal(t, "v", value)
	assert.Equal(t, model.TierL1, tier)
}

func TestTiered_RedisDownFailsOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr, client := testutil.NewMiniredis(t)
	l2 := NewRedisTier(client, BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute}, discardLogger)
	c := NewTiered(newLocal(t, time.Minute), l2, time.Hour, discardLogger, nil)

	mr.Close()

	for i := 0; i < 3; i++ {
		_, _, ok := c.Get(ctx, "redirect:down")
		assert.False(t, ok)
	}
	assert.Equal(t, int64(3), c.Stats().Misses)
	assert.Equal(t, "open", l2.BreakerState())
}

func TestStats_NoTraffic(t *testing.T) {
	t.Parallel()
	c, _, _ := newTieredWithRedis(t)

	stats := c.Stats()
	assert.Zero(t, stats.HitRate)
	assert.Zero(t, stats.L1Hits+stats.L2Hits+stats.Misses)
}
