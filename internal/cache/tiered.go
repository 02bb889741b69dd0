package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/refract/redirector/internal/metrics"
	"github.com/refract/redirector/internal/model"
)

// Remote is the shared tier contract.
type Remote interface {
	Get(ctx context.Context, key string) (string, time.Duration, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Stats is a read-only snapshot of facade counters.
type Stats struct {
	HitRate  float64 `json:"hit_rate"`
	L1Hits   int64   `json:"l1_hits"`
	L2Hits   int64   `json:"l2_hits"`
	Misses   int64   `json:"misses"`
	InFlight int64   `json:"in_flight"`
}

// Tiered checks L1, then L2, promoting L2 hits into L1.
// Tier errors are logged and reported as misses.
type Tiered struct {
	l1         *LocalTier
	l2         Remote
	defaultTTL time.Duration
	logger     *slog.Logger
	metrics    metrics.Recorder

	l1Hits atomic.Int64
	l2Hits atomic.Int64
	misses atomic.Int64
}

// NewTiered creates the facade. defaultTTL backs the DefaultTTL strategy.
func NewTiered(l1 *LocalTier, l2 Remote, defaultTTL time.Duration, logger *slog.Logger, m metrics.Recorder) *Tiered {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Tiered{
		l1:         l1,
		l2:         l2,
		defaultTTL: defaultTTL,
		logger:     logger.With("component", "cache.tiered"),
		metrics:    m,
	}
}

// Get returns the value for key and the tier that held it.
func (c *Tiered) Get(ctx context.Context, key string) (string, model.CacheTier, bool) {
	if value, ok := c.l1.Get(key); ok {
		c.l1Hits.Add(1)
		c.metrics.IncCacheResult(metrics.ResultL1)
		return value, model.TierL1, true
	}

	value, remaining, err := c.l2.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("l2 cache read failed, treating as miss",
				"key", key,
				"error", err,
			)
			c.metrics.IncCacheError(string(model.TierL2), "get")
		}
		c.misses.Add(1)
		c.metrics.IncCacheResult(metrics.ResultMiss)
		return "", "", false
	}

	// An L1 copy never outlives the L2 entry it was promoted from.
	c.l1.Set(key, value, remaining)

	c.l2Hits.Add(1)
	c.metrics.IncCacheResult(metrics.ResultL2)
	return value, model.TierL2, true
}

// SetWithStrategy writes value to L2 and L1 with the TTL chosen by s.
// L1 is populated even when the L2 write fails; the L2 error is returned.
func (c *Tiered) SetWithStrategy(ctx context.Context, key, value string, s Strategy) error {
	ttl, err := s.TTL(c.defaultTTL)
	if err != nil {
		return err
	}

	l2Err := c.l2.Set(ctx, key, value, ttl)
	if l2Err != nil {
		c.metrics.IncCacheError(string(model.TierL2), "set")
	}

	c.l1.Set(key, value, ttl)
	return l2Err
}

// Stats returns hit/miss counters. InFlight is filled in by the owner of the coalescer.
func (c *Tiered) Stats() Stats {
	l1 := c.l1Hits.Load()
	l2 := c.l2Hits.Load()
	miss := c.misses.Load()

	var rate float64
	if total := l1 + l2 + miss; total > 0 {
		rate = float64(l1+l2) / float64(total) * 100
	}

	return Stats{
		HitRate: rate,
		L1Hits:  l1,
		L2Hits:  l2,
		Misses:  miss,
	}
}
