// Package resolver turns short codes into destinations using a cache-aside
// read path over the tiered cache and the durable store.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/refract/redirector/internal/analytics"
	"github.com/refract/redirector/internal/cache"
	"github.com/refract/redirector/internal/metrics"
	"github.com/refract/redirector/internal/model"
	"github.com/refract/redirector/internal/repository"
)

// Resolver errors.
var (
	ErrNotFound         = errors.New("link not found")
	ErrExpired          = errors.New("link is expired")
	ErrStoreUnavailable = errors.New("link store unavailable")
)

// Store reads link records.
type Store interface {
	GetLinkRecord(ctx context.Context, shortCode string) (*model.LinkRecord, error)
}

// Cache is the tiered cache contract used by the resolver.
type Cache interface {
	Get(ctx context.Context, key string) (string, model.CacheTier, bool)
	SetWithStrategy(ctx context.Context, key, value string, s cache.Strategy) error
	Stats() cache.Stats
}

// ClickSink receives one observation per served redirect.
type ClickSink interface {
	Capture(obs analytics.Observation, req analytics.RequestInfo)
}

// Result is a successful resolution.
type Result struct {
	Destination string
	LinkID      int64
	Tier        model.CacheTier
	Latency     time.Duration
}

// Resolver resolves short codes. It is safe for concurrent use.
type Resolver struct {
	store     Store
	cache     Cache
	coalescer *cache.Coalescer
	sink      ClickSink
	logger    *slog.Logger
	metrics   metrics.Recorder
	now       func() time.Time
}

// New creates a Resolver. sink may be nil to disable click capture.
func New(store Store, c Cache, coalescer *cache.Coalescer, sink ClickSink, logger *slog.Logger, recorder metrics.Recorder) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if coalescer == nil {
		coalescer = cache.NewCoalescer(0)
	}
	return &Resolver{
		store:     store,
		cache:     c,
		coalescer: coalescer,
		sink:      sink,
		logger:    logger.With("component", "resolver"),
		metrics:   recorder,
		now:       time.Now,
	}
}

// Resolve returns the destination for shortCode.
//
// Cache hits never touch the store. On a miss, concurrent callers for the same
// code share a single store query. Only redirect-eligible records are cached,
// and an expiring record is cached no longer than its remaining lifetime.
func (r *Resolver) Resolve(ctx context.Context, shortCode string) (*Result, error) {
	start := time.Now()
	key := CacheKey(shortCode)

	if raw, tier, ok := r.cache.Get(ctx, key); ok {
		e, err := decodeEntry(raw)
		if err == nil {
			return r.served(ctx, shortCode, e, tier, start), nil
		}
		r.logger.Warn("unreadable cache entry, falling back to store",
			"short_code", shortCode,
			"tier", tier,
			"error", err,
		)
	}

	v, shared, err := r.coalescer.Do(ctx, shortCode, func(loadCtx context.Context) (any, error) {
		return r.load(loadCtx, shortCode, key)
	})
	if err != nil {
		r.recordFailure(shortCode, err)
		return nil, err
	}

	if shared {
		r.logger.Debug("coalesced store load", "short_code", shortCode)
	}

	return r.served(ctx, shortCode, v.(entry), model.TierDB, start), nil
}

// load runs once per coalesced group.
func (r *Resolver) load(ctx context.Context, shortCode, key string) (entry, error) {
	rec, err := r.store.GetLinkRecord(ctx, shortCode)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return entry{}, ErrNotFound
		}
		return entry{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if !rec.IsActive() {
		return entry{}, ErrNotFound
	}

	strategy := cache.DefaultTTL()
	if remaining, ok := rec.RemainingAt(r.now()); ok {
		if remaining <= 0 {
			return entry{}, ErrExpired
		}
		strategy = cache.CustomTTL(remaining)
	}

	e := entry{Destination: rec.Destination, LinkID: rec.ID}

	raw, err := encodeEntry(e)
	if err != nil {
		r.logger.Warn("failed to encode cache entry", "short_code", shortCode, "error", err)
		return e, nil
	}
	if err := r.cache.SetWithStrategy(ctx, key, raw, strategy); err != nil {
		r.logger.Warn("failed to populate cache",
			"short_code", shortCode,
			"error", err,
		)
	}

	return e, nil
}

func (r *Resolver) served(ctx context.Context, shortCode string, e entry, tier model.CacheTier, start time.Time) *Result {
	latency := time.Since(start)

	r.metrics.ObserveResolveDuration(string(tier), latency)
	r.metrics.IncResolveOutcome(metrics.OutcomeRedirected)

	if r.sink != nil {
		r.sink.Capture(analytics.Observation{
			LinkID:    e.LinkID,
			ShortCode: shortCode,
			Tier:      tier,
			Latency:   latency,
		}, analytics.RequestInfoFromContext(ctx))
	}

	r.logger.Info("redirect resolved",
		"short_code", shortCode,
		"tier", tier,
		"latency_ms", float64(latency.Microseconds())/1000,
	)

	return &Result{
		Destination: e.Destination,
		LinkID:      e.LinkID,
		Tier:        tier,
		Latency:     latency,
	}
}

func (r *Resolver) recordFailure(shortCode string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		r.metrics.IncResolveOutcome(metrics.OutcomeNotFound)
	case errors.Is(err, ErrExpired):
		r.metrics.IncResolveOutcome(metrics.OutcomeExpired)
	case errors.Is(err, context.Canceled):
		r.logger.Debug("caller gone before resolution", "short_code", shortCode)
	default:
		r.metrics.IncResolveOutcome(metrics.OutcomeUnavailable)
		r.logger.Error("failed to resolve short code",
			"short_code", shortCode,
			"error", err,
		)
	}
}

// Stats returns cache statistics including callers waiting on a shared load.
func (r *Resolver) Stats() cache.Stats {
	s := r.cache.Stats()
	s.InFlight = r.coalescer.InFlight()
	return s
}
