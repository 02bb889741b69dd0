// Package cache provides the two-tier redirect cache: an in-process L1 tier,
// a shared Redis L2 tier and the facade that coordinates them.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
)

// ErrCacheMiss is returned by a tier when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// NewRedisClient creates a Redis client from a URL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Connection pool settings
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

// BreakerConfig controls when a Redis-backed component stops calling Redis.
type BreakerConfig struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
}

// NewBreaker builds a circuit breaker that trips after MaxFailures consecutive
// failures. redis.Nil is a normal reply and a caller's canceled or expired
// context says nothing about Redis, so neither counts as a failure.
func NewBreaker(cfg BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[any] {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: breakerNeutral,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
}

func breakerNeutral(err error) bool {
	return err == nil ||
		errors.Is(err, redis.Nil) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// PTTL replies for a missing key and a key without expiry. go-redis keeps
// them as raw durations.
const (
	pttlMissing  = time.Duration(-2)
	pttlNoExpiry = time.Duration(-1)
)

// remainingTTL maps a PTTL reply to the TTL a promoted copy may use.
// ok is false when the key vanished after the GET.
func remainingTTL(pttl time.Duration) (ttl time.Duration, ok bool) {
	switch {
	case pttl == pttlMissing:
		return 0, false
	case pttl == pttlNoExpiry:
		return 0, true
	case pttl <= 0:
		return 0, false
	default:
		return pttl, true
	}
}

// RedisTier is the shared L2 tier.
type RedisTier struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker[any]
}

// NewRedisTier wraps a Redis client in a circuit breaker.
func NewRedisTier(client *redis.Client, cfg BreakerConfig, logger *slog.Logger) *RedisTier {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = "redis-cache"
	}
	return &RedisTier{
		client:  client,
		breaker: NewBreaker(cfg, logger.With("component", "cache.redis")),
	}
}

type redisValue struct {
	value string
	ttl   time.Duration
}

// Get returns the value for key and its remaining TTL.
// The TTL is zero when Redis reports no expiry.
func (t *RedisTier) Get(ctx context.Context, key string) (string, time.Duration, error) {
	res, err := t.breaker.Execute(func() (any, error) {
		pipe := t.client.Pipeline()
		getCmd := pipe.Get(ctx, key)
		ttlCmd := pipe.PTTL(ctx, key)

		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return nil, err
		}

		value, err := getCmd.Result()
		if err != nil {
			return nil, err
		}

		ttl, ok := remainingTTL(ttlCmd.Val())
		if !ok {
			// Expired between GET and PTTL.
			return nil, redis.Nil
		}
		return redisValue{value: value, ttl: ttl}, nil
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", 0, ErrCacheMiss
		}
		return "", 0, fmt.Errorf("redis get %s: %w", key, err)
	}

	rv := res.(redisValue)
	return rv.value, rv.ttl, nil
}

// Set stores value under key with the given TTL.
func (t *RedisTier) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := t.breaker.Execute(func() (any, error) {
		return nil, t.client.Set(ctx, key, value, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// BreakerState reports the breaker state for health output.
func (t *RedisTier) BreakerState() string {
	return t.breaker.State().String()
}

// Ping checks Redis connectivity.
func (t *RedisTier) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

// Client returns the underlying Redis client.
// Use sparingly - prefer adding methods to RedisTier.
func (t *RedisTier) Client() *redis.Client {
	return t.client
}
