package analytics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/refract/redirector/internal/cache"
)

// PayloadField is the stream entry field holding the JSON event.
const PayloadField = "data"

// Stream appends serialized events to a durable log trimmed to maxLen entries.
type Stream interface {
	Append(ctx context.Context, payload []byte, maxLen int64) error
}

// RedisStream appends events to a Redis stream with XADD MAXLEN ~.
type RedisStream struct {
	client  *redis.Client
	key     string
	breaker *gobreaker.CircuitBreaker[any]
}

// NewRedisStream creates a stream sink for key.
func NewRedisStream(client *redis.Client, key string, cfg cache.BreakerConfig, logger *slog.Logger) *RedisStream {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = "redis-stream"
	}
	return &RedisStream{
		client:  client,
		key:     key,
		breaker: cache.NewBreaker(cfg, logger.With("component", "analytics.stream")),
	}
}

// Append adds one entry to the stream.
func (s *RedisStream) Append(ctx context.Context, payload []byte, maxLen int64) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return s.client.XAdd(ctx, &redis.XAddArgs{
			Stream: s.key,
			MaxLen: maxLen,
			Approx: true, // ~MAXLEN for performance
			ID:     "*",  // Auto-generate ID
			Values: map[string]any{
				PayloadField: string(payload),
			},
		}).Result()
	})
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.key, err)
	}
	return nil
}

// Key returns the stream key.
func (s *RedisStream) Key() string {
	return s.key
}
