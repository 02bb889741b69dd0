package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// LocalTier is the in-process L1 tier. Entries are bounded by count and by TTL.
type LocalTier struct {
	cache *ristretto.Cache[string, string]
	ttl   time.Duration
}

// NewLocalTier creates an L1 tier holding roughly capacity entries,
// each for at most ttl.
func NewLocalTier(capacity int64, ttl time.Duration) (*LocalTier, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("l1 capacity must be positive, got %d", capacity)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("l1 ttl must be positive, got %s", ttl)
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters:        capacity * 10,
		MaxCost:            capacity,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create l1 cache: %w", err)
	}

	return &LocalTier{cache: c, ttl: ttl}, nil
}

// Get returns the cached value for key.
func (l *LocalTier) Get(key string) (string, bool) {
	return l.cache.Get(key)
}

// Set stores value for min(ttl, the tier's own TTL).
// A non-positive ttl means the tier's own TTL.
func (l *LocalTier) Set(key, value string, ttl time.Duration) {
	if ttl <= 0 || ttl > l.ttl {
		ttl = l.ttl
	}
	l.cache.SetWithTTL(key, value, 1, ttl)
	l.cache.Wait()
}

// Del removes key.
func (l *LocalTier) Del(key string) {
	l.cache.Del(key)
}

// TTL returns the tier's maximum entry lifetime.
func (l *LocalTier) TTL() time.Duration {
	return l.ttl
}

// Close stops the tier's background goroutines.
func (l *LocalTier) Close() {
	l.cache.Close()
}
