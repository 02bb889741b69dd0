package cache

import (
	"errors"
	"time"
)

// ErrInvalidTTL is returned when a strategy resolves to a non-positive TTL.
var ErrInvalidTTL = errors.New("cache ttl must be positive")

// Strategy selects the TTL applied by SetWithStrategy.
type Strategy struct {
	custom bool
	ttl    time.Duration
}

// DefaultTTL applies the facade's configured default TTL.
func DefaultTTL() Strategy {
	return Strategy{}
}

// CustomTTL applies d.
func CustomTTL(d time.Duration) Strategy {
	return Strategy{custom: true, ttl: d}
}

// IsCustom reports whether the strategy carries its own duration.
func (s Strategy) IsCustom() bool {
	return s.custom
}

// TTL resolves the strategy against the facade default.
func (s Strategy) TTL(defaultTTL time.Duration) (time.Duration, error) {
	ttl := defaultTTL
	if s.custom {
		ttl = s.ttl
	}
	if ttl <= 0 {
		return 0, ErrInvalidTTL
	}
	return ttl, nil
}
