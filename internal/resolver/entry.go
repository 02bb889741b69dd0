package resolver

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// cacheKeyPrefix namespaces redirect entries in the shared cache.
const cacheKeyPrefix = "redirect:"

var errEmptyEntry = errors.New("cache entry has no destination")

// entry is the cached form of a redirect-eligible record.
type entry struct {
	Destination string `json:"d"`
	LinkID      int64  `json:"id"`
}

// CacheKey returns the cache key for a short code.
func CacheKey(shortCode string) string {
	return cacheKeyPrefix + shortCode
}

func encodeEntry(e entry) (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode cache entry: %w", err)
	}
	return string(b), nil
}

func decodeEntry(raw string) (entry, error) {
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return entry{}, fmt.Errorf("decode cache entry: %w", err)
	}
	if e.Destination == "" {
		return entry{}, errEmptyEntry
	}
	return e, nil
}
