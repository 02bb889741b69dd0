package testutil

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/refract/redirector/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

// NewMiniredis starts an in-memory Redis server and returns it with a connected client.
// Both are closed when the test finishes.
func NewMiniredis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestRecord creates an active record without expiry.
func NewTestRecord(t testing.TB, shortCode string) *model.LinkRecord {
	t.Helper()
	return &model.LinkRecord{
		ID:          time.Now().UnixNano()%1_000_000 + 1,
		ShortCode:   shortCode,
		Destination: "https://example.com/" + shortCode,
		Status:      model.LinkStatusActive,
	}
}

// NewTestRecordWithExpiry creates an active record with an expiry time.
func NewTestRecordWithExpiry(t testing.TB, shortCode string, expiresAt time.Time) *model.LinkRecord {
	t.Helper()
	rec := NewTestRecord(t, shortCode)
	rec.ExpiresAt = &expiresAt
	return rec
}

// UniqueShortCode generates a unique short code for tests.
func UniqueShortCode(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
