// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Cache result labels.
const (
	ResultL1   = "l1"
	ResultL2   = "l2"
	ResultMiss = "miss"
)

// Resolve outcome labels.
const (
	OutcomeRedirected  = "redirected"
	OutcomeNotFound    = "not_found"
	OutcomeExpired     = "expired"
	OutcomeUnavailable = "unavailable"
)

// Click event status labels.
const (
	EventCaptured  = "captured"
	EventInvalid   = "invalid"
	EventEvicted   = "evicted"
	EventPublished = "published"
	EventFailed    = "failed"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory for tests.
type Recorder interface {
	// Cache metrics
	IncCacheResult(result string)
	IncCacheError(tier, op string)

	// Redirect metrics
	ObserveResolveDuration(tier string, duration time.Duration)
	IncResolveOutcome(outcome string)

	// Click pipeline metrics
	AddClickEvents(status string, n int)
	SetClickBufferDepth(depth int)
	ObserveFlush(size int, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
