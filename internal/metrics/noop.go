package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncCacheResult is a no-op.
func (n *NoopRecorder) IncCacheResult(result string) {}

// IncCacheError is a no-op.
func (n *NoopRecorder) IncCacheError(tier, op string) {}

// ObserveResolveDuration is a no-op.
func (n *NoopRecorder) ObserveResolveDuration(tier string, duration time.Duration) {}

// IncResolveOutcome is a no-op.
func (n *NoopRecorder) IncResolveOutcome(outcome string) {}

// AddClickEvents is a no-op.
func (n *NoopRecorder) AddClickEvents(status string, count int) {}

// SetClickBufferDepth is a no-op.
func (n *NoopRecorder) SetClickBufferDepth(depth int) {}

// ObserveFlush is a no-op.
func (n *NoopRecorder) ObserveFlush(size int, duration time.Duration) {}
