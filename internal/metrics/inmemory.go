package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	CacheResults         map[string]uint64
	CacheErrors          uint64
	ResolveOutcomes      map[string]uint64
	ResolveDurationCount uint64
	ClickEvents          map[string]uint64
	ClickBufferDepth     int64
	FlushCount           uint64
	FlushedEvents        uint64
	FlushDurationTotalNs int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu              sync.Mutex
	cacheResults    map[string]uint64
	resolveOutcomes map[string]uint64
	clickEvents     map[string]uint64

	cacheErrors          uint64
	resolveDurationCount uint64
	clickBufferDepth     int64
	flushCount           uint64
	flushedEvents        uint64
	flushDurationTotalNs int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		cacheResults:    make(map[string]uint64),
		resolveOutcomes: make(map[string]uint64),
		clickEvents:     make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		CacheResults:         copyCounts(m.cacheResults),
		CacheErrors:          atomic.LoadUint64(&m.cacheErrors),
		ResolveOutcomes:      copyCounts(m.resolveOutcomes),
		ResolveDurationCount: atomic.LoadUint64(&m.resolveDurationCount),
		ClickEvents:          copyCounts(m.clickEvents),
		ClickBufferDepth:     atomic.LoadInt64(&m.clickBufferDepth),
		FlushCount:           atomic.LoadUint64(&m.flushCount),
		FlushedEvents:        atomic.LoadUint64(&m.flushedEvents),
		FlushDurationTotalNs: atomic.LoadInt64(&m.flushDurationTotalNs),
	}
}

// IncCacheResult increments the counter for a cache result.
func (m *InMemoryRecorder) IncCacheResult(result string) {
	m.mu.Lock()
	m.cacheResults[result]++
	m.mu.Unlock()
}

// IncCacheError increments the cache error counter.
func (m *InMemoryRecorder) IncCacheError(tier, op string) {
	atomic.AddUint64(&m.cacheErrors, 1)
}

// ObserveResolveDuration records resolve duration.
func (m *InMemoryRecorder) ObserveResolveDuration(tier string, duration time.Duration) {
	atomic.AddUint64(&m.resolveDurationCount, 1)
}

// IncResolveOutcome increments the counter for a resolve outcome.
func (m *InMemoryRecorder) IncResolveOutcome(outcome string) {
	m.mu.Lock()
	m.resolveOutcomes[outcome]++
	m.mu.Unlock()
}

// AddClickEvents adds n to the counter for a click event status.
func (m *InMemoryRecorder) AddClickEvents(status string, n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.clickEvents[status] += uint64(n)
	m.mu.Unlock()
}

// SetClickBufferDepth stores the current buffer depth.
func (m *InMemoryRecorder) SetClickBufferDepth(depth int) {
	atomic.StoreInt64(&m.clickBufferDepth, int64(depth))
}

// ObserveFlush records a flushed batch.
func (m *InMemoryRecorder) ObserveFlush(size int, duration time.Duration) {
	atomic.AddUint64(&m.flushCount, 1)
	atomic.AddUint64(&m.flushedEvents, uint64(size))
	atomic.AddInt64(&m.flushDurationTotalNs, duration.Nanoseconds())
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
