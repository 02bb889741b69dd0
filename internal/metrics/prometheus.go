package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder exports metrics through a Prometheus registry.
type PrometheusRecorder struct {
	cacheResults    *prometheus.CounterVec
	cacheErrors     *prometheus.CounterVec
	resolveDuration *prometheus.HistogramVec
	resolveOutcomes *prometheus.CounterVec
	clickEvents     *prometheus.CounterVec
	bufferDepth     prometheus.Gauge
	flushSize       prometheus.Histogram
	flushDuration   prometheus.Histogram
}

// NewPrometheus registers the redirector collectors with reg.
func NewPrometheus(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		cacheResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redirector_cache_results_total",
			Help: "Cache lookups by the tier that answered (l1, l2, miss)",
		}, []string{"result"}),
		cacheErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redirector_cache_errors_total",
			Help: "Cache tier errors treated as misses",
		}, []string{"tier", "op"}),
		resolveDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "redirector_resolve_duration_seconds",
			Help:    "Short code resolution latency in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"tier"}),
		resolveOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redirector_resolve_total",
			Help: "Short code resolutions by outcome",
		}, []string{"outcome"}),
		clickEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redirector_click_events_total",
			Help: "Click events by pipeline status",
		}, []string{"status"}),
		bufferDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "redirector_click_buffer_depth",
			Help: "Click events waiting in the buffer",
		}),
		flushSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "redirector_click_flush_size",
			Help:    "Events per flushed batch",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "redirector_click_flush_duration_seconds",
			Help:    "Time spent publishing a batch to the stream",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// IncCacheResult increments the cache result counter.
func (p *PrometheusRecorder) IncCacheResult(result string) {
	p.cacheResults.WithLabelValues(result).Inc()
}

// IncCacheError increments the cache error counter.
func (p *PrometheusRecorder) IncCacheError(tier, op string) {
	p.cacheErrors.WithLabelValues(tier, op).Inc()
}

// ObserveResolveDuration records resolution latency by serving tier.
func (p *PrometheusRecorder) ObserveResolveDuration(tier string, duration time.Duration) {
	p.resolveDuration.WithLabelValues(tier).Observe(duration.Seconds())
}

// IncResolveOutcome increments the resolve outcome counter.
func (p *PrometheusRecorder) IncResolveOutcome(outcome string) {
	p.resolveOutcomes.WithLabelValues(outcome).Inc()
}

// AddClickEvents adds n events to the status counter.
func (p *PrometheusRecorder) AddClickEvents(status string, n int) {
	if n <= 0 {
		return
	}
	p.clickEvents.WithLabelValues(status).Add(float64(n))
}

// SetClickBufferDepth sets the buffer depth gauge.
func (p *PrometheusRecorder) SetClickBufferDepth(depth int) {
	p.bufferDepth.Set(float64(depth))
}

// ObserveFlush records batch size and publish duration.
func (p *PrometheusRecorder) ObserveFlush(size int, duration time.Duration) {
	p.flushSize.Observe(float64(size))
	p.flushDuration.Observe(duration.Seconds())
}
