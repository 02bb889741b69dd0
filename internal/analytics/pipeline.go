// Package analytics captures anonymized click events and publishes them to a
// durable stream in batches.
//
// Capture never blocks on the network. Events are buffered in memory and
// flushed when the buffer reaches the batch size or the flush interval
// elapses, whichever comes first. Publishing is at-most-once: a failed batch
// is logged and discarded.
package analytics

import (
	"context"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"

	"github.com/refract/redirector/internal/geo"
	"github.com/refract/redirector/internal/metrics"
	"github.com/refract/redirector/internal/model"
	"github.com/refract/redirector/internal/useragent"
)

const (
	// DefaultBatchSize is the buffered event count that triggers a flush.
	DefaultBatchSize = 100

	// DefaultFlushInterval bounds how long an event waits in the buffer.
	DefaultFlushInterval = time.Second

	// DefaultMaxBufferSize is the most events held in memory.
	DefaultMaxBufferSize = 10000

	// DefaultMaxStreamLen is the approximate max length of the stream.
	DefaultMaxStreamLen = 1000000

	// DefaultPublishTimeout is the max time to wait for one stream append.
	DefaultPublishTimeout = 5 * time.Second
)

// Config sizes the pipeline.
type Config struct {
	BatchSize      int
	FlushInterval  time.Duration
	MaxBufferSize  int
	MaxStreamLen   int64
	PublishTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.MaxBufferSize <= 0 {
		c.MaxBufferSize = DefaultMaxBufferSize
	}
	if c.MaxBufferSize < c.BatchSize {
		c.MaxBufferSize = c.BatchSize
	}
	if c.MaxStreamLen <= 0 {
		c.MaxStreamLen = DefaultMaxStreamLen
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = DefaultPublishTimeout
	}
	return c
}

// GeoLookup resolves an anonymized address to a location.
type GeoLookup interface {
	LookupAddr(addr netip.Addr) *geo.Info
}

// UserAgentParser classifies a user agent string.
type UserAgentParser interface {
	Parse(ua string) useragent.Info
}

// Pipeline turns redirect observations into published click events.
type Pipeline struct {
	cfg     Config
	buffer  *Buffer
	stream  Stream
	geo     GeoLookup
	ua      UserAgentParser
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time

	flushCh chan struct{}
	flushMu sync.Mutex

	mu       sync.Mutex
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewPipeline creates a pipeline. geoLookup may be nil to disable geo enrichment.
func NewPipeline(cfg Config, stream Stream, geoLookup GeoLookup, uaParser UserAgentParser, logger *slog.Logger, recorder metrics.Recorder) *Pipeline {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if uaParser == nil {
		uaParser = useragent.NewParser()
	}
	return &Pipeline{
		cfg:     cfg,
		buffer:  NewBuffer(cfg.MaxBufferSize),
		stream:  stream,
		geo:     geoLookup,
		ua:      uaParser,
		logger:  logger.With("component", "analytics.pipeline"),
		metrics: recorder,
		now:     time.Now,
		flushCh: make(chan struct{}, 1),
	}
}

// Capture builds, validates and buffers a click event. It never waits on the
// stream; reaching the batch size only signals the background worker.
func (p *Pipeline) Capture(obs Observation, req RequestInfo) {
	ev := p.buildEvent(obs, req)

	if err := ValidateClickEvent(ev); err != nil {
		p.logger.Warn("dropping invalid click event",
			"short_code", obs.ShortCode,
			"error", err,
		)
		p.metrics.AddClickEvents(metrics.EventInvalid, 1)
		return
	}

	dropped, n := p.buffer.Append(ev)
	if dropped > 0 {
		p.logger.Warn("click buffer full, dropped oldest events",
			"dropped", dropped,
			"max_buffer_size", p.cfg.MaxBufferSize,
		)
		p.metrics.AddClickEvents(metrics.EventEvicted, dropped)
	}
	p.metrics.AddClickEvents(metrics.EventCaptured, 1)
	p.metrics.SetClickBufferDepth(n)

	if n >= p.cfg.BatchSize {
		select {
		case p.flushCh <- struct{}{}:
		default:
		}
	}
}

func (p *Pipeline) buildEvent(obs Observation, req RequestInfo) *model.ClickEvent {
	now := p.now().UTC()

	ev := &model.ClickEvent{
		EventID:   ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		LinkID:    obs.LinkID,
		ShortCode: obs.ShortCode,
		Timestamp: now,
		UserAgent: TruncateUserAgent(req.UserAgent),
		Referrer:  SanitizeReferrer(req.Referrer),
		CacheTier: obs.Tier,
		LatencyMS: float64(obs.Latency.Microseconds()) / 1000,
		RequestID: req.RequestID,
	}

	if addr, ok := ParseClientIP(req.ClientIP); ok {
		anon := AnonymizeIP(addr)
		ev.IPAddress = anon.String()

		if p.geo != nil {
			if info := p.geo.LookupAddr(anon); info != nil {
				ev.CountryCode = info.CountryCode
				ev.CountryName = info.CountryName
				ev.City = info.City
				ev.Latitude = info.Latitude
				ev.Longitude = info.Longitude
			}
		}
	}

	uaInfo := p.ua.Parse(req.UserAgent)
	ev.DeviceType = uaInfo.DeviceType
	ev.Browser = uaInfo.Browser
	ev.OperatingSystem = uaInfo.OS

	return ev
}

// Start launches the background flush worker. Calling Start more than once,
// or after Shutdown, does nothing.
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started || p.stopped {
		return
	}
	p.started = true

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(ctx, p.done)

	p.logger.Info("click pipeline started",
		"batch_size", p.cfg.BatchSize,
		"flush_interval", p.cfg.FlushInterval,
		"max_buffer_size", p.cfg.MaxBufferSize,
	)
}

func (p *Pipeline) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Flush(context.Background())
		case <-p.flushCh:
			p.Flush(context.Background())
		}
	}
}

// Flush publishes everything currently buffered. Flushes are serialized so
// stream order matches capture order. On the first publish error the rest of
// the batch is discarded.
func (p *Pipeline) Flush(ctx context.Context) {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	events := p.buffer.Drain()
	p.metrics.SetClickBufferDepth(p.buffer.Len())
	if len(events) == 0 {
		return
	}

	start := time.Now()
	published := 0

	for i, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			p.logger.Warn("failed to encode click event",
				"event_id", ev.EventID,
				"error", err,
			)
			p.metrics.AddClickEvents(metrics.EventFailed, 1)
			continue
		}

		pubCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
		err = p.stream.Append(pubCtx, payload, p.cfg.MaxStreamLen)
		cancel()

		if err != nil {
			lost := len(events) - i
			p.logger.Warn("failed to publish click events, dropping batch",
				"published", published,
				"dropped", lost,
				"error", err,
			)
			p.metrics.AddClickEvents(metrics.EventFailed, lost)
			break
		}
		published++
	}

	p.metrics.AddClickEvents(metrics.EventPublished, published)
	p.metrics.ObserveFlush(len(events), time.Since(start))

	p.logger.Debug("click events flushed",
		"count", len(events),
		"published", published,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Shutdown stops the worker and flushes the buffer once.
// It implements server.ShutdownFunc for integration with graceful shutdown.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	var err error

	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		cancel := p.cancel
		done := p.done
		p.mu.Unlock()

		p.logger.Info("click pipeline shutdown initiated", "buffered", p.buffer.Len())

		if cancel != nil {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
				p.logger.Warn("click pipeline worker did not stop before deadline")
				err = ctx.Err()
				return
			}
		}

		p.Flush(ctx)
		p.logger.Info("click pipeline shutdown complete")
	})

	return err
}

// Len returns the number of buffered events.
func (p *Pipeline) Len() int {
	return p.buffer.Len()
}
