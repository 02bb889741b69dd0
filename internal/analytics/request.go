package analytics

import (
	"context"
	"time"

	"github.com/refract/redirector/internal/model"
)

// Observation is what the resolver knows about a served redirect.
type Observation struct {
	LinkID    int64
	ShortCode string
	Tier      model.CacheTier
	Latency   time.Duration
}

// RequestInfo is what the inbound request contributes to a click event.
type RequestInfo struct {
	ClientIP  string
	UserAgent string
	Referrer  string
	RequestID string
}

type requestInfoKey struct{}

// WithRequestInfo attaches request metadata for click capture.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFromContext returns the metadata set by WithRequestInfo.
func RequestInfoFromContext(ctx context.Context) RequestInfo {
	if info, ok := ctx.Value(requestInfoKey{}).(RequestInfo); ok {
		return info
	}
	return RequestInfo{}
}
