package handler

import (
	"context"
	"net/http"
	"time"
)

// Readiness states.
const (
	StatusOK        = "ok"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const readinessTimeout = 2 * time.Second

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// BreakerReporter is implemented by dependencies guarded by a circuit breaker.
type BreakerReporter interface {
	BreakerState() string
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	store HealthChecker
	cache HealthChecker
}

// NewHealthHandler creates a new HealthHandler.
// Pass nil for store or cache if they are not configured.
func NewHealthHandler(store, cache HealthChecker) *HealthHandler {
	return &HealthHandler{
		store: store,
		cache: cache,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is a liveness probe endpoint. It never checks dependencies.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: StatusOK})
}

// Readyz is a readiness probe endpoint.
//
// Postgres is required: without it misses cannot be served and the probe
// returns 503. Redis is optional: redirects fall back to the local tier and
// Postgres, so a Redis failure reports "degraded" with 200.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := make(map[string]string, 3)
	storeOK := probe(ctx, h.store, "postgres", checks)
	cacheOK := probe(ctx, h.cache, "redis", checks)

	if br, ok := h.cache.(BreakerReporter); ok {
		checks["redis_breaker"] = br.BreakerState()
	}

	resp := HealthResponse{Status: StatusOK, Checks: checks}
	code := http.StatusOK
	switch {
	case !storeOK:
		resp.Status = StatusUnhealthy
		code = http.StatusServiceUnavailable
	case !cacheOK:
		resp.Status = StatusDegraded
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, code, resp)
}

// probe records the result of one dependency ping. An unconfigured
// dependency is reported but does not fail the probe.
func probe(ctx context.Context, c HealthChecker, name string, checks map[string]string) bool {
	if c == nil {
		checks[name] = "not configured"
		return true
	}
	if err := c.Ping(ctx); err != nil {
		checks[name] = "error: " + err.Error()
		return false
	}
	checks[name] = StatusOK
	return true
}
