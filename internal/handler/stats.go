package handler

import (
	"net/http"

	"github.com/refract/redirector/internal/cache"
)

// StatsProvider reports cache counters.
type StatsProvider interface {
	Stats() cache.Stats
}

// StatsHandler exposes cache statistics for operators.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// CacheStats returns hit counters and the current hit rate.
//
// GET /internal/cache-stats
func (h *StatsHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error: "cache not configured",
			Code:  "UNAVAILABLE",
		})
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, h.provider.Stats())
}
