package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/refract/redirector/internal/analytics"
	"github.com/refract/redirector/internal/middleware"
	"github.com/refract/redirector/internal/resolver"
)

// Resolver maps a short code to its destination.
type Resolver interface {
	Resolve(ctx context.Context, shortCode string) (*resolver.Result, error)
}

// RedirectHandler handles redirect requests.
type RedirectHandler struct {
	resolver Resolver
	logger   *slog.Logger
}

// NewRedirectHandler creates a new RedirectHandler.
func NewRedirectHandler(res Resolver, logger *slog.Logger) *RedirectHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedirectHandler{
		resolver: res,
		logger:   logger.With("component", "handler.redirect"),
	}
}

// Redirect handles GET /{shortCode} for URL redirection.
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")
	if shortCode == "" {
		h.writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found")
		return
	}

	ctx := analytics.WithRequestInfo(r.Context(), analytics.RequestInfo{
		ClientIP:  getClientIP(r),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
		RequestID: middleware.GetRequestID(r.Context()),
	})

	start := time.Now()
	result, err := h.resolver.Resolve(ctx, shortCode)
	if err != nil {
		h.handleRedirectError(w, shortCode, err, time.Since(start))
		return
	}

	// Set security headers
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Cache-Control", "private, max-age=0")

	http.Redirect(w, r, result.Destination, http.StatusTemporaryRedirect)
}

// handleRedirectError maps resolution errors to HTTP responses.
func (h *RedirectHandler) handleRedirectError(w http.ResponseWriter, shortCode string, err error, duration time.Duration) {
	durationMS := float64(duration.Microseconds()) / 1000

	switch {
	case errors.Is(err, resolver.ErrNotFound):
		h.logger.Info("redirect_not_found",
			"short_code", shortCode,
			"duration_ms", durationMS,
		)
		h.writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found")

	case errors.Is(err, resolver.ErrExpired):
		h.logger.Info("redirect_expired",
			"short_code", shortCode,
			"duration_ms", durationMS,
		)
		h.writeError(w, http.StatusGone, "LINK_EXPIRED", "Link has expired")

	case errors.Is(err, context.Canceled):
		h.logger.Debug("redirect_canceled",
			"short_code", shortCode,
			"duration_ms", durationMS,
		)

	default:
		h.logger.Error("redirect_error",
			"short_code", shortCode,
			"error", err,
			"duration_ms", durationMS,
		)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes a JSON error response for redirect failures.
func (h *RedirectHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	// Set security headers even on errors
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=0")

	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// getClientIP extracts the client IP address from the request.
func getClientIP(r *http.Request) string {
	// Check Cloudflare header first
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}
	// Check X-Forwarded-For, first hop is the client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}
	return r.RemoteAddr
}
