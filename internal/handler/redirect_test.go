package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/refract/redirector/internal/analytics"
	"github.com/refract/redirector/internal/middleware"
	"github.com/refract/redirector/internal/model"
	"github.com/refract/redirector/internal/resolver"
)

type fakeResolver struct {
	mu     sync.Mutex
	result *resolver.Result
	err    error
	codes  []string
	info   analytics.RequestInfo
}

func (f *fakeResolver) Resolve(ctx context.Context, shortCode string) (*resolver.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, shortCode)
	f.info = analytics.RequestInfoFromContext(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newRedirectRouter(res Resolver) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewRedirectHandler(res, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Get("/{shortCode}", h.Redirect)
	return r
}

func TestRedirectHandler_Success(t *testing.T) {
	res := &fakeResolver{result: &resolver.Result{
		Destination: "https://example.com/landing",
		LinkID:      42,
		Tier:        model.TierL1,
	}}
	router := newRedirectRouter(res)

	req := httptest.NewRequest(http.MethodGet, "/abc123", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Referer", "https://news.example.org/post?id=1")
	req.Header.Set(middleware.RequestIDHeader, "req-1")
	req.RemoteAddr = "198.51.100.7:51234"
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected status 307, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://example.com/landing" {
		t.Errorf("unexpected Location: %s", loc)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff header")
	}
	if rec.Header().Get("Cache-Control") != "private, max-age=0" {
		t.Errorf("unexpected Cache-Control: %s", rec.Header().Get("Cache-Control"))
	}

	if len(res.codes) != 1 || res.codes[0] != "abc123" {
		t.Fatalf("unexpected resolve calls: %v", res.codes)
	}

	want := analytics.RequestInfo{
		ClientIP:  "198.51.100.7:51234",
		UserAgent: "Mozilla/5.0",
		Referrer:  "https://news.example.org/post?id=1",
		RequestID: "req-1",
	}
	if res.info != want {
		t.Errorf("request info = %+v, want %+v", res.info, want)
	}
}

func TestRedirectHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "not found",
			err:        resolver.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "LINK_NOT_FOUND",
		},
		{
			name:       "expired",
			err:        resolver.ErrExpired,
			wantStatus: http.StatusGone,
			wantCode:   "LINK_EXPIRED",
		},
		{
			name:       "store unavailable",
			err:        errors.Join(resolver.ErrStoreUnavailable, errors.New("connection refused")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRedirectRouter(&fakeResolver{err: tt.err})

			req := httptest.NewRequest(http.MethodGet, "/missing", nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if rec.Header().Get("Location") != "" {
				t.Error("error response must not redirect")
			}

			var response ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, response.Code)
			}
		})
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "cloudflare wins",
			headers: map[string]string{"CF-Connecting-IP": "203.0.113.9", "X-Forwarded-For": "198.51.100.1"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.9",
		},
		{
			name:    "first forwarded hop",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.2, 10.0.0.3"},
			remote:  "10.0.0.1:1234",
			want:    "198.51.100.1",
		},
		{
			name:    "real ip",
			headers: map[string]string{"X-Real-IP": " 198.51.100.2 "},
			remote:  "10.0.0.1:1234",
			want:    "198.51.100.2",
		},
		{
			name:   "remote addr",
			remote: "198.51.100.3:4321",
			want:   "198.51.100.3:4321",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
