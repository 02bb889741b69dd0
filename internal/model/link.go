// Package model defines domain entities for the application.
package model

import "time"

// LinkStatus is the stored status of a short link.
type LinkStatus string

const (
	LinkStatusActive   LinkStatus = "active"
	LinkStatusInactive LinkStatus = "inactive"
)

// LinkRecord is a read-only snapshot of a short link as stored in the durable store.
type LinkRecord struct {
	ID          int64      `json:"id"`
	ShortCode   string     `json:"short_code"`
	Destination string     `json:"destination"`
	Status      LinkStatus `json:"status"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// IsActive reports whether the link is enabled for redirects.
func (l *LinkRecord) IsActive() bool {
	return l.Status == LinkStatusActive
}

// IsExpiredAt reports whether the link's expiry is at or before now.
// Links without an expiry never expire.
func (l *LinkRecord) IsExpiredAt(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

// IsEligibleAt reports whether the link may be served as a redirect at now.
func (l *LinkRecord) IsEligibleAt(now time.Time) bool {
	return l.IsActive() && !l.IsExpiredAt(now)
}

// RemainingAt returns the time left until expiry, truncated to whole seconds.
// The second return value is false when the link has no expiry.
func (l *LinkRecord) RemainingAt(now time.Time) (time.Duration, bool) {
	if l.ExpiresAt == nil {
		return 0, false
	}
	remaining := l.ExpiresAt.Sub(now).Truncate(time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}
