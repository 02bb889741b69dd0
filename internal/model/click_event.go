package model

import "time"

// CacheTier identifies which layer served a redirect.
type CacheTier string

const (
	TierL1 CacheTier = "l1"
	TierL2 CacheTier = "l2"
	TierDB CacheTier = "db"
)

// IsValid checks if the tier is one of the known tiers.
func (t CacheTier) IsValid() bool {
	return t == TierL1 || t == TierL2 || t == TierDB
}

// DeviceType is the coarse client device classification.
type DeviceType string

const (
	DeviceDesktop DeviceType = "desktop"
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceBot     DeviceType = "bot"
)

// IsValid checks if the device type is one of the known classifications.
func (d DeviceType) IsValid() bool {
	switch d {
	case DeviceDesktop, DeviceMobile, DeviceTablet, DeviceBot:
		return true
	}
	return false
}

// ClickEvent represents a single anonymized redirect event.
// Events are immutable once built and are discarded after publication.
type ClickEvent struct {
	EventID   string    `json:"event_id"` // ULID (time-sortable)
	LinkID    int64     `json:"link_id"`
	ShortCode string    `json:"short_code"`
	Timestamp time.Time `json:"timestamp"`

	// Request metadata
	IPAddress string `json:"ip_address"` // anonymized
	UserAgent string `json:"user_agent"`
	Referrer  string `json:"referrer,omitempty"`

	// Optional geo; all absent when lookup fails or the address is private
	CountryCode *string  `json:"country_code,omitempty"` // ISO 3166-1 alpha-2
	CountryName *string  `json:"country_name,omitempty"`
	City        *string  `json:"city,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`

	// User agent classification
	DeviceType      DeviceType `json:"device_type"`
	Browser         string     `json:"browser,omitempty"`
	OperatingSystem string     `json:"operating_system,omitempty"`

	// Serving metadata
	CacheTier CacheTier `json:"cache_tier"`
	LatencyMS float64   `json:"latency_ms"`
	RequestID string    `json:"request_id"`
}
