package analytics

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/refract/redirector/internal/model"
)

const (
	minShortCodeLength = 1
	maxShortCodeLength = 50
)

// ErrInvalidEvent is wrapped by every validation failure.
var ErrInvalidEvent = errors.New("invalid click event")

// ValidateClickEvent checks that ev is complete before it is buffered.
func ValidateClickEvent(ev *model.ClickEvent) error {
	if ev == nil {
		return fmt.Errorf("%w: nil event", ErrInvalidEvent)
	}
	if ev.EventID == "" {
		return fmt.Errorf("%w: event_id is required", ErrInvalidEvent)
	}
	if len(ev.ShortCode) < minShortCodeLength || len(ev.ShortCode) > maxShortCodeLength {
		return fmt.Errorf("%w: short_code length out of bounds", ErrInvalidEvent)
	}
	if ev.LinkID <= 0 {
		return fmt.Errorf("%w: link_id must be positive", ErrInvalidEvent)
	}
	if ev.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp must be set", ErrInvalidEvent)
	}
	if ev.IPAddress != "" {
		addr, err := netip.ParseAddr(ev.IPAddress)
		if err != nil {
			return fmt.Errorf("%w: ip_address is not an address", ErrInvalidEvent)
		}
		if AnonymizeIP(addr) != addr {
			return fmt.Errorf("%w: ip_address is not anonymized", ErrInvalidEvent)
		}
	}
	if ev.CountryCode != nil && len(*ev.CountryCode) != 2 {
		return fmt.Errorf("%w: country_code must be 2 chars", ErrInvalidEvent)
	}
	if !ev.DeviceType.IsValid() {
		return fmt.Errorf("%w: unknown device_type %q", ErrInvalidEvent, ev.DeviceType)
	}
	if !ev.CacheTier.IsValid() {
		return fmt.Errorf("%w: unknown cache_tier %q", ErrInvalidEvent, ev.CacheTier)
	}
	if ev.LatencyMS < 0 {
		return fmt.Errorf("%w: latency_ms must not be negative", ErrInvalidEvent)
	}
	if len(ev.Referrer) > maxMetaLength {
		return fmt.Errorf("%w: referrer too long", ErrInvalidEvent)
	}
	if len(ev.UserAgent) > maxMetaLength {
		return fmt.Errorf("%w: user_agent too long", ErrInvalidEvent)
	}
	return nil
}
