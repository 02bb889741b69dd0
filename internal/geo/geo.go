// Package geo resolves client addresses to coarse locations using a MaxMind database.
package geo

import (
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/oschwald/maxminddb-golang/v2"
)

// Info holds optional location fields. Any field may be nil.
type Info struct {
	CountryCode *string
	CountryName *string
	City        *string
	Latitude    *float64
	Longitude   *float64
}

type record struct {
	Country struct {
		ISOCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	} `maxminddb:"country"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

// Lookup answers location queries. A Lookup without a database returns nil for
// every address.
type Lookup struct {
	reader *maxminddb.Reader
	logger *slog.Logger
}

// Open loads the database at path.
func Open(path string, logger *slog.Logger) (*Lookup, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &Lookup{reader: reader, logger: logger.With("component", "geo.lookup")}, nil
}

// Disabled returns a Lookup that never resolves anything.
func Disabled() *Lookup {
	return &Lookup{}
}

// Enabled reports whether a database is loaded.
func (g *Lookup) Enabled() bool {
	return g != nil && g.reader != nil
}

// Lookup parses ip and resolves it. Unparseable, private and unknown
// addresses return nil.
func (g *Lookup) Lookup(ip string) *Info {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return nil
	}
	return g.LookupAddr(addr)
}

// LookupAddr resolves addr.
func (g *Lookup) LookupAddr(addr netip.Addr) *Info {
	if !g.Enabled() || !addr.IsValid() {
		return nil
	}

	addr = addr.Unmap()
	if IsPrivate(addr) {
		return nil
	}

	result := g.reader.Lookup(addr)
	if !result.Found() {
		return nil
	}

	var rec record
	if err := result.Decode(&rec); err != nil {
		g.logger.Warn("geoip lookup failed", "ip", addr.String(), "error", err)
		return nil
	}

	info := &Info{}
	if rec.Country.ISOCode != "" {
		code := rec.Country.ISOCode
		info.CountryCode = &code
	}
	if name, ok := rec.Country.Names["en"]; ok {
		info.CountryName = &name
	}
	if name, ok := rec.City.Names["en"]; ok {
		info.City = &name
	}

	// MaxMind reports 0,0 for unknown coordinates; downstream decides.
	lat, lon := rec.Location.Latitude, rec.Location.Longitude
	info.Latitude = &lat
	info.Longitude = &lon

	return info
}

// Close releases the database.
func (g *Lookup) Close() error {
	if !g.Enabled() {
		return nil
	}
	return g.reader.Close()
}

// IsPrivate reports whether addr is never looked up: IPv4 private, loopback,
// link-local or unspecified, and IPv6 loopback or unspecified.
func IsPrivate(addr netip.Addr) bool {
	if addr.Is4() {
		return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified()
	}
	return addr.IsLoopback() || addr.IsUnspecified()
}
