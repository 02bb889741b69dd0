package analytics

import (
	"net"
	"net/netip"
	"strings"
)

// AnonymizeIP truncates addr so it no longer identifies a single host.
// IPv4 keeps the first three octets; IPv6 keeps the first 48 bits.
// IPv4-mapped IPv6 addresses are treated as IPv4.
func AnonymizeIP(addr netip.Addr) netip.Addr {
	addr = addr.Unmap()

	switch {
	case addr.Is4():
		b := addr.As4()
		b[3] = 0
		return netip.AddrFrom4(b)
	case addr.Is6():
		b := addr.As16()
		// segments 3..7 (the last 80 bits)
		for i := 6; i < len(b); i++ {
			b[i] = 0
		}
		return netip.AddrFrom16(b)
	default:
		return netip.Addr{}
	}
}

// ParseClientIP accepts a bare address or host:port and returns the address.
func ParseClientIP(raw string) (netip.Addr, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return netip.Addr{}, false
	}

	if addr, err := netip.ParseAddr(strings.Trim(raw, "[]")); err == nil {
		return addr.WithZone(""), true
	}

	host, _, err := net.SplitHostPort(raw)
	if err != nil {
		return netip.Addr{}, false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.WithZone(""), true
}
