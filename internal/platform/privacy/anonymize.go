// Package privacy reduces personal data before it reaches logs.
package privacy

import (
	"net/netip"
)

const (
	ipv4Bits = 24
	ipv6Bits = 48
)

// AnonymizeIP returns the network an address belongs to rather than the
// address itself: the /24 for IPv4 and the /48 for IPv6, in CIDR form
// ("192.168.1.47" -> "192.168.1.0/24").
//
// IPv4-mapped IPv6 addresses ("::ffff:192.168.1.47") are unmapped first so
// they get the IPv4 mask. A zone is dropped.
//
// Returns "unknown" for an empty or "unknown" input and "invalid" when the
// input does not parse.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap().WithZone("")

	bits := ipv6Bits
	if addr.Is4() {
		bits = ipv4Bits
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.String()
}
