package trace

import (
	"net"
	"strings"
)

// ClassifyIP buckets an address into localhost, private or public. The
// reputation policy zeroes threat scores for the first two, so this
// classification decides whether an address can ever be blacklisted.
func ClassifyIP(ip string) string {
	switch ip {
	case "127.0.0.1", "::1", "localhost", "0.0.0.0":
		return "localhost"
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "public"
	}
	if parsed.IsLoopback() {
		return "localhost"
	}
	if parsed.IsPrivate() || parsed.IsLinkLocalUnicast() {
		return "private"
	}
	// fc00::/7 unique local space, the v6 analogue of RFC 1918.
	if strings.HasPrefix(ip, "fc") || strings.HasPrefix(ip, "fd") {
		return "private"
	}
	return "public"
}
