package fetch

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"

	"github.com/folio-labs/folio-mcp/internal/core/domain"
)

// Resolver resolves a hostname to candidate addresses. Swapped out in tests.
type Resolver func(ctx context.Context, host string) ([]netip.Addr, error)

// DefaultResolver resolves via the system DNS.
func DefaultResolver(ctx context.Context, host string) ([]netip.Addr, error) {
	ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}
	return ips, nil
}

// localhostLiterals are rejected before any DNS work happens.
var localhostLiterals = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
	"0.0.0.0":   true,
}

// extraBlocked covers reserved ranges the netip predicates do not:
// CGNAT, IETF protocol assignments, benchmarking, class E.
var extraBlocked = []netip.Prefix{
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("64:ff9b::/96"),
	netip.MustParsePrefix("2001:db8::/32"),
}

// blockedAddr reports whether a single resolved address is off-limits.
func blockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsMulticast() || addr.IsUnspecified() {
		return true
	}
	for _, p := range extraBlocked {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// guard validates fetch targets against the SSRF policy.
type guard struct {
	resolve      Resolver
	allowPrivate bool
}

// checkURL validates scheme and target addresses for one hop of a fetch.
// It must run before any connection attempt: validating only the first URL
// is bypassable via redirects and DNS rebinding.
func (g *guard) checkURL(ctx context.Context, raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed URL", domain.ErrInvalidReference)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q not allowed", domain.ErrInvalidReference, u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: URL has no host", domain.ErrInvalidReference)
	}
	if g.allowPrivate {
		return u, nil
	}
	if localhostLiterals[strings.ToLower(host)] {
		return nil, fmt.Errorf("%w: %s", domain.ErrBlockedAddress, host)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if blockedAddr(addr) {
			return nil, fmt.Errorf("%w: %s", domain.ErrBlockedAddress, host)
		}
		return u, nil
	}

	addrs, err := g.resolve(ctx, host)
	if err != nil || len(addrs) == 0 {
		// Unresolvable hosts are treated as hostile, matching the
		// fail-closed posture of the address policy.
		return nil, fmt.Errorf("%w: cannot resolve %s", domain.ErrBlockedAddress, host)
	}
	for _, addr := range addrs {
		if blockedAddr(addr) {
			return nil, fmt.Errorf("%w: %s resolves to %s", domain.ErrBlockedAddress, host, addr)
		}
	}
	return u, nil
}

// checkDialAddr re-validates the address actually being dialed. This closes
// the rebinding window between the pre-connect DNS check and the socket
// connect, because the transport re-resolves independently.
func (g *guard) checkDialAddr(address string) error {
	if g.allowPrivate {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrBlockedAddress, address)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrBlockedAddress, address)
	}
	if blockedAddr(addr) {
		return fmt.Errorf("%w: %s", domain.ErrBlockedAddress, addr)
	}
	return nil
}
