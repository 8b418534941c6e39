// Package urlguard validates target URLs before they reach the rendering
// pipeline. It implements SSRF prevention including private IP detection,
// with an escape hatch for deployments that scrape intra-network hosts.
package urlguard

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Pre-compiled CIDR networks for private/reserved IP ranges.
// These are parsed once at package initialization for efficiency.
var (
	cgnat    *net.IPNet // 100.64.0.0/10 - Carrier-grade NAT
	v6unique *net.IPNet // fc00::/7 - IPv6 unique local
	v6link   *net.IPNet // fe80::/10 - IPv6 link-local
)

func init() {
	var err error

	_, cgnat, err = net.ParseCIDR("100.64.0.0/10")
	if err != nil {
		panic("invalid CGNAT CIDR: " + err.Error())
	}

	_, v6unique, err = net.ParseCIDR("fc00::/7")
	if err != nil {
		panic("invalid IPv6 unique local CIDR: " + err.Error())
	}

	_, v6link, err = net.ParseCIDR("fe80::/10")
	if err != nil {
		panic("invalid IPv6 link-local CIDR: " + err.Error())
	}
}

// ErrPrivateTarget is returned for targets that resolve to private or
// reserved address space when private hosts are not allowed.
var ErrPrivateTarget = errors.New("target is on a private network")

// Guard validates URLs handed to the scrape pipeline.
type Guard struct {
	allowPrivateHosts bool
}

// New creates a guard. When allowPrivateHosts is set, localhost, private
// IPs and local domains pass validation (used for compose-internal targets).
func New(allowPrivateHosts bool) *Guard {
	return &Guard{allowPrivateHosts: allowPrivateHosts}
}

// AllowsPrivateHosts reports whether the guard admits private targets.
func (g *Guard) AllowsPrivateHosts() bool {
	return g.allowPrivateHosts
}

// Validate checks that a URL is a well-formed http/https URL and, unless
// private hosts are allowed, that it does not point at local address space.
func (g *Guard) Validate(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return errors.New("URL has no host")
	}

	if g.allowPrivateHosts {
		return nil
	}

	// Block localhost variants
	lowHost := strings.ToLower(host)
	if lowHost == "localhost" || lowHost == "127.0.0.1" || lowHost == "::1" {
		return fmt.Errorf("%w: localhost URLs are not allowed", ErrPrivateTarget)
	}

	// Block local domains
	if strings.HasSuffix(lowHost, ".local") || strings.HasSuffix(lowHost, ".internal") {
		return fmt.Errorf("%w: local domain URLs are not allowed", ErrPrivateTarget)
	}

	// Try to parse as IP and check for private ranges
	if ip := net.ParseIP(host); ip != nil {
		if IsPrivateIP(ip) {
			return fmt.Errorf("%w: private IP addresses are not allowed", ErrPrivateTarget)
		}
	}

	return nil
}

// IsPrivateIP checks if an IP is in private/reserved ranges.
// It handles IPv4, IPv6, and IPv6-mapped IPv4 addresses.
func IsPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}

	// Check for IPv6-mapped IPv4 addresses (::ffff:x.x.x.x)
	if v4 := ip.To4(); v4 != nil {
		ip = v4
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
			return true
		}
	}

	// Check for additional reserved ranges using pre-compiled CIDRs
	if cgnat.Contains(ip) || v6unique.Contains(ip) || v6link.Contains(ip) {
		return true
	}

	return false
}
