package utils

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ParseAddr parses "ip", "ip:port" or "[v6]:port". IPv4-mapped IPv6
// addresses are unmapped so they match IPv4 rules.
func ParseAddr(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Addr{}, false
	}
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap(), true
	}
	if h, _, err := net.SplitHostPort(s); err == nil {
		s = h
	}
	addr, err := netip.ParseAddr(strings.Trim(s, "[]"))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// ClientAddr resolves the caller address. With trustProxy the proxy headers
// are consulted first (CF-Connecting-IP, Forwarded, X-Forwarded-For, X-Real-IP);
// otherwise only RemoteAddr counts.
func ClientAddr(r *http.Request, trustProxy bool) (netip.Addr, bool) {
	if trustProxy {
		candidates := []string{
			r.Header.Get("CF-Connecting-IP"),
			forwardedFor(r.Header.Get("Forwarded")),
			firstListItem(r.Header.Get("X-Forwarded-For")),
			r.Header.Get("X-Real-IP"),
		}
		for _, c := range candidates {
			if addr, ok := ParseAddr(c); ok {
				return addr, true
			}
		}
	}
	return ParseAddr(r.RemoteAddr)
}

// ClientIP is ClientAddr as a string; unparsable addresses yield RemoteAddr unchanged
// so they still key rate limiters.
func ClientIP(r *http.Request, trustProxy bool) string {
	if addr, ok := ClientAddr(r, trustProxy); ok {
		return addr.String()
	}
	return r.RemoteAddr
}

func firstListItem(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}

// forwardedFor extracts the first for= parameter of an RFC 7239 Forwarded header
func forwardedFor(v string) string {
	for _, part := range strings.Split(firstListItem(v), ";") {
		key, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && strings.EqualFold(key, "for") {
			return strings.Trim(val, `"`)
		}
	}
	return ""
}

// AddrSet matches addresses against a list of IPs and CIDRs.
type AddrSet struct {
	prefixes []netip.Prefix
}

// ParseAddrSet builds a set from config entries. Entries that are neither an
// IP nor a CIDR are returned as invalid and ignored.
func ParseAddrSet(list []string) (set AddrSet, invalid []string) {
	for _, raw := range list {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if p, err := netip.ParsePrefix(s); err == nil {
			if p.Addr().Is4In6() && p.Bits() >= 96 {
				p = netip.PrefixFrom(p.Addr().Unmap(), p.Bits()-96)
			}
			set.prefixes = append(set.prefixes, p.Masked())
			continue
		}
		if addr, ok := ParseAddr(s); ok {
			set.prefixes = append(set.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		invalid = append(invalid, s)
	}
	return set, invalid
}

func (s AddrSet) Empty() bool { return len(s.prefixes) == 0 }

func (s AddrSet) Len() int { return len(s.prefixes) }

func (s AddrSet) Contains(addr netip.Addr) bool {
	if !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	for _, p := range s.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
