package mw

import (
	"net"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/respond"
	"github.com/MrSnakeDoc/newsdesk/internal/logger"
)

// hostRules holds exact hosts and "*.example.com" suffixes, both lower-cased.
type hostRules struct {
	exact    map[string]struct{}
	suffixes []string
}

func newHostRules(patterns []string) hostRules {
	rules := hostRules{exact: make(map[string]struct{}, len(patterns))}
	for _, p := range patterns {
		p = canonicalHost(p)
		switch {
		case p == "":
		case strings.HasPrefix(p, "*."):
			rules.suffixes = append(rules.suffixes, p[1:])
		default:
			rules.exact[p] = struct{}{}
		}
	}
	return rules
}

func (h hostRules) empty() bool { return len(h.exact) == 0 && len(h.suffixes) == 0 }

func (h hostRules) match(host string) bool {
	host = canonicalHost(host)
	if _, ok := h.exact[host]; ok {
		return true
	}
	for _, s := range h.suffixes {
		// the bare apex does not match "*.example.com"
		if strings.HasSuffix(host, s) && len(host) > len(s) {
			return true
		}
	}
	return false
}

// canonicalHost lower-cases and drops the port and any trailing dot
func canonicalHost(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if host, _, err := net.SplitHostPort(h); err == nil {
		h = host
	}
	return strings.TrimSuffix(h, ".")
}

// EnforceHost refuses requests whose Host header matches none of allowedHosts.
// An empty list disables the check.
func EnforceHost(allowedHosts []string, log logger.Logger) func(http.Handler) http.Handler {
	rules := newHostRules(allowedHosts)
	if rules.empty() {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rules.match(r.Host) {
				log.Warn("request refused for host", logger.String("host", r.Host), logger.String("path", r.URL.Path))
				respond.Error(w, nil, domain.Forbidden("host not allowed"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
