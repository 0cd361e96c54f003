package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/respond"
	"github.com/MrSnakeDoc/newsdesk/internal/logger"
	"github.com/MrSnakeDoc/newsdesk/internal/utils"
)

// AllowOnlyCIDRS restricts a route to the given IPs and CIDRs. An empty list disables the check.
// trustProxy should be true when running behind a trusted reverse proxy/tunnel (e.g., cloudflared).
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	set, invalid := utils.ParseAddrSet(allowed)
	for _, entry := range invalid {
		log.Warn("ignoring invalid allow-list entry", logger.String("entry", entry))
	}
	if set.Empty() {
		return func(next http.Handler) http.Handler { return next }
	}
	log.Debug("allow-list enabled", logger.Int("rules", set.Len()), logger.Bool("trust_proxy", trustProxy))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr, ok := utils.ClientAddr(r, trustProxy)
			if !ok || !set.Contains(addr) {
				log.Warn("client refused by allow-list",
					logger.String("path", r.URL.Path),
					logger.String("client_ip", utils.ClientIP(r, trustProxy)))
				respond.Error(w, nil, domain.Forbidden("client address not allowed"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
