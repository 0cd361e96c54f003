package mw

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// TimeoutExcept applies chi's Timeout to every path but the listed ones.
// Synchronous refreshes outlive the regular request budget.
func TimeoutExcept(timeout time.Duration, skip ...string) func(http.Handler) http.Handler {
	limit := middleware.Timeout(timeout)
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(skip, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}
