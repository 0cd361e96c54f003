package mw

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/newsdesk/internal/auth"
	"github.com/MrSnakeDoc/newsdesk/internal/domain"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/respond"
)

// Authenticator resolves a bearer token to an operator name.
type Authenticator interface {
	Authenticate(token string) (string, bool)
}

// RequireOperator rejects requests without a valid bearer token and stores
// the operator identity in the request context.
func RequireOperator(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				respond.Error(w, nil, domain.Unauthorized("missing bearer token"))
				return
			}
			who, ok := a.Authenticate(token)
			if !ok {
				respond.Error(w, nil, domain.Unauthorized("invalid or expired token"))
				return
			}
			noteOperator(r.Context(), who)
			next.ServeHTTP(w, r.WithContext(auth.WithOperator(r.Context(), who)))
		})
	}
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
