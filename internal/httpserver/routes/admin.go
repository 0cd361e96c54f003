package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/mw"
)

func init() { Register("admin", registerAdmin) }

func registerAdmin(r chi.Router, d deps.Deps) {
	r.With(mw.RateLimit(mw.RateLimitConfig{
		Name:       "login",
		Burst:      d.LoginLimit.Burst,
		PerMin:     d.LoginLimit.PerMin,
		TrustProxy: d.TrustProxy,
		Logger:     d.Logger,
	})).Post("/login", handlers.Login(d))

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireOperator(d.Guard))

		r.Post("/logout", handlers.Logout(d))

		r.Get("/pending", handlers.List(d, domain.CollectionPending))
		r.Get("/approved", handlers.ListApproved(d))
		r.Get("/rejected", handlers.List(d, domain.CollectionRejected))
		r.Get("/stats", handlers.Stats(d))

		r.Post("/approve/{id}", handlers.Approve(d))
		r.Post("/reject/{id}", handlers.Reject(d))
		r.Post("/reconsider/{id}", handlers.Reconsider(d))
		r.Post("/unpublish/{id}", handlers.Unpublish(d))
		r.Post("/republish/{id}", handlers.Republish(d))
	})
}
