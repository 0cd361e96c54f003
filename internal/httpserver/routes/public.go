package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/handlers"
)

func init() { Register("public", registerPublic) }

func registerPublic(r chi.Router, d deps.Deps) {
	r.Get("/feed", handlers.Feed(d))
	r.Get("/sources", handlers.Sources(d))
	r.Get("/categories", handlers.Categories(d))
}
