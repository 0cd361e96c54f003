package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/respond"
	"github.com/MrSnakeDoc/newsdesk/internal/publish"
)

const maxFeedLimit = 100

type feedResponse struct {
	Items      []domain.PublicItem `json:"items"`
	Count      int                 `json:"count"`
	LastUpdate time.Time           `json:"lastUpdate"`
}

type categoriesResponse struct {
	Categories []domain.CategoryInfo `json:"categories"`
	Count      int                   `json:"count"`
	LastUpdate time.Time             `json:"lastUpdate"`
}

type sourcesResponse struct {
	Sources []domain.SourceInfo `json:"sources"`
	Count   int                 `json:"count"`
}

// Feed serves the public feed: ?limit (default 20, max 100), ?source and ?category
func Feed(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := publish.FeedQuery{
			Source:   r.URL.Query().Get("source"),
			Category: r.URL.Query().Get("category"),
		}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				respond.Error(w, d.Logger, domain.Validation("limit must be a positive integer"))
				return
			}
			q.Limit = min(n, maxFeedLimit)
		}

		feed, err := d.Sink.Feed(r.Context(), q)
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, feedResponse{Items: feed.Items, Count: len(feed.Items), LastUpdate: feed.LastUpdate})
	}
}

// Sources lists the display metadata of the active partner sites
func Sources(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active := d.Sources.Active()
		out := make([]domain.SourceInfo, 0, len(active))
		for _, s := range active {
			out = append(out, s.Info())
		}
		respond.JSON(w, http.StatusOK, sourcesResponse{Sources: out, Count: len(out)})
	}
}

// Categories lists the feed sections with their item counts. The general
// section comes last and is always present.
func Categories(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, lastUpdate, err := d.Sink.CategoryCounts(r.Context())
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}

		cats := d.Sources.Categories()
		out := make([]domain.CategoryInfo, 0, len(cats)+1)
		for _, c := range cats {
			out = append(out, domain.CategoryInfo{Slug: c.Slug, Name: c.Name, Color: c.Color, Count: counts[c.Slug]})
		}
		out = append(out, domain.CategoryInfo{
			Slug:  domain.CategoryGeneral,
			Name:  "Geral",
			Count: counts[domain.CategoryGeneral],
		})
		respond.JSON(w, http.StatusOK, categoriesResponse{Categories: out, Count: len(out), LastUpdate: lastUpdate})
	}
}
