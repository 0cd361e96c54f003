package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/respond"
)

const pingTimeout = 2 * time.Second

type readyzResponse struct {
	Ready   bool   `json:"ready"`
	Backend string `json:"backend,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Readyz is ready once sources are loaded and the backend answers a ping
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := readyzResponse{Ready: true}

		if d.Sources.Count() == 0 {
			resp.Ready, resp.Reason = false, "no sources loaded"
		}
		if d.Backend != nil {
			resp.Backend = d.Backend.Name()
			ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
			defer cancel()
			if err := d.Backend.Ping(ctx); err != nil {
				resp.Ready, resp.Reason = false, "backend unreachable"
			}
		}

		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(w, status, resp)
	}
}
