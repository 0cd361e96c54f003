package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/respond"
)

type healthzResponse struct {
	Status        string   `json:"status"`
	UptimeSeconds float64  `json:"uptime_seconds"`
	Version       string   `json:"version,omitempty"`
	Commit        string   `json:"commit,omitempty"`
	BuildDate     string   `json:"build_date,omitempty"`
	GoVersion     string   `json:"go_version,omitempty"`
	Collecting    bool     `json:"collecting"`
	CacheAgeSec   *float64 `json:"cache_age_seconds,omitempty"`
}

// Healthz is the liveness probe. It only reads process memory and never
// touches the backend.
func Healthz(d deps.Deps) http.HandlerFunc {
	start := d.StartTime
	return func(w http.ResponseWriter, r *http.Request) {
		out := healthzResponse{
			Status:        "ok",
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
			UptimeSeconds: time.Since(start).Seconds(),
		}
		if d.Collector != nil {
			out.Collecting = d.Collector.Running()
			if age := d.Collector.CacheAge(d.Now()); age >= 0 {
				secs := age.Seconds()
				out.CacheAgeSec = &secs
			}
		}
		respond.JSON(w, http.StatusOK, out)
	}
}
