package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/respond"
	"github.com/MrSnakeDoc/newsdesk/internal/moderation"
)

type componentStatus struct {
	OK         bool   `json:"ok"`
	Count      *int   `json:"count,omitempty"`
	LastReload string `json:"last_reload,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Error      string `json:"error,omitempty"`
}

type schedulerStatus struct {
	Running     bool                 `json:"running"`
	LastRun     string               `json:"last_run"`
	CacheAgeSec float64              `json:"cache_age_seconds"`
	LastSummary *domain.CycleSummary `json:"last_summary,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
	Scheduler  schedulerStatus            `json:"scheduler"`
	Queue      moderation.Stats           `json:"queue"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := d.Now()

		sourceCount := d.Sources.Count()
		lastReload := "never"
		if t := d.Sources.LastReload(); !t.IsZero() {
			lastReload = t.Format("2006-01-02 15:04:05")
		}

		components := map[string]componentStatus{
			"sources": {
				OK:         sourceCount > 0,
				Count:      &sourceCount,
				LastReload: lastReload,
			},
			"backend": checkBackend(r.Context(), d),
		}

		sched := schedulerStatus{Running: d.Collector.Running(), LastRun: "never", CacheAgeSec: -1}
		if s, ok := d.Collector.LastSummary(); ok {
			sched.LastRun = s.FinishedAt.Format(time.RFC3339)
			sched.CacheAgeSec = d.Collector.CacheAge(now).Seconds()
			sched.LastSummary = &s
		}

		respond.JSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
			Scheduler:  sched,
			Queue:      d.Queue.Stats(now),
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	if c, ok := components["backend"]; ok && !c.OK {
		return "critical" // moderation cannot persist
	}
	if c, ok := components["sources"]; ok && !c.OK {
		return "degraded" // nothing to collect
	}
	return "operational"
}

func checkBackend(ctx context.Context, d deps.Deps) componentStatus {
	if d.Backend == nil {
		return componentStatus{OK: false, Error: "backend not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := d.Backend.Ping(ctx); err != nil {
		return componentStatus{OK: false, Mode: d.Backend.Name(), Error: "unreachable"}
	}
	return componentStatus{OK: true, Mode: d.Backend.Name()}
}
