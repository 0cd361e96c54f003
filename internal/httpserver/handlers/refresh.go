package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/respond"
	"github.com/MrSnakeDoc/newsdesk/internal/logger"
	"github.com/MrSnakeDoc/newsdesk/internal/scheduler"
)

const defaultCycleTimeout = 5 * time.Minute

type refreshResponse struct {
	Status      string               `json:"status"` // completed | fresh | queued
	CacheAgeSec *float64             `json:"cacheAgeSeconds,omitempty"`
	Summary     *domain.CycleSummary `json:"summary,omitempty"`
}

// Refresh asks the collector for a new cycle.
//
//	?maxAge=15m  skip when the last cycle is younger
//	?wait=true   run synchronously and return the summary
//
// Otherwise the trigger is queued and 202 is returned, or 429 when one is already queued.
func Refresh(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		now := d.Now()

		if raw := q.Get("maxAge"); raw != "" {
			maxAge, err := time.ParseDuration(raw)
			if err != nil || maxAge <= 0 {
				respond.Error(w, d.Logger, domain.Validation("maxAge must be a positive duration such as 15m"))
				return
			}
			if !d.Collector.IsStale(maxAge, now) {
				age := d.Collector.CacheAge(now).Seconds()
				respond.JSON(w, http.StatusOK, refreshResponse{Status: "fresh", CacheAgeSec: &age, Summary: lastSummary(d)})
				return
			}
		}

		if q.Get("wait") == "true" {
			timeout := d.CycleTimeout
			if timeout <= 0 {
				timeout = defaultCycleTimeout
			}
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeout)
			defer cancel()

			summary, err := d.Collector.RunCycle(ctx)
			if errors.Is(err, scheduler.ErrCycleRunning) {
				respond.Error(w, d.Logger, domain.Conflict("a collection cycle is already running"))
				return
			}
			if errors.Is(err, scheduler.ErrStopped) {
				respond.Error(w, d.Logger, domain.Conflict("the collector is shutting down"))
				return
			}
			if err != nil {
				d.Logger.Warn("synchronous refresh interrupted", logger.Error(err))
			}
			respond.JSON(w, http.StatusOK, refreshResponse{Status: "completed", Summary: &summary})
			return
		}

		if !d.Collector.Trigger() {
			d.Logger.Warn("refresh already queued", logger.String("remote_ip", r.RemoteAddr))
			respond.Error(w, d.Logger, domain.RateLimited("a refresh is already queued, please wait"))
			return
		}
		d.Logger.Info("manual refresh triggered via endpoint", logger.String("remote_ip", r.RemoteAddr))
		respond.JSON(w, http.StatusAccepted, refreshResponse{Status: "queued", Summary: lastSummary(d)})
	}
}

func lastSummary(d deps.Deps) *domain.CycleSummary {
	s, ok := d.Collector.LastSummary()
	if !ok {
		return nil
	}
	return &s
}
