package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/newsdesk/internal/auth"
	"github.com/MrSnakeDoc/newsdesk/internal/logger"
	"github.com/MrSnakeDoc/newsdesk/internal/moderation"
	"github.com/MrSnakeDoc/newsdesk/internal/publish"
	"github.com/MrSnakeDoc/newsdesk/internal/scheduler"
	"github.com/MrSnakeDoc/newsdesk/internal/sources"
)

// Backend is the persistence layer as seen by /readyz and /infra.
type Backend interface {
	Ping(ctx context.Context) error
	Name() string
}

// RateLimit is a per-IP token bucket setting
type RateLimit struct {
	Burst  int
	PerMin int
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedHosts []string         // Host headers allowed on the refresh endpoint
	AllowedCIDRS []string         // IPs allowed to call refresh, readyz and infra
	TrustProxy   bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)

	Queue     *moderation.Queue
	Sink      *publish.Sink
	Sources   *sources.Registry
	Collector *scheduler.Collector
	Guard     *auth.Guard
	Backend   Backend

	LoginLimit   RateLimit
	RefreshLimit RateLimit
	CycleTimeout time.Duration // bound on a synchronous ?wait=true refresh
}

// Now returns d.TimeNow() or time.Now()
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
