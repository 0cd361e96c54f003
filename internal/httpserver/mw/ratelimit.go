package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/respond"
	"github.com/MrSnakeDoc/newsdesk/internal/logger"
	"github.com/MrSnakeDoc/newsdesk/internal/utils"
)

const (
	defaultIdleTTL    = 15 * time.Minute
	defaultMaxEntries = 1024
)

// RateLimitConfig configures a per-client token bucket.
type RateLimitConfig struct {
	Name       string // limiter name in logs, e.g. "login"
	Burst      int
	PerMin     int // refill rate
	MaxEntries int // tracked clients; the stalest is evicted past it
	IdleTTL    time.Duration
	TrustProxy bool // resolve the client from proxy headers
	Logger     logger.Logger
	Now        func() time.Time
}

type tokenBucket struct {
	tokens  float64
	updated time.Time
}

// Limiter hands out tokens per client key.
type Limiter struct {
	cfg  RateLimitConfig
	rate float64 // tokens per second

	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	lastSweep time.Time
}

func NewLimiter(cfg RateLimitConfig) *Limiter {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.PerMin < 1 {
		cfg.PerMin = 1
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultMaxEntries
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultIdleTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Limiter{
		cfg:       cfg,
		rate:      float64(cfg.PerMin) / 60,
		buckets:   make(map[string]*tokenBucket),
		lastSweep: cfg.Now(),
	}
}

// Take consumes one token for key. When none is left it reports how long
// until the next one.
func (l *Limiter) Take(key string) (ok bool, remaining int, retryAfter time.Duration) {
	now := l.cfg.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= time.Minute {
		l.sweepLocked(now)
	}

	b := l.buckets[key]
	if b == nil {
		if len(l.buckets) >= l.cfg.MaxEntries {
			l.sweepLocked(now)
			if len(l.buckets) >= l.cfg.MaxEntries {
				l.evictStalestLocked()
			}
		}
		b = &tokenBucket{tokens: float64(l.cfg.Burst), updated: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.updated).Seconds(); elapsed > 0 {
		b.tokens = math.Min(float64(l.cfg.Burst), b.tokens+elapsed*l.rate)
	}
	b.updated = now

	if b.tokens >= 1 {
		b.tokens--
		return true, int(b.tokens), 0
	}
	wait := time.Duration(math.Ceil((1-b.tokens)/l.rate*1000)) * time.Millisecond
	return false, 0, wait
}

// Len returns the number of tracked clients
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) sweepLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.updated) > l.cfg.IdleTTL {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

func (l *Limiter) evictStalestLocked() {
	var (
		stalest string
		oldest  time.Time
	)
	for key, b := range l.buckets {
		if stalest == "" || b.updated.Before(oldest) {
			stalest, oldest = key, b.updated
		}
	}
	delete(l.buckets, stalest)
}

// Middleware keys the limiter by client IP and answers 429 with Retry-After.
func (l *Limiter) Middleware() func(http.Handler) http.Handler {
	limit := strconv.Itoa(l.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := utils.ClientIP(r, l.cfg.TrustProxy)

			ok, remaining, wait := l.Take(key)
			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				secs := int(math.Ceil(wait.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				l.cfg.Logger.Warn("rate limit exceeded",
					logger.String("limiter", l.cfg.Name),
					logger.String("client_ip", key),
					logger.Int("retry_after_s", secs))
				respond.Error(w, nil, domain.RateLimited("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit is NewLimiter(cfg).Middleware()
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return NewLimiter(cfg).Middleware()
}
