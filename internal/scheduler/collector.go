package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
	"github.com/MrSnakeDoc/newsdesk/internal/logger"
)

const (
	DefaultInterval    = 30 * time.Minute
	DefaultSourcePause = 2 * time.Second

	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerStartup  = "startup"
)

var (
	// ErrCycleRunning is returned when a cycle is requested while another one is in flight.
	ErrCycleRunning = errors.New("collection cycle already running")
	// ErrStopped is returned for cycles requested after Stop.
	ErrStopped = errors.New("collector stopped")
)

// SourceProvider supplies the partner sites. Reload is called at the start of every cycle.
type SourceProvider interface {
	Reload() error
	Active() []domain.Source
}

type Extractor interface {
	Extract(ctx context.Context, src domain.Source) []domain.RawCandidate
}

type Normalizer interface {
	Normalize(raw domain.RawCandidate, src domain.Source) *domain.Article
}

type Admitter interface {
	Admit(ctx context.Context, a *domain.Article) (bool, error)
}

// StateStore persists the last cycle summary so cache age survives restarts.
type StateStore interface {
	LoadLastCycle(ctx context.Context) (domain.CycleSummary, bool, error)
	SaveLastCycle(ctx context.Context, summary domain.CycleSummary) error
}

type Config struct {
	Interval    time.Duration
	SourcePause time.Duration // 0 disables the pause
	RunOnStart  bool
	Now         func() time.Time
}

// Collector drives extraction, normalization and admission for every active source
type Collector struct {
	sources    SourceProvider
	extractor  Extractor
	normalizer Normalizer
	queue      Admitter
	state      StateStore
	logger     logger.Logger
	cfg        Config

	running atomic.Bool

	mu      sync.RWMutex
	last    domain.CycleSummary
	hasLast bool

	manualTrigger chan struct{}
	stopCh        chan struct{}
	stopOnce      sync.Once

	// halted is cancelled by Stop and aborts every in-flight cycle
	halted context.Context
	halt   context.CancelFunc

	lifeMu  sync.Mutex
	stopped bool
	wg      sync.WaitGroup // the loop and every in-flight cycle
}

// NewCollector creates a collector. state may be nil.
func NewCollector(
	sources SourceProvider,
	extractor Extractor,
	normalizer Normalizer,
	queue Admitter,
	state StateStore,
	log logger.Logger,
	cfg Config,
) *Collector {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.SourcePause < 0 {
		cfg.SourcePause = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	halted, halt := context.WithCancel(context.Background())
	return &Collector{
		halted:        halted,
		halt:          halt,
		sources:       sources,
		extractor:     extractor,
		normalizer:    normalizer,
		queue:         queue,
		state:         state,
		logger:        log,
		cfg:           cfg,
		manualTrigger: make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
	}
}

// RestoreState loads the last persisted summary, if any
func (c *Collector) RestoreState(ctx context.Context) error {
	if c.state == nil {
		return nil
	}
	summary, found, err := c.state.LoadLastCycle(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore scheduler state: %w", err)
	}
	if found {
		c.setLast(summary)
		c.logger.Info("restored last collection cycle",
			logger.Time("finished_at", summary.FinishedAt),
			logger.Int("admitted", summary.Admitted))
	}
	return nil
}

// Start runs the collection loop until Stop is called or ctx is done
func (c *Collector) Start(ctx context.Context) {
	if !c.enter() {
		return
	}
	go func() {
		defer c.wg.Done()

		if c.cfg.RunOnStart {
			c.runLogged(ctx, TriggerStartup)
		}

		ticker := time.NewTicker(c.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.runLogged(ctx, TriggerSchedule)
			case <-c.manualTrigger:
				c.logger.Info("manual collection triggered")
				c.runLogged(ctx, TriggerManual)
			case <-c.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the loop, cancels any in-flight cycle and refuses new ones.
// It is safe to call more than once. Use Wait to block until cycles return.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		c.lifeMu.Lock()
		c.stopped = true
		c.lifeMu.Unlock()

		c.halt()
		close(c.stopCh)
	})
}

// Wait blocks until the loop and every in-flight cycle have returned, or
// until ctx is done.
func (c *Collector) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enter registers a loop or cycle with the WaitGroup unless Stop was called.
func (c *Collector) enter() bool {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if c.stopped {
		return false
	}
	c.wg.Add(1)
	return true
}

// Trigger queues a manual cycle for the loop. It returns false when one is already queued.
func (c *Collector) Trigger() bool {
	select {
	case c.manualTrigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Running reports whether a cycle is in flight
func (c *Collector) Running() bool {
	return c.running.Load()
}

// RunCycle runs one collection cycle synchronously
func (c *Collector) RunCycle(ctx context.Context) (domain.CycleSummary, error) {
	return c.run(ctx, TriggerManual)
}

func (c *Collector) runLogged(ctx context.Context, trigger string) {
	if _, err := c.run(ctx, trigger); err != nil && !errors.Is(err, ErrCycleRunning) && !errors.Is(err, ErrStopped) {
		c.logger.Error("collection cycle failed",
			logger.String("trigger", trigger),
			logger.Error(err))
	}
}

func (c *Collector) run(ctx context.Context, trigger string) (domain.CycleSummary, error) {
	if !c.enter() {
		return domain.CycleSummary{}, ErrStopped
	}
	defer c.wg.Done()

	if !c.running.CompareAndSwap(false, true) {
		return domain.CycleSummary{}, ErrCycleRunning
	}
	defer c.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer context.AfterFunc(c.halted, cancel)()

	summary := domain.CycleSummary{Trigger: trigger, StartedAt: c.cfg.Now().UTC()}

	if err := c.sources.Reload(); err != nil {
		c.logger.Warn("failed to reload sources, keeping previous list",
			logger.Error(err))
	}
	active := c.sources.Active()

	c.logger.Info("collection cycle started",
		logger.String("trigger", trigger),
		logger.Int("sources", len(active)))

	var runErr error
	for i, src := range active {
		if i > 0 && c.cfg.SourcePause > 0 {
			if err := sleep(ctx, c.cfg.SourcePause); err != nil {
				runErr = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		summary.Add(c.collectSource(ctx, src))
	}

	summary.FinishedAt = c.cfg.Now().UTC()
	c.setLast(summary)

	if c.state != nil {
		if err := c.state.SaveLastCycle(context.WithoutCancel(ctx), summary); err != nil {
			c.logger.Warn("failed to persist cycle summary", logger.Error(err))
		}
	}

	c.logger.Info("collection cycle finished",
		logger.String("trigger", trigger),
		logger.Int("candidates", summary.Candidates),
		logger.Int("admitted", summary.Admitted),
		logger.Int("duplicates", summary.Duplicates),
		logger.Int("dropped", summary.Dropped),
		logger.Int("errors", summary.Errors),
		logger.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)))

	return summary, runErr
}

// collectSource never lets one source's failure reach the others
func (c *Collector) collectSource(ctx context.Context, src domain.Source) (res domain.SourceResult) {
	start := time.Now()
	res.Source = src.Name
	log := c.logger.With(logger.String("source", src.Name))

	defer func() {
		if r := recover(); r != nil {
			res.Errors++
			log.Error("source panicked", logger.String("panic", fmt.Sprint(r)))
		}
		res.DurationMs = time.Since(start).Milliseconds()
	}()

	raws := c.extractor.Extract(ctx, src)
	res.Candidates = len(raws)

	for _, raw := range raws {
		a := c.normalizer.Normalize(raw, src)
		if a == nil {
			res.Dropped++
			continue
		}
		added, err := c.queue.Admit(ctx, a)
		switch {
		case err != nil:
			res.Errors++
			log.Warn("failed to admit article",
				logger.String("title", a.Title),
				logger.Error(err))
		case added:
			res.Admitted++
		default:
			res.Duplicates++
		}
	}

	log.Debug("source collected",
		logger.Int("candidates", res.Candidates),
		logger.Int("admitted", res.Admitted))
	return res
}

func (c *Collector) setLast(s domain.CycleSummary) {
	c.mu.Lock()
	c.last = s
	c.hasLast = true
	c.mu.Unlock()
}

// LastSummary returns the most recent cycle summary
func (c *Collector) LastSummary() (domain.CycleSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last, c.hasLast
}

// LastRun returns when the most recent cycle finished
func (c *Collector) LastRun() (time.Time, bool) {
	s, ok := c.LastSummary()
	return s.FinishedAt, ok
}

// CacheAge is the time elapsed since the last cycle finished, or -1 when none ran
func (c *Collector) CacheAge(now time.Time) time.Duration {
	last, ok := c.LastRun()
	if !ok {
		return -1
	}
	return now.Sub(last)
}

// IsStale reports whether the last cycle is older than maxAge. Never having run is stale.
func (c *Collector) IsStale(maxAge time.Duration, now time.Time) bool {
	age := c.CacheAge(now)
	return age < 0 || age >= maxAge
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
