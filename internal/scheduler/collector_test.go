package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
	"github.com/MrSnakeDoc/newsdesk/internal/moderation"
	"github.com/MrSnakeDoc/newsdesk/internal/normalize"
	"github.com/MrSnakeDoc/newsdesk/internal/sources"
	"github.com/MrSnakeDoc/newsdesk/internal/store/memory"
)

type fakeExtractor struct {
	mu      sync.Mutex
	results map[string][]domain.RawCandidate
	panics  map[string]bool
	calls   []string
	block   chan struct{}
}

func (f *fakeExtractor) Extract(_ context.Context, src domain.Source) []domain.RawCandidate {
	f.mu.Lock()
	f.calls = append(f.calls, src.Name)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.panics[src.Name] {
		panic("selector engine exploded")
	}
	return f.results[src.Name]
}

type failingState struct{ *memory.Store }

func (failingState) SaveLastCycle(context.Context, domain.CycleSummary) error {
	return errors.New("state unavailable")
}

func raw(title, link string) domain.RawCandidate {
	return domain.RawCandidate{Title: title, Link: link, Summary: "resumo"}
}

func source(name string) domain.Source {
	return domain.Source{Name: name, URL: "https://" + name + ".example.com", Active: true, Color: "#112233"}
}

type harness struct {
	collector *Collector
	queue     *moderation.Queue
	store     *memory.Store
	extractor *fakeExtractor
}

func newHarness(t *testing.T, srcs []domain.Source, ex *fakeExtractor) *harness {
	t.Helper()
	store := memory.New()
	q := moderation.NewQueue(store, store, nil, nil, moderation.Options{})
	c := NewCollector(
		sources.NewStaticRegistry(srcs),
		ex,
		normalize.New(normalize.Options{}),
		q,
		store,
		nil,
		Config{},
	)
	return &harness{collector: c, queue: q, store: store, extractor: ex}
}

func TestRunCycleAdmitsAndCounts(t *testing.T) {
	ex := &fakeExtractor{results: map[string][]domain.RawCandidate{
		"alpha": {raw("Ponte nova", "/a/1"), raw("Feira livre", "/a/2"), raw("   ", "/a/3")},
		"beta":  {raw("Chuva forte", "https://beta.example.com/b/1")},
	}}
	h := newHarness(t, []domain.Source{source("alpha"), source("beta")}, ex)

	summary, err := h.collector.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if summary.Candidates != 4 || summary.Admitted != 3 || summary.Dropped != 1 || summary.Duplicates != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if len(summary.Sources) != 2 || summary.Sources[0].Source != "alpha" || summary.Sources[0].Admitted != 2 {
		t.Errorf("per-source results = %+v", summary.Sources)
	}
	if summary.Trigger != TriggerManual {
		t.Errorf("trigger = %q", summary.Trigger)
	}

	pending := h.queue.List(domain.CollectionPending, moderation.ListFilter{})
	if len(pending) != 3 {
		t.Fatalf("pending holds %d articles, want 3", len(pending))
	}

	// second pass sees the same candidates
	summary, _ = h.collector.RunCycle(context.Background())
	if summary.Admitted != 0 || summary.Duplicates != 3 {
		t.Errorf("second cycle = %+v, want 3 duplicates", summary)
	}
}

func TestRunCycleNeverReadmitsDecidedArticles(t *testing.T) {
	ex := &fakeExtractor{results: map[string][]domain.RawCandidate{
		"alpha": {raw("Ponte nova", "/a/1")},
	}}
	h := newHarness(t, []domain.Source{source("alpha")}, ex)
	ctx := context.Background()

	if _, err := h.collector.RunCycle(ctx); err != nil {
		t.Fatal(err)
	}
	id := h.queue.List(domain.CollectionPending, moderation.ListFilter{})[0].ID
	if _, err := h.queue.Reject(ctx, id, "editor", "fora de pauta"); err != nil {
		t.Fatal(err)
	}

	summary, _ := h.collector.RunCycle(ctx)
	if summary.Admitted != 0 {
		t.Errorf("rejected article readmitted: %+v", summary)
	}
	if n := len(h.queue.List(domain.CollectionPending, moderation.ListFilter{})); n != 0 {
		t.Errorf("pending holds %d articles, want 0", n)
	}
}

func TestRunCycleIsolatesFailingSource(t *testing.T) {
	ex := &fakeExtractor{
		results: map[string][]domain.RawCandidate{"beta": {raw("Chuva forte", "/b/1")}},
		panics:  map[string]bool{"alpha": true},
	}
	h := newHarness(t, []domain.Source{source("alpha"), source("beta")}, ex)

	summary, err := h.collector.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if summary.Errors != 1 || summary.Admitted != 1 {
		t.Errorf("summary = %+v, want 1 error and 1 admitted", summary)
	}
}

func TestRunCycleSkipsInactiveSources(t *testing.T) {
	off := source("off")
	off.Active = false
	ex := &fakeExtractor{}
	h := newHarness(t, []domain.Source{source("alpha"), off}, ex)

	if _, err := h.collector.RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(ex.calls) != 1 || ex.calls[0] != "alpha" {
		t.Errorf("extracted %v, want only alpha", ex.calls)
	}
}

func TestRunCycleRejectsConcurrentRun(t *testing.T) {
	ex := &fakeExtractor{block: make(chan struct{})}
	h := newHarness(t, []domain.Source{source("alpha")}, ex)

	done := make(chan error, 1)
	go func() {
		_, err := h.collector.RunCycle(context.Background())
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !h.collector.Running() {
		if time.Now().After(deadline) {
			t.Fatal("first cycle never started")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := h.collector.RunCycle(context.Background()); !errors.Is(err, ErrCycleRunning) {
		t.Errorf("concurrent RunCycle() error = %v, want ErrCycleRunning", err)
	}

	close(ex.block)
	if err := <-done; err != nil {
		t.Errorf("first cycle error = %v", err)
	}
}

func TestRunCycleStopsOnCancel(t *testing.T) {
	ex := &fakeExtractor{}
	store := memory.New()
	q := moderation.NewQueue(store, store, nil, nil, moderation.Options{})
	c := NewCollector(
		sources.NewStaticRegistry([]domain.Source{source("alpha"), source("beta")}),
		ex, normalize.New(normalize.Options{}), q, nil, nil,
		Config{SourcePause: time.Hour},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.RunCycle(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("RunCycle() error = %v, want deadline exceeded", err)
	}
	if len(ex.calls) != 1 {
		t.Errorf("extracted %d sources, want 1 before the pause", len(ex.calls))
	}
}

func TestCacheAgeAndStaleness(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	h := newHarness(t, []domain.Source{source("alpha")}, &fakeExtractor{})
	h.collector.cfg.Now = func() time.Time { return now }

	if age := h.collector.CacheAge(now); age != -1 {
		t.Errorf("CacheAge() before any run = %v, want -1", age)
	}
	if !h.collector.IsStale(time.Hour, now) {
		t.Error("never-run collector should be stale")
	}

	if _, err := h.collector.RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}

	later := now.Add(10 * time.Minute)
	if age := h.collector.CacheAge(later); age != 10*time.Minute {
		t.Errorf("CacheAge() = %v, want 10m", age)
	}
	if h.collector.IsStale(15*time.Minute, later) {
		t.Error("10m old cache reported stale for maxAge 15m")
	}
	if !h.collector.IsStale(5*time.Minute, later) {
		t.Error("10m old cache reported fresh for maxAge 5m")
	}
}

func TestLastCycleSurvivesRestart(t *testing.T) {
	h := newHarness(t, []domain.Source{source("alpha")}, &fakeExtractor{})
	first, err := h.collector.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	restarted := NewCollector(sources.NewStaticRegistry(nil), &fakeExtractor{}, normalize.New(normalize.Options{}), h.queue, h.store, nil, Config{})
	if err := restarted.RestoreState(context.Background()); err != nil {
		t.Fatal(err)
	}
	last, ok := restarted.LastRun()
	if !ok || !last.Equal(first.FinishedAt) {
		t.Errorf("LastRun() after restore = %v, %v, want %v", last, ok, first.FinishedAt)
	}
}

func TestStateFailureDoesNotFailCycle(t *testing.T) {
	store := memory.New()
	q := moderation.NewQueue(store, store, nil, nil, moderation.Options{})
	c := NewCollector(
		sources.NewStaticRegistry([]domain.Source{source("alpha")}),
		&fakeExtractor{}, normalize.New(normalize.Options{}), q, failingState{store}, nil, Config{},
	)
	if _, err := c.RunCycle(context.Background()); err != nil {
		t.Errorf("RunCycle() error = %v, want nil", err)
	}
	if _, ok := c.LastSummary(); !ok {
		t.Error("summary not kept in memory")
	}
}

func TestTriggerQueuesOnce(t *testing.T) {
	h := newHarness(t, nil, &fakeExtractor{})
	if !h.collector.Trigger() {
		t.Fatal("first Trigger() = false")
	}
	if h.collector.Trigger() {
		t.Error("second Trigger() = true while one is queued")
	}
}

func TestStartRunsOnStartAndStops(t *testing.T) {
	ex := &fakeExtractor{results: map[string][]domain.RawCandidate{"alpha": {raw("Ponte nova", "/a/1")}}}
	store := memory.New()
	q := moderation.NewQueue(store, store, nil, nil, moderation.Options{})
	c := NewCollector(
		sources.NewStaticRegistry([]domain.Source{source("alpha")}),
		ex, normalize.New(normalize.Options{}), q, store, nil,
		Config{Interval: time.Hour, RunOnStart: true},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if s, ok := c.LastSummary(); ok {
			if s.Trigger != TriggerStartup || s.Admitted != 1 {
				t.Errorf("startup summary = %+v", s)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("startup cycle never ran")
		}
		time.Sleep(5 * time.Millisecond)
	}
	c.Stop()
}

// ctxExtractor blocks until its context is cancelled
type ctxExtractor struct {
	started   chan struct{}
	cancelled chan struct{}
}

func (e *ctxExtractor) Extract(ctx context.Context, _ domain.Source) []domain.RawCandidate {
	close(e.started)
	<-ctx.Done()
	close(e.cancelled)
	return nil
}

func TestStopCancelsInFlightCycleAndWaitReturns(t *testing.T) {
	ex := &ctxExtractor{started: make(chan struct{}), cancelled: make(chan struct{})}
	store := memory.New()
	q := moderation.NewQueue(store, store, nil, nil, moderation.Options{})
	c := NewCollector(
		sources.NewStaticRegistry([]domain.Source{source("alpha")}),
		ex, normalize.New(normalize.Options{}), q, store, nil,
		Config{Interval: time.Hour, RunOnStart: true},
	)

	c.Start(context.Background())

	select {
	case <-ex.started:
	case <-time.After(2 * time.Second):
		t.Fatal("startup cycle never reached the extractor")
	}

	c.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v, want nil", err)
	}

	select {
	case <-ex.cancelled:
	default:
		t.Error("in-flight extraction was not cancelled by Stop")
	}
	if c.Running() {
		t.Error("Running() = true after Wait returned")
	}
	if _, ok := c.LastSummary(); !ok {
		t.Error("interrupted cycle left no summary")
	}

	if _, err := c.RunCycle(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("RunCycle() after Stop error = %v, want ErrStopped", err)
	}
	c.Start(context.Background())
	if err := c.Wait(ctx); err != nil {
		t.Errorf("Wait() after a refused Start error = %v", err)
	}
}

func TestWaitHonoursDeadline(t *testing.T) {
	ex := &fakeExtractor{block: make(chan struct{})}
	h := newHarness(t, []domain.Source{source("alpha")}, ex)

	done := make(chan error, 1)
	go func() {
		_, err := h.collector.RunCycle(context.Background())
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !h.collector.Running() {
		if time.Now().After(deadline) {
			t.Fatal("cycle never started")
		}
		time.Sleep(time.Millisecond)
	}

	h.collector.Stop()

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := h.collector.Wait(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() with a stuck cycle error = %v, want deadline exceeded", err)
	}

	close(ex.block)
	<-done

	ctx, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	if err := h.collector.Wait(ctx); err != nil {
		t.Errorf("Wait() after the cycle returned error = %v", err)
	}
}
