// Package memory is a process-local backend. Nothing survives a restart;
// it serves development setups and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
)

// Store keeps collections, the seen-set, the public feed and scheduler state in memory.
// Every read and write goes through a deep copy.
type Store struct {
	mu        sync.RWMutex
	cols      map[domain.Collection]domain.CollectionSnapshot
	seen      map[domain.Fingerprint]struct{}
	feed      domain.Feed
	lastCycle *domain.CycleSummary
	now       func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		cols: make(map[domain.Collection]domain.CollectionSnapshot),
		seen: make(map[domain.Fingerprint]struct{}),
		now:  time.Now,
	}
}

// ─────────────────────────────────────────────────────────────────
// Collections
// ─────────────────────────────────────────────────────────────────

// Load returns a copy of a collection, newest first
func (s *Store) Load(_ context.Context, c domain.Collection) ([]*domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.CloneAll(s.cols[c].Items), nil
}

// Save replaces a collection
func (s *Store) Save(_ context.Context, c domain.Collection, items []*domain.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cols[c] = domain.CollectionSnapshot{Items: domain.CloneAll(items), LastUpdate: s.now().UTC()}
	return nil
}

// SaveAll replaces several collections at once
func (s *Store) SaveAll(_ context.Context, cols map[domain.Collection][]*domain.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	for c, items := range cols {
		s.cols[c] = domain.CollectionSnapshot{Items: domain.CloneAll(items), LastUpdate: now}
	}
	return nil
}

// LastUpdate returns when a collection was last written
func (s *Store) LastUpdate(c domain.Collection) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cols[c].LastUpdate
}

// ─────────────────────────────────────────────────────────────────
// Seen-set
// ─────────────────────────────────────────────────────────────────

// Add records fp and reports whether it was new
func (s *Store) Add(_ context.Context, fp domain.Fingerprint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[fp]; ok {
		return false, nil
	}
	s.seen[fp] = struct{}{}
	return true, nil
}

// Contains reports whether fp was ever added
func (s *Store) Contains(_ context.Context, fp domain.Fingerprint) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.seen[fp]
	return ok, nil
}

// Remove forgets fp
func (s *Store) Remove(_ context.Context, fp domain.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.seen, fp)
	return nil
}

// SeenCount returns the size of the seen-set
func (s *Store) SeenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.seen)
}

// ─────────────────────────────────────────────────────────────────
// Public feed
// ─────────────────────────────────────────────────────────────────

// LoadFeed returns a copy of the public feed
func (s *Store) LoadFeed(_ context.Context) (domain.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.feed.Clone(), nil
}

// SaveFeed replaces the public feed
func (s *Store) SaveFeed(_ context.Context, feed domain.Feed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feed = feed.Clone()
	return nil
}

// ─────────────────────────────────────────────────────────────────
// Scheduler state
// ─────────────────────────────────────────────────────────────────

// LoadLastCycle returns the last persisted cycle summary, if any
func (s *Store) LoadLastCycle(_ context.Context) (domain.CycleSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastCycle == nil {
		return domain.CycleSummary{}, false, nil
	}
	c := *s.lastCycle
	c.Sources = append([]domain.SourceResult(nil), s.lastCycle.Sources...)
	return c, true, nil
}

// SaveLastCycle stores the summary of the latest cycle
func (s *Store) SaveLastCycle(_ context.Context, summary domain.CycleSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := summary
	c.Sources = append([]domain.SourceResult(nil), summary.Sources...)
	s.lastCycle = &c
	return nil
}

// ─────────────────────────────────────────────────────────────────
// Lifecycle
// ─────────────────────────────────────────────────────────────────

// Ping always succeeds
func (s *Store) Ping(context.Context) error { return nil }

// Name identifies the backend in /infra
func (s *Store) Name() string { return "memory" }

// Close is a no-op
func (s *Store) Close() error { return nil }
