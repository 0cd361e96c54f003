// Package publish maintains the public feed of approved articles.
package publish

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
	"github.com/MrSnakeDoc/newsdesk/internal/logger"
)

const (
	DefaultCapacity  = 100
	DefaultFeedLimit = 20
)

// FeedStore persists the public feed as one document.
type FeedStore interface {
	LoadFeed(ctx context.Context) (domain.Feed, error)
	SaveFeed(ctx context.Context, feed domain.Feed) error
}

// Sink projects approved articles into the public feed, newest first.
// Items are keyed by title; the oldest are evicted past capacity.
type Sink struct {
	store    FeedStore
	capacity int
	now      func() time.Time
	log      logger.Logger

	mu sync.Mutex
}

func NewSink(store FeedStore, capacity int, log logger.Logger) *Sink {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Sink{store: store, capacity: capacity, now: time.Now, log: log}
}

// Project maps an approved article to its public item. The approval time is
// the public publish date.
func Project(a *domain.Article, fallback time.Time) domain.PublicItem {
	published := fallback
	if a.ApprovedAt != nil {
		published = *a.ApprovedAt
	}
	return domain.PublicItem{
		Title:       a.Title,
		Summary:     a.Summary,
		Link:        a.Link,
		Image:       a.Image,
		PublishedAt: published.UTC(),
		Source:      a.Source,
		SourceColor: a.SourceColor,
		SourceLogo:  a.SourceLogo,
		Categories:  append([]string(nil), a.Categories...),
		Kind:        domain.KindApprovedContent,
	}
}

// Publish inserts the article at the head of the feed unless an item with
// the same title is already there.
func (s *Sink) Publish(ctx context.Context, a *domain.Article) error {
	if a == nil || strings.TrimSpace(a.Title) == "" {
		return domain.Validation("cannot publish an article without title")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	feed, err := s.store.LoadFeed(ctx)
	if err != nil {
		return err
	}

	for _, item := range feed.Items {
		if item.Title == a.Title {
			return nil
		}
	}

	now := s.now().UTC()
	items := make([]domain.PublicItem, 0, len(feed.Items)+1)
	items = append(items, Project(a, now))
	items = append(items, feed.Items...)
	if len(items) > s.capacity {
		s.log.Debugf("public feed over capacity, evicting %d item(s)", len(items)-s.capacity)
		items = items[:s.capacity]
	}

	return s.store.SaveFeed(ctx, domain.Feed{Items: items, LastUpdate: now})
}

// Retract removes every item titled like the article. It reports false,
// without error, when nothing matched.
func (s *Sink) Retract(ctx context.Context, a *domain.Article) (bool, error) {
	if a == nil {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	feed, err := s.store.LoadFeed(ctx)
	if err != nil {
		return false, err
	}

	kept := make([]domain.PublicItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Title != a.Title {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(feed.Items) {
		return false, nil
	}

	if err := s.store.SaveFeed(ctx, domain.Feed{Items: kept, LastUpdate: s.now().UTC()}); err != nil {
		return false, err
	}
	return true, nil
}

// AllCategories disables the category filter, like an empty one.
const AllCategories = "todas"

// FeedQuery filters the public feed.
type FeedQuery struct {
	Limit    int    // 0 = DefaultFeedLimit
	Source   string // case-insensitive substring of the source name
	Category string // category slug; items without categories count as domain.CategoryGeneral
}

// Feed returns the public feed, newest first.
func (s *Sink) Feed(ctx context.Context, q FeedQuery) (domain.Feed, error) {
	feed, err := s.store.LoadFeed(ctx)
	if err != nil {
		return domain.Feed{}, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	needle := strings.ToLower(strings.TrimSpace(q.Source))
	category := strings.ToLower(strings.TrimSpace(q.Category))
	if category == AllCategories {
		category = ""
	}

	items := make([]domain.PublicItem, 0, min(limit, len(feed.Items)))
	for _, item := range feed.Items {
		if needle != "" && !strings.Contains(strings.ToLower(item.Source), needle) {
			continue
		}
		if category != "" && !domain.HasCategory(item.Categories, category) {
			continue
		}
		items = append(items, item)
		if len(items) >= limit {
			break
		}
	}
	return domain.Feed{Items: items, LastUpdate: feed.LastUpdate}, nil
}

// CategoryCounts counts feed items per category slug. An item filed in
// several categories counts once in each.
func (s *Sink) CategoryCounts(ctx context.Context) (map[string]int, time.Time, error) {
	feed, err := s.store.LoadFeed(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	counts := make(map[string]int)
	for _, item := range feed.Items {
		if len(item.Categories) == 0 {
			counts[domain.CategoryGeneral]++
			continue
		}
		for _, slug := range item.Categories {
			counts[slug]++
		}
	}
	return counts, feed.LastUpdate, nil
}
