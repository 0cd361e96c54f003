package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
)

// Store handles Redis operations for the moderation collections, the
// seen-set, the public feed and scheduler state
type Store struct {
	client *redis.Client
	now    func() time.Time
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		now:    time.Now,
	}
}

// Load retrieves a moderation collection. A missing key is an empty collection.
func (s *Store) Load(ctx context.Context, c domain.Collection) ([]*domain.Article, error) {
	var snap domain.CollectionSnapshot
	found, err := s.getJSON(ctx, CollectionKey(c), &snap)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", c, err)
	}
	if !found {
		return []*domain.Article{}, nil
	}
	return snap.Items, nil
}

// Save stores a moderation collection as {items, lastUpdate}
func (s *Store) Save(ctx context.Context, c domain.Collection, items []*domain.Article) error {
	data, err := s.marshalCollection(items)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, CollectionKey(c), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save %s: %w", c, err)
	}
	return nil
}

// SaveAll stores several collections in one MULTI/EXEC transaction
func (s *Store) SaveAll(ctx context.Context, cols map[domain.Collection][]*domain.Article) error {
	payloads := make(map[string][]byte, len(cols))
	for c, items := range cols {
		data, err := s.marshalCollection(items)
		if err != nil {
			return err
		}
		payloads[CollectionKey(c)] = data
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, data := range payloads {
			pipe.Set(ctx, key, data, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save collections: %w", err)
	}
	return nil
}

func (s *Store) marshalCollection(items []*domain.Article) ([]byte, error) {
	if items == nil {
		items = []*domain.Article{}
	}
	data, err := json.Marshal(domain.CollectionSnapshot{Items: items, LastUpdate: s.now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal collection: %w", err)
	}
	return data, nil
}

// Add records a fingerprint. SADD reports how many members were new, which
// makes the check-and-insert atomic across processes.
func (s *Store) Add(ctx context.Context, fp domain.Fingerprint) (bool, error) {
	n, err := s.client.SAdd(ctx, KeySeen, string(fp)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to add fingerprint: %w", err)
	}
	return n == 1, nil
}

// Contains reports whether a fingerprint was ever admitted
func (s *Store) Contains(ctx context.Context, fp domain.Fingerprint) (bool, error) {
	ok, err := s.client.SIsMember(ctx, KeySeen, string(fp)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	return ok, nil
}

// Remove forgets a fingerprint
func (s *Store) Remove(ctx context.Context, fp domain.Fingerprint) error {
	if err := s.client.SRem(ctx, KeySeen, string(fp)).Err(); err != nil {
		return fmt.Errorf("failed to remove fingerprint: %w", err)
	}
	return nil
}

// LoadFeed retrieves the public feed
func (s *Store) LoadFeed(ctx context.Context) (domain.Feed, error) {
	var feed domain.Feed
	if _, err := s.getJSON(ctx, KeyFeed, &feed); err != nil {
		return domain.Feed{}, fmt.Errorf("failed to load feed: %w", err)
	}
	return feed, nil
}

// SaveFeed stores the public feed
func (s *Store) SaveFeed(ctx context.Context, feed domain.Feed) error {
	if feed.Items == nil {
		feed.Items = []domain.PublicItem{}
	}
	data, err := json.Marshal(feed)
	if err != nil {
		return fmt.Errorf("failed to marshal feed: %w", err)
	}
	if err := s.client.Set(ctx, KeyFeed, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save feed: %w", err)
	}
	return nil
}

// LoadLastCycle retrieves the summary of the latest collection cycle
func (s *Store) LoadLastCycle(ctx context.Context) (domain.CycleSummary, bool, error) {
	var summary domain.CycleSummary
	found, err := s.getJSON(ctx, KeyLastCycle, &summary)
	if err != nil {
		return domain.CycleSummary{}, false, fmt.Errorf("failed to load last cycle: %w", err)
	}
	return summary, found, nil
}

// SaveLastCycle stores the summary of the latest collection cycle
func (s *Store) SaveLastCycle(ctx context.Context, summary domain.CycleSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal cycle summary: %w", err)
	}
	if err := s.client.Set(ctx, KeyLastCycle, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save cycle summary: %w", err)
	}
	return nil
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Name identifies the backend in /infra
func (s *Store) Name() string { return "redis" }

// Close closes the underlying client
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}
