// Package mongostore persists newsdesk state in MongoDB.
package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
)

const (
	collDocuments = "documents"
	collSeen      = "seen_fingerprints"

	docFeed      = "feed"
	docLastCycle = "scheduler:last_cycle"
)

// document stores the JSON payload as a string so the domain types keep a single encoding
type document struct {
	ID         string    `bson:"_id"`
	Payload    string    `bson:"payload"`
	LastUpdate time.Time `bson:"lastUpdate"`
}

type seenEntry struct {
	ID     string    `bson:"_id"`
	SeenAt time.Time `bson:"seenAt"`
}

type Store struct {
	client    *mongo.Client
	documents *mongo.Collection
	seen      *mongo.Collection
	now       func() time.Time
}

// Connect dials uri and pings the server
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	return &Store{
		client:    client,
		documents: db.Collection(collDocuments),
		seen:      db.Collection(collSeen),
		now:       time.Now,
	}, nil
}

func collectionDoc(c domain.Collection) string {
	return "collection:" + string(c)
}

func (s *Store) Load(ctx context.Context, c domain.Collection) ([]*domain.Article, error) {
	var snap domain.CollectionSnapshot
	found, err := s.getDoc(ctx, collectionDoc(c), &snap)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", c, err)
	}
	if !found || snap.Items == nil {
		return []*domain.Article{}, nil
	}
	return snap.Items, nil
}

func (s *Store) Save(ctx context.Context, c domain.Collection, items []*domain.Article) error {
	if items == nil {
		items = []*domain.Article{}
	}
	now := s.now().UTC()
	if err := s.putDoc(ctx, collectionDoc(c), domain.CollectionSnapshot{Items: items, LastUpdate: now}, now); err != nil {
		return fmt.Errorf("failed to save %s: %w", c, err)
	}
	return nil
}

// Add relies on the unique _id: a duplicate key error means fp was already seen
func (s *Store) Add(ctx context.Context, fp domain.Fingerprint) (bool, error) {
	_, err := s.seen.InsertOne(ctx, seenEntry{ID: string(fp), SeenAt: s.now().UTC()})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to add fingerprint: %w", err)
	}
	return true, nil
}

func (s *Store) Contains(ctx context.Context, fp domain.Fingerprint) (bool, error) {
	n, err := s.seen.CountDocuments(ctx, bson.M{"_id": string(fp)}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Remove(ctx context.Context, fp domain.Fingerprint) error {
	if _, err := s.seen.DeleteOne(ctx, bson.M{"_id": string(fp)}); err != nil {
		return fmt.Errorf("failed to remove fingerprint: %w", err)
	}
	return nil
}

func (s *Store) LoadFeed(ctx context.Context) (domain.Feed, error) {
	var feed domain.Feed
	if _, err := s.getDoc(ctx, docFeed, &feed); err != nil {
		return domain.Feed{}, fmt.Errorf("failed to load feed: %w", err)
	}
	return feed, nil
}

func (s *Store) SaveFeed(ctx context.Context, feed domain.Feed) error {
	if feed.Items == nil {
		feed.Items = []domain.PublicItem{}
	}
	if err := s.putDoc(ctx, docFeed, feed, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to save feed: %w", err)
	}
	return nil
}

func (s *Store) LoadLastCycle(ctx context.Context) (domain.CycleSummary, bool, error) {
	var summary domain.CycleSummary
	found, err := s.getDoc(ctx, docLastCycle, &summary)
	if err != nil {
		return domain.CycleSummary{}, false, fmt.Errorf("failed to load last cycle: %w", err)
	}
	return summary, found, nil
}

func (s *Store) SaveLastCycle(ctx context.Context, summary domain.CycleSummary) error {
	if err := s.putDoc(ctx, docLastCycle, summary, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to save cycle summary: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }

func (s *Store) Name() string { return "mongo" }

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) getDoc(ctx context.Context, id string, dst any) (bool, error) {
	var doc document
	err := s.documents.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(doc.Payload), dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", id, err)
	}
	return true, nil
}

func (s *Store) putDoc(ctx context.Context, id string, v any, at time.Time) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}
	_, err = s.documents.ReplaceOne(ctx,
		bson.M{"_id": id},
		document{ID: id, Payload: string(data), LastUpdate: at},
		options.Replace().SetUpsert(true),
	)
	return err
}
