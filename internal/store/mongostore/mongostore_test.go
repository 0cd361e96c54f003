package mongostore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
)

// connectTest uses NEWSDESK_TEST_MONGO_URI and a throwaway database.
func connectTest(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("NEWSDESK_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("NEWSDESK_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dbName := fmt.Sprintf("newsdesk_test_%d", time.Now().UnixNano())
	s, err := Connect(ctx, uri, dbName)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() {
		_ = s.client.Database(dbName).Drop(context.Background())
		_ = s.Close()
	})
	return s
}

func TestMongoSeenSet(t *testing.T) {
	s := connectTest(t)
	ctx := context.Background()

	if added, err := s.Add(ctx, "fp"); err != nil || !added {
		t.Fatalf("first Add() = %v, %v", added, err)
	}
	if added, err := s.Add(ctx, "fp"); err != nil || added {
		t.Errorf("second Add() = %v, %v, want false, nil", added, err)
	}
	if ok, _ := s.Contains(ctx, "fp"); !ok {
		t.Error("Contains() = false after Add()")
	}
	_ = s.Remove(ctx, "fp")
	if ok, _ := s.Contains(ctx, "fp"); ok {
		t.Error("Contains() = true after Remove()")
	}
}

func TestMongoDocuments(t *testing.T) {
	s := connectTest(t)
	ctx := context.Background()

	items := []*domain.Article{{ID: "a", Title: "Ponte", Status: domain.StatusApproved}}
	if err := s.Save(ctx, domain.CollectionApproved, items); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx, domain.CollectionApproved)
	if err != nil || len(got) != 1 || got[0].ID != "a" {
		t.Errorf("Load() = %+v, %v", got, err)
	}

	if err := s.SaveFeed(ctx, domain.Feed{Items: []domain.PublicItem{{Title: "Ponte"}}}); err != nil {
		t.Fatal(err)
	}
	feed, err := s.LoadFeed(ctx)
	if err != nil || len(feed.Items) != 1 {
		t.Errorf("LoadFeed() = %+v, %v", feed, err)
	}
}
