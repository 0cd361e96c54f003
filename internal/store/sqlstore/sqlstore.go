// Package sqlstore persists newsdesk state in SQLite or PostgreSQL.
//
// Every JSON document (the three moderation collections, the public feed and
// the scheduler state) is one row of the documents table. The seen-set is its
// own table so that admission can rely on the primary key for atomicity.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	tableDocuments = "documents"
	tableSeen      = "seen_fingerprints"

	docFeed      = "feed"
	docLastCycle = "scheduler:last_cycle"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS seen_fingerprints (
		fingerprint TEXT PRIMARY KEY,
		seen_at TEXT NOT NULL
	)`,
}

// Store implements the moderation, seen-set, feed and scheduler state contracts on database/sql
type Store struct {
	db     *sql.DB
	driver string
	qb     sq.StatementBuilderType
	now    func() time.Time
}

// Open connects to the database and creates the tables.
// For sqlite, dsn is a file path; for postgres, a lib/pq connection string.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var (
		db  *sql.DB
		err error
		qb  = sq.StatementBuilder
	)

	switch driver {
	case DriverSQLite:
		db, err = sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dsn))
		if err == nil {
			db.SetMaxOpenConns(1)
		}
		qb = qb.PlaceholderFormat(sq.Question)
	case DriverPostgres:
		db, err = sql.Open("postgres", dsn)
		qb = qb.PlaceholderFormat(sq.Dollar)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}

	s := &Store{db: db, driver: driver, qb: qb, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", driver, err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func collectionDoc(c domain.Collection) string {
	return "collection:" + string(c)
}

// ─────────────────────────────────────────────────────────────────
// Collections
// ─────────────────────────────────────────────────────────────────

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
	return s.SaveAll(ctx, map[domain.Collection][]*domain.Article{c: items})
}

// SaveAll writes every collection inside one transaction
func (s *Store) SaveAll(ctx context.Context, cols map[domain.Collection][]*domain.Article) error {
	now := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for c, items := range cols {
		if items == nil {
			items = []*domain.Article{}
		}
		if err := s.putDoc(ctx, tx, collectionDoc(c), domain.CollectionSnapshot{Items: items, LastUpdate: now}, now); err != nil {
			return fmt.Errorf("failed to save %s: %w", c, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit collections: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────
// Seen-set
// ─────────────────────────────────────────────────────────────────

// Add inserts fp unless present. The primary key makes it atomic across processes.
func (s *Store) Add(ctx context.Context, fp domain.Fingerprint) (bool, error) {
	query, args, err := s.qb.Insert(tableSeen).
		Columns("fingerprint", "seen_at").
		Values(string(fp), s.now().UTC().Format(time.RFC3339Nano)).
		Suffix("ON CONFLICT (fingerprint) DO NOTHING").
		ToSql()
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to add fingerprint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to add fingerprint: %w", err)
	}
	return n == 1, nil
}

func (s *Store) Contains(ctx context.Context, fp domain.Fingerprint) (bool, error) {
	query, args, err := s.qb.Select("1").From(tableSeen).Where(sq.Eq{"fingerprint": string(fp)}).ToSql()
	if err != nil {
		return false, err
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	return true, nil
}

func (s *Store) Remove(ctx context.Context, fp domain.Fingerprint) error {
	query, args, err := s.qb.Delete(tableSeen).Where(sq.Eq{"fingerprint": string(fp)}).ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to remove fingerprint: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────
// Feed and scheduler state
// ─────────────────────────────────────────────────────────────────

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
	if err := s.putDoc(ctx, s.db, docFeed, feed, s.now().UTC()); err != nil {
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
	if err := s.putDoc(ctx, s.db, docLastCycle, summary, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to save cycle summary: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────
// Lifecycle
// ─────────────────────────────────────────────────────────────────

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Name() string { return s.driver }

func (s *Store) Close() error { return s.db.Close() }

// ─────────────────────────────────────────────────────────────────
// Documents
// ─────────────────────────────────────────────────────────────────

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) getDoc(ctx context.Context, name string, dst any) (bool, error) {
	query, args, err := s.qb.Select("payload").From(tableDocuments).Where(sq.Eq{"name": name}).ToSql()
	if err != nil {
		return false, err
	}

	var payload string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return true, nil
}

func (s *Store) putDoc(ctx context.Context, ex execer, name string, v any, at time.Time) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	query, args, err := s.qb.Insert(tableDocuments).
		Columns("name", "payload", "updated_at").
		Values(name, string(data), at.Format(time.RFC3339Nano)).
		Suffix("ON CONFLICT (name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return err
	}

	_, err = ex.ExecContext(ctx, query, args...)
	return err
}
