// Package moderation holds the article lifecycle: every scraped article waits
// in pending until an operator approves or rejects it.
package moderation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
	"github.com/MrSnakeDoc/newsdesk/internal/logger"
)

// Store persists whole collections.
type Store interface {
	Load(ctx context.Context, c domain.Collection) ([]*domain.Article, error)
	Save(ctx context.Context, c domain.Collection, items []*domain.Article) error
}

// BatchStore is implemented by stores that can write several collections atomically.
// Transitions between two collections use it when available.
type BatchStore interface {
	SaveAll(ctx context.Context, cols map[domain.Collection][]*domain.Article) error
}

// SeenSet remembers every fingerprint ever admitted.
// Add must be atomic: two concurrent Adds of the same fingerprint return true once.
type SeenSet interface {
	Add(ctx context.Context, fp domain.Fingerprint) (added bool, err error)
	Contains(ctx context.Context, fp domain.Fingerprint) (bool, error)
	// Remove exists only to undo an admission whose write failed.
	Remove(ctx context.Context, fp domain.Fingerprint) error
}

// Publisher exposes approved articles to the public feed.
type Publisher interface {
	Publish(ctx context.Context, a *domain.Article) error
	Retract(ctx context.Context, a *domain.Article) (removed bool, err error)
}

// Options tune a Queue. Zero values are fine.
type Options struct {
	Now   func() time.Time
	NewID func() string
}

// Queue is the moderation state machine. Collections are kept in memory,
// newest first, and written through to the Store after every transition.
type Queue struct {
	store Store
	seen  SeenSet
	pub   Publisher
	log   logger.Logger
	now   func() time.Time
	newID func() string

	ids *keyedMutex

	mu   sync.RWMutex
	cols map[domain.Collection][]*domain.Article

	// saveMu serialises writers from snapshot to swap
	saveMu sync.Mutex
}

func NewQueue(store Store, seen SeenSet, pub Publisher, log logger.Logger, opts Options) *Queue {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.NewString() }
	}
	if log == nil {
		log = logger.Nop()
	}

	cols := make(map[domain.Collection][]*domain.Article, len(domain.Collections))
	for _, c := range domain.Collections {
		cols[c] = nil
	}

	return &Queue{
		store: store,
		seen:  seen,
		pub:   pub,
		log:   log,
		now:   func() time.Time { return opts.Now().UTC() },
		newID: opts.NewID,
		ids:   newKeyedMutex(),
		cols:  cols,
	}
}

// Restore replaces the in-memory collections with what the Store holds.
// An article found in several collections is kept in the first one of
// pending, approved, rejected and its status is realigned.
func (q *Queue) Restore(ctx context.Context) error {
	loaded := make(map[domain.Collection][]*domain.Article, len(domain.Collections))
	seen := make(map[string]bool)

	for _, c := range domain.Collections {
		items, err := q.store.Load(ctx, c)
		if err != nil {
			return domain.Persistence("failed to load "+string(c), err)
		}
		kept := make([]*domain.Article, 0, len(items))
		for _, a := range items {
			if a == nil || a.ID == "" || seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			a.Status = c.Status()
			kept = append(kept, a)
		}
		loaded[c] = kept
	}

	q.saveMu.Lock()
	q.mu.Lock()
	q.cols = loaded
	q.mu.Unlock()
	q.saveMu.Unlock()

	q.log.Info("moderation queue restored",
		logger.Int("pending", len(loaded[domain.CollectionPending])),
		logger.Int("approved", len(loaded[domain.CollectionApproved])),
		logger.Int("rejected", len(loaded[domain.CollectionRejected])),
	)
	return nil
}

// Admit inserts a freshly normalized article at the head of pending.
// It returns false without error when the fingerprint was already seen.
func (q *Queue) Admit(ctx context.Context, a *domain.Article) (bool, error) {
	if a == nil || a.Fingerprint == "" {
		return false, domain.Validation("article has no fingerprint")
	}

	added, err := q.seen.Add(ctx, a.Fingerprint)
	if err != nil {
		return false, domain.Persistence("failed to record fingerprint", err)
	}
	if !added {
		return false, nil
	}

	item := a.Clone()
	if item.ID == "" {
		item.ID = q.newID()
	}
	item.Status = domain.StatusPending
	if item.CollectedAt.IsZero() {
		item.CollectedAt = q.now()
	}

	err = q.commit(ctx, func(next collections) error {
		next[domain.CollectionPending] = prepend(next[domain.CollectionPending], item)
		return nil
	}, domain.CollectionPending)
	if err != nil {
		rctx, cancel := rollbackContext(ctx)
		defer cancel()
		if rmErr := q.seen.Remove(rctx, item.Fingerprint); rmErr != nil {
			q.log.Error("failed to release fingerprint after aborted admission",
				logger.String("fingerprint", string(item.Fingerprint)),
				logger.Error(rmErr),
			)
		}
		return false, err
	}
	return true, nil
}

// ApproveOptions changes how Approve treats the public feed.
type ApproveOptions struct {
	// SkipPublish approves without touching the public feed.
	SkipPublish bool
}

// ApproveResult reports an approval. PublishErr is set when the approval
// committed but the public feed could not be updated.
type ApproveResult struct {
	Item       *domain.Article
	Published  bool
	PublishErr error
}

// Approve moves a pending article to approved and publishes it.
func (q *Queue) Approve(ctx context.Context, id, by string, opts ApproveOptions) (ApproveResult, error) {
	unlock := q.ids.Lock(id)
	defer unlock()

	item, err := q.move(ctx, id, domain.CollectionPending, domain.CollectionApproved, func(a *domain.Article) {
		a.MarkApproved(by, q.now())
	})
	if err != nil {
		return ApproveResult{}, err
	}

	res := ApproveResult{Item: item.Clone()}
	if opts.SkipPublish || q.pub == nil {
		return res, nil
	}

	if err := q.pub.Publish(ctx, item.Clone()); err != nil {
		q.log.Warn("article approved but not published",
			logger.String("id", id),
			logger.Error(err),
		)
		res.PublishErr = domain.Publication("approved, but the public feed could not be updated", err)
		return res, nil
	}
	res.Published = true
	return res, nil
}

// Republish re-runs the idempotent publication of an approved article.
func (q *Queue) Republish(ctx context.Context, id string) (*domain.Article, error) {
	unlock := q.ids.Lock(id)
	defer unlock()

	item, ok := q.find(domain.CollectionApproved, id)
	if !ok {
		return nil, domain.NotFound("article %s is not approved", id)
	}
	if q.pub == nil {
		return item, nil
	}
	if err := q.pub.Publish(ctx, item.Clone()); err != nil {
		return nil, domain.Publication("failed to publish article", err)
	}
	return item, nil
}

// Reject moves a pending article to rejected. reason may be empty.
func (q *Queue) Reject(ctx context.Context, id, by, reason string) (*domain.Article, error) {
	unlock := q.ids.Lock(id)
	defer unlock()

	item, err := q.move(ctx, id, domain.CollectionPending, domain.CollectionRejected, func(a *domain.Article) {
		a.MarkRejected(by, reason, q.now())
	})
	if err != nil {
		return nil, err
	}
	return item.Clone(), nil
}

// Reconsider sends a rejected article back to the head of pending.
// Its fingerprint stays in the seen-set so a rescrape cannot admit a twin.
func (q *Queue) Reconsider(ctx context.Context, id string) (*domain.Article, error) {
	unlock := q.ids.Lock(id)
	defer unlock()

	item, err := q.move(ctx, id, domain.CollectionRejected, domain.CollectionPending, func(a *domain.Article) {
		a.MarkReconsidered(q.now())
	})
	if err != nil {
		return nil, err
	}
	return item.Clone(), nil
}

// UnpublishResult reports an unpublish. Retracted is false when the public
// feed had no matching entry. RetractErr is set when the article left the
// approved collection but the public feed could not be updated.
type UnpublishResult struct {
	Item       *domain.Article
	Retracted  bool
	RetractErr error
}

// Unpublish removes an approved article for good and retracts its public entry.
func (q *Queue) Unpublish(ctx context.Context, id string) (UnpublishResult, error) {
	unlock := q.ids.Lock(id)
	defer unlock()

	var orig *domain.Article
	err := q.commit(ctx, func(next collections) error {
		rest, a := take(next[domain.CollectionApproved], id)
		if a == nil {
			return domain.NotFound("article %s is not approved", id)
		}
		next[domain.CollectionApproved], orig = rest, a
		return nil
	}, domain.CollectionApproved)
	if err != nil {
		return UnpublishResult{}, err
	}

	res := UnpublishResult{Item: orig.Clone()}
	if q.pub == nil {
		return res, nil
	}
	removed, err := q.pub.Retract(ctx, orig.Clone())
	if err != nil {
		q.log.Warn("article unpublished but public entry not retracted",
			logger.String("id", id),
			logger.Error(err),
		)
		res.RetractErr = domain.Publication("unpublished, but the public feed could not be updated", err)
		return res, nil
	}
	res.Retracted = removed
	return res, nil
}

// move transfers id from one collection to the head of another, applying
// mutate to a copy.
func (q *Queue) move(ctx context.Context, id string, from, to domain.Collection, mutate func(*domain.Article)) (*domain.Article, error) {
	var updated *domain.Article
	err := q.commit(ctx, func(next collections) error {
		rest, orig := take(next[from], id)
		if orig == nil {
			return domain.NotFound("article %s is not %s", id, from)
		}
		updated = orig.Clone()
		mutate(updated)
		next[from] = rest
		next[to] = prepend(next[to], updated)
		return nil
	}, from, to)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

type collections map[domain.Collection][]*domain.Article

// commit builds the next state of cols from the committed one, writes it and
// only then swaps it in. Readers never see a state the store has not
// acknowledged. apply must not modify the slices or articles it is given.
func (q *Queue) commit(ctx context.Context, apply func(next collections) error, cols ...domain.Collection) error {
	q.saveMu.Lock()
	defer q.saveMu.Unlock()

	next := q.snapshot(cols...)
	if err := apply(next); err != nil {
		return err
	}

	if err := q.write(ctx, next); err != nil {
		// a non-atomic multi-collection write may have landed partially
		if len(cols) > 1 {
			rctx, cancel := rollbackContext(ctx)
			defer cancel()
			if rerr := q.write(rctx, q.snapshot(cols...)); rerr != nil {
				q.log.Warn("failed to re-sync store after aborted write", logger.Error(rerr))
			}
		}
		return domain.Persistence("failed to save "+joinCollections(cols), err)
	}

	q.mu.Lock()
	for c, items := range next {
		q.cols[c] = items
	}
	q.mu.Unlock()
	return nil
}

// snapshot returns the committed slices of cols. The slices are shared and
// must be treated as read-only.
func (q *Queue) snapshot(cols ...domain.Collection) collections {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make(collections, len(cols))
	for _, c := range cols {
		out[c] = q.cols[c]
	}
	return out
}

func (q *Queue) write(ctx context.Context, next collections) error {
	snap := make(map[domain.Collection][]*domain.Article, len(next))
	for c, items := range next {
		snap[c] = domain.CloneAll(items)
	}

	if batch, ok := q.store.(BatchStore); ok && len(snap) > 1 {
		return batch.SaveAll(ctx, snap)
	}
	for _, c := range domain.Collections {
		items, ok := snap[c]
		if !ok {
			continue
		}
		if err := q.store.Save(ctx, c, items); err != nil {
			return err
		}
	}
	return nil
}

const rollbackTimeout = 10 * time.Second

// rollbackContext outlives the caller's cancellation so compensation steps
// still reach the store after a shutdown or a cycle timeout.
func rollbackContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
}

func joinCollections(cols []domain.Collection) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = string(c)
	}
	return strings.Join(names, " and ")
}

func (q *Queue) find(c domain.Collection, id string) (*domain.Article, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for _, a := range q.cols[c] {
		if a.ID == id {
			return a.Clone(), true
		}
	}
	return nil, false
}

// Get returns an article and the collection holding it.
func (q *Queue) Get(id string) (*domain.Article, domain.Collection, bool) {
	for _, c := range domain.Collections {
		if a, ok := q.find(c, id); ok {
			return a, c, true
		}
	}
	return nil, "", false
}

// ListFilter narrows List. Since applies to the time the article entered
// the collection: collection time for pending, decision time otherwise.
type ListFilter struct {
	Since time.Time
	Limit int // 0 = no limit
}

// List returns a newest-first deep copy of a collection.
func (q *Queue) List(c domain.Collection, f ListFilter) []*domain.Article {
	q.mu.RLock()
	defer q.mu.RUnlock()

	items := q.cols[c]
	out := make([]*domain.Article, 0, len(items))
	for _, a := range items {
		if !f.Since.IsZero() && enteredAt(a, c).Before(f.Since) {
			continue
		}
		out = append(out, a.Clone())
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

func enteredAt(a *domain.Article, c domain.Collection) time.Time {
	switch c {
	case domain.CollectionApproved:
		if a.ApprovedAt != nil {
			return *a.ApprovedAt
		}
	case domain.CollectionRejected:
		if a.RejectedAt != nil {
			return *a.RejectedAt
		}
	case domain.CollectionPending:
		if a.ReconsideredAt != nil {
			return *a.ReconsideredAt
		}
	}
	return a.CollectedAt
}

func prepend(items []*domain.Article, a *domain.Article) []*domain.Article {
	out := make([]*domain.Article, 0, len(items)+1)
	out = append(out, a)
	return append(out, items...)
}

// take returns items without id and the removed article.
func take(items []*domain.Article, id string) ([]*domain.Article, *domain.Article) {
	for i, a := range items {
		if a.ID == id {
			out := make([]*domain.Article, 0, len(items)-1)
			out = append(out, items[:i]...)
			out = append(out, items[i+1:]...)
			return out, a
		}
	}
	return items, nil
}
