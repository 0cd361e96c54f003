package domain

import "time"

// Status is the moderation state of an Article.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Collection names one of the three disjoint moderation collections.
// Every collection holds exactly the articles whose Status has the same name.
type Collection string

const (
	CollectionPending  Collection = "pending"
	CollectionApproved Collection = "approved"
	CollectionRejected Collection = "rejected"
)

// Collections lists the moderation collections in lifecycle order.
var Collections = []Collection{CollectionPending, CollectionApproved, CollectionRejected}

// ParseCollection validates a collection name coming from the outside world.
func ParseCollection(name string) (Collection, bool) {
	switch Collection(name) {
	case CollectionPending, CollectionApproved, CollectionRejected:
		return Collection(name), true
	default:
		return "", false
	}
}

// Status returns the article status that matches membership in c.
func (c Collection) Status() Status {
	return Status(c)
}

// Fingerprint is the stable identity of a scraped article.
// Two candidates with the same fingerprint are the same logical article.
type Fingerprint string

// Article is the durable entity once a scraped candidate survived normalization.
type Article struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// ID is opaque and assigned at admission.
	ID string `json:"id"`

	// Fingerprint is derived from title, source name and canonical link.
	Fingerprint Fingerprint `json:"fingerprint"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	Title   string `json:"title"`
	Summary string `json:"summary"`
	Link    string `json:"link"`
	Image   string `json:"image"`

	// PublishedText is the free-text date shown by the partner site ("Hoje", "2 horas atrás").
	PublishedText string `json:"publishedText,omitempty"`
	// PublishedAt is set only when PublishedText could be parsed.
	PublishedAt *time.Time `json:"publishedAt,omitempty"`

	// ─────────────────────────────
	// Provenance
	// ─────────────────────────────

	Source      string    `json:"source"`
	SourceColor string    `json:"sourceColor"`
	SourceLogo  string    `json:"sourceLogo,omitempty"`
	CollectedAt time.Time `json:"collectedAt"`

	// Categories holds the slugs of the feed sections the article belongs to.
	Categories []string `json:"categories,omitempty"`

	// ─────────────────────────────
	// Moderation
	// ─────────────────────────────

	Status Status `json:"status"`

	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
	ApprovedBy string     `json:"approvedBy,omitempty"`

	RejectedAt *time.Time `json:"rejectedAt,omitempty"`
	// RejectionReason is never nil while the article is rejected, even when empty.
	RejectionReason *string `json:"rejectionReason,omitempty"`
	RejectedBy      string  `json:"rejectedBy,omitempty"`

	ReconsideredAt *time.Time `json:"reconsideredAt,omitempty"`
}

// Clone returns a deep copy so callers can never mutate queue state through a snapshot.
func (a *Article) Clone() *Article {
	if a == nil {
		return nil
	}
	c := *a
	c.Categories = append([]string(nil), a.Categories...)
	c.PublishedAt = cloneTime(a.PublishedAt)
	c.ApprovedAt = cloneTime(a.ApprovedAt)
	c.RejectedAt = cloneTime(a.RejectedAt)
	c.ReconsideredAt = cloneTime(a.ReconsideredAt)
	if a.RejectionReason != nil {
		reason := *a.RejectionReason
		c.RejectionReason = &reason
	}
	return &c
}

// MarkApproved moves the article into the approved state.
func (a *Article) MarkApproved(by string, at time.Time) {
	a.Status = StatusApproved
	a.ApprovedAt = &at
	a.ApprovedBy = by
}

// MarkRejected moves the article into the rejected state. reason may be empty.
func (a *Article) MarkRejected(by, reason string, at time.Time) {
	a.Status = StatusRejected
	a.RejectedAt = &at
	a.RejectionReason = &reason
	a.RejectedBy = by
}

// MarkReconsidered clears every rejection field and puts the article back in pending.
// CollectedAt is left untouched.
func (a *Article) MarkReconsidered(at time.Time) {
	a.Status = StatusPending
	a.RejectedAt = nil
	a.RejectionReason = nil
	a.RejectedBy = ""
	a.ReconsideredAt = &at
}

// CloneAll deep-copies a slice of articles.
func CloneAll(items []*Article) []*Article {
	out := make([]*Article, 0, len(items))
	for _, a := range items {
		out = append(out, a.Clone())
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// CollectionSnapshot is the persisted layout of one moderation collection.
type CollectionSnapshot struct {
	Items      []*Article `json:"items"`
	LastUpdate time.Time  `json:"lastUpdate"`
}
