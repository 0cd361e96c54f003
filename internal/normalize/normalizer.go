package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
)

const (
	// DefaultSummaryLimit bounds summaries extracted from listing pages.
	DefaultSummaryLimit = 150
	// DefaultTitleSummaryLimit bounds summaries synthesized from the title.
	DefaultTitleSummaryLimit = 100
	// DefaultPlaceholderBase renders placeholder thumbnails.
	DefaultPlaceholderBase = "https://via.placeholder.com"
	// DefaultColor is used when a source has no display color.
	DefaultColor = "#1e4a73"
)

// Options tunes a Normalizer. Zero values fall back to the defaults above.
type Options struct {
	SummaryLimit      int
	TitleSummaryLimit int
	PlaceholderBase   string
	Location          *time.Location // zone used to read free-text dates
	Now               func() time.Time
	// Categories returns the current feed sections. Nil files everything
	// under the source's pinned category or domain.CategoryGeneral.
	Categories func() []domain.Category
}

// Normalizer turns raw candidates into admissible Articles.
type Normalizer struct {
	summaryLimit      int
	titleSummaryLimit int
	placeholderBase   string
	loc               *time.Location
	now               func() time.Time
	categories        func() []domain.Category
}

// New creates a Normalizer.
func New(opts Options) *Normalizer {
	n := &Normalizer{
		summaryLimit:      opts.SummaryLimit,
		titleSummaryLimit: opts.TitleSummaryLimit,
		placeholderBase:   opts.PlaceholderBase,
		loc:               opts.Location,
		now:               opts.Now,
		categories:        opts.Categories,
	}
	if n.summaryLimit <= 0 {
		n.summaryLimit = DefaultSummaryLimit
	}
	if n.titleSummaryLimit <= 0 {
		n.titleSummaryLimit = DefaultTitleSummaryLimit
	}
	if n.placeholderBase == "" {
		n.placeholderBase = DefaultPlaceholderBase
	}
	if n.loc == nil {
		n.loc = time.Local
	}
	if n.now == nil {
		n.now = time.Now
	}
	if n.categories == nil {
		n.categories = func() []domain.Category { return nil }
	}
	return n
}

// Normalize canonicalizes raw for src. It returns nil when the candidate has no
// usable title.
func (n *Normalizer) Normalize(raw domain.RawCandidate, src domain.Source) *domain.Article {
	title := CleanText(raw.Title)
	if title == "" {
		return nil
	}

	fullSummary := CleanText(raw.Summary)
	summary := Truncate(fullSummary, n.summaryLimit)
	if fullSummary == "" {
		summary = Truncate(title, n.titleSummaryLimit)
	}

	color := src.Color
	if color == "" {
		color = DefaultColor
	}

	image := ResolveURL(src.URL, raw.Image)
	if !IsImageURL(image) {
		image = Placeholder(n.placeholderBase, color, src.Name)
	}

	a := &domain.Article{
		Title:         title,
		Summary:       summary,
		Link:          CanonicalLink(ResolveURL(src.URL, raw.Link)),
		Image:         image,
		PublishedText: CleanText(raw.Published),
		Source:        src.Name,
		SourceColor:   color,
		SourceLogo:    src.Logo,
		CollectedAt:   n.now().UTC(),
		Categories:    Categorize(title, fullSummary, src.Category, n.categories()),
		Status:        domain.StatusPending,
	}
	if a.PublishedText != "" {
		// partner portals write dd/mm/yyyy
		if t, err := dateparse.ParseIn(a.PublishedText, n.loc, dateparse.PreferMonthFirst(false)); err == nil {
			t = t.UTC()
			a.PublishedAt = &t
		}
	}
	a.Fingerprint = Fingerprint(a)
	return a
}

// Fingerprint is a pure function of the lower-cased title, the source name and
// the canonical link.
func Fingerprint(a *domain.Article) domain.Fingerprint {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(a.Title))))
	h.Write([]byte{'|'})
	h.Write([]byte(a.Source))
	h.Write([]byte{'|'})
	h.Write([]byte(CanonicalLink(a.Link)))
	return domain.Fingerprint(hex.EncodeToString(h.Sum(nil)))
}
