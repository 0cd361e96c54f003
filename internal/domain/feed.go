package domain

import "time"

// KindApprovedContent tags public items that reached the feed through moderation.
const KindApprovedContent = "approved_content"

// PublicItem is the projection of an approved Article in the public feed.
// It carries no article id: the feed is keyed by title.
type PublicItem struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Link        string    `json:"link"`
	Image       string    `json:"image"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      string    `json:"source"`
	SourceColor string    `json:"sourceColor"`
	SourceLogo  string    `json:"sourceLogo,omitempty"`
	Categories  []string  `json:"categories,omitempty"`
	Kind        string    `json:"kind"`
}

// Feed is the persisted public feed.
type Feed struct {
	Items      []PublicItem `json:"items"`
	LastUpdate time.Time    `json:"lastUpdate"`
}

// Clone deep-copies the items.
func (f Feed) Clone() Feed {
	if f.Items == nil {
		return Feed{LastUpdate: f.LastUpdate}
	}
	items := make([]PublicItem, len(f.Items))
	for i, item := range f.Items {
		item.Categories = append([]string(nil), item.Categories...)
		items[i] = item
	}
	return Feed{Items: items, LastUpdate: f.LastUpdate}
}
