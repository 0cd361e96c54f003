package domain

// Mode selects the extraction strategy used for a Source.
type Mode string

const (
	// ModeSelector walks a listing page with per-field CSS selector chains.
	ModeSelector Mode = "selector"
	// ModeSearch handles search-engine result pages and filters on relevance keywords.
	ModeSearch Mode = "search"
	// ModeFeed reads an RSS or Atom document.
	ModeFeed Mode = "feed"
)

// Rules are the extraction rules of a Source.
// Every field is a fallback chain: selectors are tried in order and the first one
// that yields a value wins.
type Rules struct {
	Container []string `json:"container"`
	Title     []string `json:"title"`
	Summary   []string `json:"summary"`
	Link      []string `json:"link"`
	Image     []string `json:"image"`
	Date      []string `json:"date"`
}

// Source describes a partner site. It is read-only once loaded.
type Source struct {
	Name     string   `json:"name"`
	URL      string   `json:"url"`      // base URL used to resolve relative links
	FetchURL string   `json:"fetchUrl"` // listing or search page that is scraped
	Mode     Mode     `json:"mode"`
	Rules    Rules    `json:"rules"`
	Color    string   `json:"color"` // #rrggbb
	Logo     string   `json:"logo,omitempty"`
	Active   bool     `json:"active"`
	Keywords []string `json:"keywords,omitempty"` // relevance filter for ModeSearch
	MaxItems int      `json:"maxItems,omitempty"` // 0 = extractor default
	Category string   `json:"category,omitempty"` // slug every article of the source gets
}

// SourceInfo is the public display metadata of a Source.
type SourceInfo struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Logo  string `json:"logo,omitempty"`
	Color string `json:"color"`
}

// Info returns the public display metadata.
func (s Source) Info() SourceInfo {
	return SourceInfo{Name: s.Name, URL: s.URL, Logo: s.Logo, Color: s.Color}
}

// RawCandidate is one unnormalized article produced by an extraction pass.
// It is never persisted.
type RawCandidate struct {
	Title     string
	Summary   string
	Link      string // may still be relative when the strategy could not resolve it
	Image     string
	Published string // free text, possibly empty
	Source    string
}
