package sources

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
	"github.com/MrSnakeDoc/newsdesk/internal/normalize"
)

// DefaultColor is the display color of sources that do not set one.
const DefaultColor = normalize.DefaultColor

var (
	hexColorRe = regexp.MustCompile(`^#?([0-9a-fA-F]{6}|[0-9a-fA-F]{3})$`)
	slugRe     = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
)

// Mapper converts sources.yaml entries to domain.Source values
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapSources validates every entry. A single invalid entry fails the whole file:
// a half-loaded registry is harder to notice than a reload error.
func (m *Mapper) MapSources(file File) ([]domain.Source, error) {
	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("no sources defined")
	}

	seen := make(map[string]bool, len(file.Sources))
	out := make([]domain.Source, 0, len(file.Sources))

	for i, props := range file.Sources {
		src, err := m.mapSource(props)
		if err != nil {
			return nil, fmt.Errorf("source #%d (%q): %w", i+1, props.Name, err)
		}
		key := strings.ToLower(src.Name)
		if seen[key] {
			return nil, fmt.Errorf("source #%d: duplicate name %q", i+1, src.Name)
		}
		seen[key] = true
		out = append(out, src)
	}

	return out, nil
}

// Map validates sources and categories together: a source may only pin a
// category the file defines.
func (m *Mapper) Map(file File) ([]domain.Source, []domain.Category, error) {
	list, err := m.MapSources(file)
	if err != nil {
		return nil, nil, err
	}
	cats, err := m.MapCategories(file)
	if err != nil {
		return nil, nil, err
	}

	known := map[string]bool{domain.CategoryGeneral: true}
	for _, c := range cats {
		known[c.Slug] = true
	}
	for _, src := range list {
		if src.Category != "" && !known[src.Category] {
			return nil, nil, fmt.Errorf("source %q: unknown category %q", src.Name, src.Category)
		}
	}
	return list, cats, nil
}

// MapCategories validates the category list. Terms are folded the way the
// normalizer folds article text.
func (m *Mapper) MapCategories(file File) ([]domain.Category, error) {
	out := make([]domain.Category, 0, len(file.Categories))
	seen := make(map[string]bool, len(file.Categories))

	for i, p := range file.Categories {
		slug := strings.ToLower(strings.TrimSpace(p.Slug))
		if !slugRe.MatchString(slug) {
			return nil, fmt.Errorf("category #%d: slug %q must be lower-case letters, digits and dashes", i+1, p.Slug)
		}
		if slug == domain.CategoryGeneral {
			return nil, fmt.Errorf("category #%d: %q is reserved", i+1, slug)
		}
		if seen[slug] {
			return nil, fmt.Errorf("category #%d: duplicate slug %q", i+1, slug)
		}
		seen[slug] = true

		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = slug
		}

		var color string
		if strings.TrimSpace(p.Color) != "" {
			var err error
			if color, err = normalizeColor(p.Color); err != nil {
				return nil, fmt.Errorf("category %q: %w", slug, err)
			}
		}

		terms := make([]string, 0, len(p.Terms))
		for _, t := range p.Terms {
			if t = normalize.Fold(t); t != "" {
				terms = append(terms, t)
			}
		}

		out = append(out, domain.Category{Slug: slug, Name: name, Color: color, Terms: terms})
	}
	return out, nil
}

func (m *Mapper) mapSource(p SourceProps) (domain.Source, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return domain.Source{}, fmt.Errorf("name is required")
	}

	base, err := absoluteURL(p.URL)
	if err != nil {
		return domain.Source{}, fmt.Errorf("url: %w", err)
	}

	fetch := base
	if strings.TrimSpace(p.FetchURL) != "" {
		if fetch, err = absoluteURL(p.FetchURL); err != nil {
			return domain.Source{}, fmt.Errorf("fetch_url: %w", err)
		}
	}

	mode := domain.Mode(strings.ToLower(strings.TrimSpace(p.Mode)))
	if mode == "" {
		mode = domain.ModeSelector
	}
	switch mode {
	case domain.ModeSelector, domain.ModeSearch:
		if len(p.Selector.Container) == 0 || len(p.Selector.Title) == 0 || len(p.Selector.Link) == 0 {
			return domain.Source{}, fmt.Errorf("mode %s needs container, title and link selectors", mode)
		}
	case domain.ModeFeed:
	default:
		return domain.Source{}, fmt.Errorf("unknown mode %q", p.Mode)
	}

	if mode == domain.ModeSearch && len(p.Keywords) == 0 {
		return domain.Source{}, fmt.Errorf("mode search needs at least one keyword")
	}

	color, err := normalizeColor(p.Color)
	if err != nil {
		return domain.Source{}, err
	}

	if p.MaxItems < 0 {
		return domain.Source{}, fmt.Errorf("max_items must be >= 0")
	}

	active := true
	if p.Active != nil {
		active = *p.Active
	}

	return domain.Source{
		Name:     name,
		URL:      base,
		FetchURL: fetch,
		Mode:     mode,
		Rules: domain.Rules{
			Container: p.Selector.Container,
			Title:     p.Selector.Title,
			Summary:   p.Selector.Summary,
			Link:      p.Selector.Link,
			Image:     p.Selector.Image,
			Date:      p.Selector.Date,
		},
		Color:    color,
		Logo:     strings.TrimSpace(p.Logo),
		Active:   active,
		Keywords: lowerAll(p.Keywords),
		MaxItems: p.MaxItems,
		Category: strings.ToLower(strings.TrimSpace(p.Category)),
	}, nil
}

func absoluteURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%q is not an absolute http(s) URL", raw)
	}
	return raw, nil
}

// normalizeColor returns #rrggbb in lower case.
func normalizeColor(c string) (string, error) {
	c = strings.TrimSpace(c)
	if c == "" {
		return DefaultColor, nil
	}
	m := hexColorRe.FindStringSubmatch(c)
	if m == nil {
		return "", fmt.Errorf("color %q is not a hex color", c)
	}
	hex := strings.ToLower(m[1])
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	return "#" + hex, nil
}

func lowerAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
