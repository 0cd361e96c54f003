package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
	"github.com/MrSnakeDoc/newsdesk/internal/normalize"
)

// extractSelector walks the first container selector that matches and reads
// each field through its fallback chain.
func extractSelector(root *goquery.Selection, src domain.Source, limit int) []domain.RawCandidate {
	return collect(firstMatch(root, src.Rules.Container), src, src.Rules, limit, nil)
}

// collect stops once limit candidates are kept. accept, when set, filters
// candidates that already have a title or a link.
func collect(containers *goquery.Selection, src domain.Source, rules domain.Rules, limit int, accept func(domain.RawCandidate) bool) []domain.RawCandidate {
	if containers == nil {
		return nil
	}

	out := make([]domain.RawCandidate, 0, limit)
	containers.EachWithBreak(func(_ int, node *goquery.Selection) bool {
		c := readCandidate(node, src, rules)
		if c.Title == "" && c.Link == "" {
			return true
		}
		if accept != nil && !accept(c) {
			return true
		}
		out = append(out, c)
		return len(out) < limit
	})
	return out
}

func readCandidate(node *goquery.Selection, src domain.Source, rules domain.Rules) domain.RawCandidate {
	c := domain.RawCandidate{
		Title:     firstText(node, rules.Title),
		Summary:   firstText(node, rules.Summary),
		Link:      firstAttr(node, rules.Link, "href"),
		Image:     firstAttr(node, rules.Image, "src", "data-src"),
		Published: firstText(node, rules.Date),
		Source:    src.Name,
	}
	if c.Published == "" {
		c.Published = firstAttr(node, rules.Date, "datetime")
	}
	if c.Link != "" {
		c.Link = normalize.ResolveURL(src.URL, c.Link)
	}
	if c.Image != "" {
		c.Image = normalize.ResolveURL(src.URL, c.Image)
	}
	return c
}

// firstMatch returns the nodes of the first selector in chain that matches.
func firstMatch(root *goquery.Selection, chain []string) *goquery.Selection {
	for _, sel := range chain {
		if found := root.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return nil
}

func firstText(node *goquery.Selection, chain []string) string {
	for _, sel := range chain {
		if text := normalize.CleanText(node.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// firstAttr tries every attribute on the first node of each selector before
// moving on to the next selector. Inline data: URIs are lazy-loading stubs
// and are skipped.
func firstAttr(node *goquery.Selection, chain []string, attrs ...string) string {
	for _, sel := range chain {
		first := node.Find(sel).First()
		if first.Length() == 0 {
			continue
		}
		for _, attr := range attrs {
			v, ok := first.Attr(attr)
			v = strings.TrimSpace(v)
			if !ok || v == "" || strings.HasPrefix(v, "data:") {
				continue
			}
			return v
		}
	}
	return ""
}
