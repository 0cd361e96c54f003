package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
)

// Result pages of search engines change markup often; these generic
// fallbacks are appended after the source's own chains.
var (
	searchContainers = []string{"article", ".b_algo", ".news"}
	searchAnchor     = []string{"a[href^='http']"}
)

const searchMinTitleRunes = 10

func extractSearch(root *goquery.Selection, src domain.Source, limit int) []domain.RawCandidate {
	rules := src.Rules
	rules.Container = appendChain(rules.Container, searchContainers)
	rules.Title = appendChain(rules.Title, searchAnchor)
	rules.Link = appendChain(rules.Link, searchAnchor)

	return collect(firstMatch(root, rules.Container), src, rules, limit, func(c domain.RawCandidate) bool {
		if c.Link == "" || utf8.RuneCountInString(c.Title) <= searchMinTitleRunes {
			return false
		}
		return relevant(c, src.Keywords)
	})
}

// relevant reports whether the title or summary mentions one of keywords.
// A source without keywords accepts everything.
func relevant(c domain.RawCandidate, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	title := strings.ToLower(c.Title)
	summary := strings.ToLower(c.Summary)
	for _, k := range keywords {
		k = strings.ToLower(k)
		if strings.Contains(title, k) || strings.Contains(summary, k) {
			return true
		}
	}
	return false
}

func appendChain(chain, extra []string) []string {
	out := make([]string, 0, len(chain)+len(extra))
	out = append(out, chain...)
	return append(out, extra...)
}
