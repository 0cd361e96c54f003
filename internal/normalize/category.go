package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
)

// Fold lower-cases s, strips diacritics and collapses whitespace, so that
// "Saúde" and "saude" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return CleanText(strings.ToLower(folded))
}

// Categorize returns the category slugs of an article: the pinned category of
// its source first, then every category with a term in title or summary, in
// configuration order. Terms must already be folded. With no match the
// article is filed under domain.CategoryGeneral.
func Categorize(title, summary, pinned string, cats []domain.Category) []string {
	var out []string
	if pinned != "" && pinned != domain.CategoryGeneral {
		out = append(out, pinned)
	}

	text := Fold(title + " " + summary)
	for _, c := range cats {
		if c.Slug == pinned {
			continue
		}
		for _, term := range c.Terms {
			if hasTerm(text, term) {
				out = append(out, c.Slug)
				break
			}
		}
	}

	if len(out) == 0 {
		return []string{domain.CategoryGeneral}
	}
	return out
}

// hasTerm reports whether term occurs in text starting at a word boundary.
// "saude" matches "saude publica", "vacina" matches "vacinacao", but "sus"
// does not match "jesus".
func hasTerm(text, term string) bool {
	if term == "" {
		return false
	}
	for i := 0; i <= len(text)-len(term); {
		j := strings.Index(text[i:], term)
		if j < 0 {
			return false
		}
		at := i + j
		if at == 0 {
			return true
		}
		if r, _ := utf8.DecodeLastRuneInString(text[:at]); !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return true
		}
		i = at + 1
	}
	return false
}
