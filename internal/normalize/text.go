package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const ellipsis = "..."

var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanText trims and collapses every whitespace run (including non-breaking
// spaces and newlines left by the markup) into a single space.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Truncate cuts s to at most limit runes and appends an ellipsis when it had to cut.
// A limit <= 0 disables truncation.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:limit]), " ,.;:-") + ellipsis
}
