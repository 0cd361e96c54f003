package domain

// CategoryGeneral tags articles that match no configured category.
const CategoryGeneral = "geral"

// Category is a public section of the feed. An article belongs to it when
// its source is pinned to the category or when one of Terms appears in its
// title or summary.
type Category struct {
	Slug  string   `json:"slug"`
	Name  string   `json:"name"`
	Color string   `json:"color,omitempty"`
	Terms []string `json:"terms,omitempty"`
}

// CategoryInfo is the public view of a Category with its feed count.
type CategoryInfo struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
	Count int    `json:"count"`
}

// HasCategory reports whether slugs contains slug. An untagged list counts
// as CategoryGeneral.
func HasCategory(slugs []string, slug string) bool {
	if len(slugs) == 0 {
		return slug == CategoryGeneral
	}
	for _, s := range slugs {
		if s == slug {
			return true
		}
	}
	return false
}
