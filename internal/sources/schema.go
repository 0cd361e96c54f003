package sources

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the top-level structure of sources.yaml.
type File struct {
	Sources    []SourceProps   `yaml:"sources"`
	Categories []CategoryProps `yaml:"categories,omitempty"`
}

// CategoryProps is one public feed section.
type CategoryProps struct {
	Slug  string   `yaml:"slug"`
	Name  string   `yaml:"name,omitempty"` // defaults to slug
	Color string   `yaml:"color,omitempty"`
	Terms []string `yaml:"terms,omitempty"`
}

// SourceProps is one partner site as written by the operator.
type SourceProps struct {
	Name     string      `yaml:"name"`
	URL      string      `yaml:"url"`
	FetchURL string      `yaml:"fetch_url,omitempty"` // defaults to url
	Mode     string      `yaml:"mode,omitempty"`      // selector | search | feed
	Color    string      `yaml:"color,omitempty"`
	Logo     string      `yaml:"logo,omitempty"`
	Active   *bool       `yaml:"active,omitempty"` // nil = active
	Keywords []string    `yaml:"keywords,omitempty"`
	MaxItems int         `yaml:"max_items,omitempty"`
	Category string      `yaml:"category,omitempty"` // pins every article to a category slug
	Selector SelectorSet `yaml:"selector,omitempty"`
}

// SelectorSet holds one fallback chain per field.
type SelectorSet struct {
	Container SelectorChain `yaml:"container,omitempty"`
	Title     SelectorChain `yaml:"title,omitempty"`
	Summary   SelectorChain `yaml:"summary,omitempty"`
	Link      SelectorChain `yaml:"link,omitempty"`
	Image     SelectorChain `yaml:"image,omitempty"`
	Date      SelectorChain `yaml:"date,omitempty"`
}

// SelectorChain accepts either a YAML list or a comma-separated string:
//
//	title: "h2 a, h3 a, .entry-title a"
//	title: ["h2 a", "h3 a"]
type SelectorChain []string

func (c *SelectorChain) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*c = SplitSelectors(value.Value)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		chain := make([]string, 0, len(items))
		for _, item := range items {
			chain = append(chain, SplitSelectors(item)...)
		}
		*c = chain
		return nil
	default:
		return fmt.Errorf("line %d: selector must be a string or a list of strings", value.Line)
	}
}

// SplitSelectors splits a comma-separated selector list into its parts.
// Commas nested in brackets, parentheses or quotes do not split.
func SplitSelectors(s string) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	flush := func(end int) {
		if part := strings.TrimSpace(s[start:end]); part != "" {
			parts = append(parts, part)
		}
	}
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '[' || r == '(':
			depth++
		case r == ']' || r == ')':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			flush(i)
			start = i + 1
		}
	}
	flush(len(s))
	return parts
}
