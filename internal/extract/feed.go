package extract

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
	"github.com/MrSnakeDoc/newsdesk/internal/normalize"
)

// parseFeed reads an RSS or Atom document. The raw bytes are handed to
// gofeed, which honours the encoding declared in the XML prolog.
func parseFeed(body []byte, src domain.Source, limit int) ([]domain.RawCandidate, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	out := make([]domain.RawCandidate, 0, limit)
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		c := domain.RawCandidate{
			Title:     normalize.CleanText(item.Title),
			Summary:   htmlToText(firstNonEmpty(item.Description, item.Content)),
			Link:      feedLink(item),
			Image:     feedImage(item),
			Published: feedDate(item),
			Source:    src.Name,
		}
		if c.Title == "" && c.Link == "" {
			continue
		}
		if c.Link != "" {
			c.Link = normalize.ResolveURL(src.URL, c.Link)
		}
		if c.Image != "" {
			c.Image = normalize.ResolveURL(src.URL, c.Image)
		}
		out = append(out, c)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func feedLink(item *gofeed.Item) string {
	if item.Link != "" {
		return item.Link
	}
	if len(item.Links) > 0 {
		return item.Links[0]
	}
	return ""
}

func feedImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

// feedDate prefers the parsed timestamp so the normalizer does not have to
// guess the layout again.
func feedDate(item *gofeed.Item) string {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC().Format(time.RFC3339)
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC().Format(time.RFC3339)
	case item.Published != "":
		return item.Published
	default:
		return item.Updated
	}
}

func htmlToText(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return normalize.CleanText(fragment)
	}
	return normalize.CleanText(doc.Text())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
