package extract

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/MrSnakeDoc/newsdesk/internal/logger"
	"github.com/MrSnakeDoc/newsdesk/internal/utils"
)

type robotsEntry struct {
	group     *robotstxt.Group // nil = everything allowed
	fetchedAt time.Time
}

// robotsCache keeps one robots.txt group per scheme+host.
type robotsCache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]robotsEntry
}

func newRobotsCache(ttl time.Duration) *robotsCache {
	return &robotsCache{ttl: ttl, entries: make(map[string]robotsEntry)}
}

func (c *robotsCache) allowed(ctx context.Context, e *Extractor, target string) bool {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return true
	}
	key := u.Scheme + "://" + u.Host

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()

	if !ok || time.Since(entry.fetchedAt) > c.ttl {
		entry = robotsEntry{group: e.fetchRobots(ctx, key), fetchedAt: time.Now()}
		c.mu.Lock()
		c.entries[key] = entry
		c.mu.Unlock()
	}

	if entry.group == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return entry.group.Test(path)
}

// fetchRobots returns nil when robots.txt cannot be fetched or parsed.
func (e *Extractor) fetchRobots(ctx context.Context, origin string) *robotstxt.Group {
	robotsURL := origin + "/robots.txt"

	req, err := e.newRequest(ctx, robotsURL)
	if err != nil {
		return nil
	}
	resp, err := e.client.Do(req)
	if err != nil {
		e.log.Debug("robots.txt unavailable, allowing", logger.String("url", robotsURL), logger.Error(err))
		return nil
	}
	defer utils.Close(resp.Body)

	// robotstxt treats 5xx as "disallow all"; an unreachable robots.txt is
	// not a reason to stop collecting.
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		e.log.Debug("robots.txt unparseable, allowing", logger.String("url", robotsURL), logger.Error(err))
		return nil
	}
	return data.FindGroup(e.opts.UserAgent)
}
