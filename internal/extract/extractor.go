// Package extract turns one partner listing page into raw article candidates.
package extract

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
	"github.com/MrSnakeDoc/newsdesk/internal/logger"
)

const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultAcceptLanguage = "pt-BR,pt;q=0.9,en;q=0.8"
	DefaultTimeout        = 10 * time.Second
	DefaultMaxBodyBytes   = 5 << 20
	DefaultMaxItems       = 5
	DefaultSearchMaxItems = 4
	DefaultRobotsTTL      = 6 * time.Hour
)

// Options configures an Extractor. Zero values fall back to the defaults above.
type Options struct {
	UserAgent      string
	AcceptLanguage string
	Timeout        time.Duration
	MaxBodyBytes   int64
	MaxItems       int
	SearchMaxItems int
	RespectRobots  bool
	RobotsTTL      time.Duration
	Client         *http.Client
}

// Extractor fetches listing pages and applies a source's extraction rules.
// It is safe for concurrent use.
type Extractor struct {
	opts   Options
	client *http.Client
	robots *robotsCache
	log    logger.Logger
}

func New(opts Options, log logger.Logger) *Extractor {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = DefaultAcceptLanguage
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	if opts.SearchMaxItems <= 0 {
		opts.SearchMaxItems = DefaultSearchMaxItems
	}
	if opts.RobotsTTL <= 0 {
		opts.RobotsTTL = DefaultRobotsTTL
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	if log == nil {
		log = logger.Nop()
	}

	return &Extractor{
		opts:   opts,
		client: client,
		robots: newRobotsCache(opts.RobotsTTL),
		log:    log,
	}
}

// Extract fetches src.FetchURL and returns at most the source's item limit of
// candidates. Network errors, non-2xx responses, timeouts, robots.txt
// disallows and unparseable bodies are logged and yield an empty result.
func (e *Extractor) Extract(ctx context.Context, src domain.Source) []domain.RawCandidate {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	if e.opts.RespectRobots && !e.robots.allowed(ctx, e, src.FetchURL) {
		e.log.Warn("robots.txt disallows source",
			logger.String("source", src.Name),
			logger.String("url", src.FetchURL),
		)
		return nil
	}

	start := time.Now()
	page, err := e.fetch(ctx, src.FetchURL)
	if err != nil {
		e.log.Warn("source fetch failed",
			logger.String("source", src.Name),
			logger.String("url", src.FetchURL),
			logger.Error(err),
		)
		return nil
	}

	limit := e.limitFor(src)

	var out []domain.RawCandidate
	switch src.Mode {
	case domain.ModeFeed:
		out, err = parseFeed(page.body, src, limit)
	default:
		var doc *goquery.Document
		doc, err = goquery.NewDocumentFromReader(bytes.NewReader(page.utf8()))
		if err != nil {
			break
		}
		if src.Mode == domain.ModeSearch {
			out = extractSearch(doc.Selection, src, limit)
		} else {
			out = extractSelector(doc.Selection, src, limit)
		}
	}
	if err != nil {
		e.log.Warn("source parse failed",
			logger.String("source", src.Name),
			logger.Error(err),
		)
		return nil
	}

	e.log.Debug("source extracted",
		logger.String("source", src.Name),
		logger.String("mode", string(src.Mode)),
		logger.Int("candidates", len(out)),
		logger.Duration("took", time.Since(start)),
	)
	return out
}

func (e *Extractor) limitFor(src domain.Source) int {
	if src.MaxItems > 0 {
		return src.MaxItems
	}
	if src.Mode == domain.ModeSearch {
		return e.opts.SearchMaxItems
	}
	return e.opts.MaxItems
}
