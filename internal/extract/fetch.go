package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/net/html/charset"

	"github.com/MrSnakeDoc/newsdesk/internal/utils"
)

type page struct {
	body        []byte
	contentType string
	truncated   bool
}

// utf8 decodes the body using the Content-Type charset or the document's
// <meta charset>. Undecodable bodies are returned unchanged.
func (p page) utf8() []byte {
	r, err := charset.NewReader(bytes.NewReader(p.body), p.contentType)
	if err != nil {
		return p.body
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return p.body
	}
	return decoded
}

func (e *Extractor) newRequest(ctx context.Context, target string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", e.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", e.opts.AcceptLanguage)
	return req, nil
}

// fetch GETs target and reads at most MaxBodyBytes of the body.
func (e *Extractor) fetch(ctx context.Context, target string) (page, error) {
	req, err := e.newRequest(ctx, target)
	if err != nil {
		return page{}, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return page{}, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return page{}, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, target)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.opts.MaxBodyBytes+1))
	if err != nil {
		return page{}, fmt.Errorf("failed to read body: %w", err)
	}

	p := page{body: body, contentType: resp.Header.Get("Content-Type")}
	if int64(len(body)) > e.opts.MaxBodyBytes {
		p.body = body[:e.opts.MaxBodyBytes]
		p.truncated = true
		e.log.Debugf("body of %s truncated to %d bytes", target, e.opts.MaxBodyBytes)
	}
	return p, nil
}
