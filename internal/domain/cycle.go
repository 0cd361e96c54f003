package domain

import "time"

// SourceResult counts what one source produced during a collection cycle.
type SourceResult struct {
	Source     string `json:"source"`
	Candidates int    `json:"candidates"` // raw candidates returned by the extractor
	Dropped    int    `json:"dropped"`    // rejected by the normalizer
	Admitted   int    `json:"admitted"`
	Duplicates int    `json:"duplicates"` // fingerprint already seen
	Errors     int    `json:"errors"`
	DurationMs int64  `json:"durationMs"`
}

// CycleSummary is the outcome of one collection cycle.
type CycleSummary struct {
	Trigger    string         `json:"trigger"` // schedule | manual | startup
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Sources    []SourceResult `json:"sources"`

	Candidates int `json:"candidates"`
	Dropped    int `json:"dropped"`
	Admitted   int `json:"admitted"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}

// Add folds a per-source result into the totals.
func (s *CycleSummary) Add(r SourceResult) {
	s.Sources = append(s.Sources, r)
	s.Candidates += r.Candidates
	s.Dropped += r.Dropped
	s.Admitted += r.Admitted
	s.Duplicates += r.Duplicates
	s.Errors += r.Errors
}
