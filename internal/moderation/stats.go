package moderation

import (
	"math"
	"time"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
)

// DayStats counts the decisions taken on one calendar day.
type DayStats struct {
	Date     string `json:"date"` // YYYY-MM-DD
	Approved int    `json:"approved"`
	Rejected int    `json:"rejected"`
	Total    int    `json:"total"`
}

// Stats summarises the three collections.
type Stats struct {
	TotalNews    int        `json:"totalNews"`
	Pending      int        `json:"pending"`
	Approved     int        `json:"approved"`
	Rejected     int        `json:"rejected"`
	ApprovalRate int        `json:"approvalRate"` // percent of all articles that are approved
	Last7Days    []DayStats `json:"last7Days"`
}

const statsDays = 7

// Stats computes counters at now. Days are calendar days in now's location,
// oldest first.
func (q *Queue) Stats(now time.Time) Stats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	s := Stats{
		Pending:  len(q.cols[domain.CollectionPending]),
		Approved: len(q.cols[domain.CollectionApproved]),
		Rejected: len(q.cols[domain.CollectionRejected]),
	}
	s.TotalNews = s.Pending + s.Approved + s.Rejected
	s.ApprovalRate = approvalRate(s.Approved, s.TotalNews)

	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	first := today.AddDate(0, 0, -(statsDays - 1))

	s.Last7Days = make([]DayStats, statsDays)
	for i := range s.Last7Days {
		s.Last7Days[i].Date = first.AddDate(0, 0, i).Format(time.DateOnly)
	}

	bucket := func(t *time.Time) int {
		if t == nil {
			return -1
		}
		local := t.In(loc)
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		if day.Before(first) || day.After(today) {
			return -1
		}
		for i := range s.Last7Days {
			if first.AddDate(0, 0, i).Equal(day) {
				return i
			}
		}
		return -1
	}

	for _, a := range q.cols[domain.CollectionApproved] {
		if i := bucket(a.ApprovedAt); i >= 0 {
			s.Last7Days[i].Approved++
		}
	}
	for _, a := range q.cols[domain.CollectionRejected] {
		if i := bucket(a.RejectedAt); i >= 0 {
			s.Last7Days[i].Rejected++
		}
	}
	for i := range s.Last7Days {
		s.Last7Days[i].Total = s.Last7Days[i].Approved + s.Last7Days[i].Rejected
	}
	return s
}

// approvalRate is round(approved/total*100), 0 for an empty queue.
func approvalRate(approved, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(approved) / float64(total) * 100))
}
