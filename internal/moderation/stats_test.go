package moderation

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestApprovalRate(t *testing.T) {
	tests := []struct {
		approved, total, want int
	}{
		{0, 0, 0},
		{0, 5, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{4, 4, 100},
	}
	for _, tt := range tests {
		if got := approvalRate(tt.approved, tt.total); got != tt.want {
			t.Errorf("approvalRate(%d, %d) = %d, want %d", tt.approved, tt.total, got, tt.want)
		}
	}
}

func TestStatsEmptyQueue(t *testing.T) {
	f := newFixture(t)
	s := f.q.Stats(t0)
	if s.TotalNews != 0 || s.ApprovalRate != 0 {
		t.Errorf("Stats() = %+v, want zero counters", s)
	}
	if len(s.Last7Days) != 7 {
		t.Errorf("last7Days has %d entries, want 7", len(s.Last7Days))
	}
}

func TestStatsCountsDecisionsPerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	decide := func(title string, at time.Time, approve bool) {
		t.Helper()
		id := mustAdmit(t, f.q, article(title))
		f.now = at
		var err error
		if approve {
			_, err = f.q.Approve(ctx, id, "editor", ApproveOptions{SkipPublish: true})
		} else {
			_, err = f.q.Reject(ctx, id, "editor", "")
		}
		if err != nil {
			t.Fatal(err)
		}
	}

	decide("a", t0, true)
	decide("b", t0.Add(-24*time.Hour), true)
	decide("c", t0.Add(-24*time.Hour), false)
	decide("antiga", t0.Add(-10*24*time.Hour), true)
	mustAdmit(t, f.q, article("pendente"))

	s := f.q.Stats(t0)
	if s.TotalNews != 5 || s.Pending != 1 || s.Approved != 3 || s.Rejected != 1 {
		t.Fatalf("counters = %+v", s)
	}
	if s.ApprovalRate != 60 {
		t.Errorf("approvalRate = %d, want 60", s.ApprovalRate)
	}

	want := []DayStats{
		{Date: "2025-06-04"},
		{Date: "2025-06-05"},
		{Date: "2025-06-06"},
		{Date: "2025-06-07"},
		{Date: "2025-06-08"},
		{Date: "2025-06-09", Approved: 1, Rejected: 1, Total: 2},
		{Date: "2025-06-10", Approved: 1, Total: 1},
	}
	if diff := cmp.Diff(want, s.Last7Days); diff != "" {
		t.Errorf("last7Days mismatch (-want +got):\n%s", diff)
	}
}
