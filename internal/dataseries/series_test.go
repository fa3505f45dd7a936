package dataseries

import (
	"testing"
	"time"
)

func mustTime(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNewSortsAscending(t *testing.T) {
	s := New([]Row{
		{Timestamp: mustTime("2024-01-03"), Close: 3},
		{Timestamp: mustTime("2024-01-01"), Close: 1},
		{Timestamp: mustTime("2024-01-02"), Close: 2},
	})
	rows := s.Rows()
	for i := 1; i < len(rows); i++ {
		if rows[i].Timestamp.Before(rows[i-1].Timestamp) {
			t.Fatalf("rows not ascending: %v", rows)
		}
	}
}

func TestMergeDedupesKeepsLast(t *testing.T) {
	s := New([]Row{{Timestamp: mustTime("2024-01-01"), Close: 1}})
	merged := s.Merge([]Row{{Timestamp: mustTime("2024-01-01"), Close: 99}})
	if merged.Len() != 1 {
		t.Fatalf("expected dedup to 1 row, got %d", merged.Len())
	}
	if merged.Rows()[0].Close != 99 {
		t.Fatalf("expected incoming row to win, got %v", merged.Rows()[0])
	}
}

func TestCoverageGap(t *testing.T) {
	empty := Series{}
	if !empty.CoverageGap(time.Now(), time.Hour) {
		t.Fatalf("empty series should always report a gap")
	}

	s := New([]Row{{Timestamp: mustTime("2024-01-01")}})
	if s.CoverageGap(mustTime("2024-01-01").Add(time.Minute), time.Hour) {
		t.Fatalf("want within minGap should not report a gap")
	}
	if !s.CoverageGap(mustTime("2024-01-05"), time.Hour) {
		t.Fatalf("want far beyond last row should report a gap")
	}
}
