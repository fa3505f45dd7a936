// Package dataseries holds the time-indexed OHLCV rows downloaded from a
// provider and the merge/dedup rules applied when new rows are combined
// with rows already on disk.
package dataseries

import (
	"sort"
	"time"
)

// Row is one bar of historical price data, indexed by its UTC timestamp.
type Row struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	OpenInt   float64 // open interest, futures-only; zero when not applicable
}

// Series is an ascending, UTC-sorted, timestamp-deduplicated sequence of
// Rows. The zero value is an empty series.
type Series struct {
	rows []Row
}

// New builds a Series from rows, sorting and deduplicating them (keep-last
// on timestamp collision) per the merge invariant.
func New(rows []Row) Series {
	s := Series{}
	s.merge(rows)
	return s
}

// Len reports the number of rows in the series.
func (s Series) Len() int { return len(s.rows) }

// Rows returns the series' rows in ascending timestamp order. The returned
// slice must not be mutated by the caller.
func (s Series) Rows() []Row { return s.rows }

// First returns the earliest row's timestamp, or the zero time if empty.
func (s Series) First() time.Time {
	if len(s.rows) == 0 {
		return time.Time{}
	}
	return s.rows[0].Timestamp
}

// Last returns the latest row's timestamp, or the zero time if empty.
func (s Series) Last() time.Time {
	if len(s.rows) == 0 {
		return time.Time{}
	}
	return s.rows[len(s.rows)-1].Timestamp
}

// Merge combines newRows into the series, replacing any existing row that
// shares a timestamp with an incoming row (keep-last: the incoming row
// wins), and returns the merged series sorted ascending.
func (s Series) Merge(newRows []Row) Series {
	out := Series{rows: append([]Row(nil), s.rows...)}
	out.merge(newRows)
	return out
}

func (s *Series) merge(incoming []Row) {
	byTS := make(map[int64]Row, len(s.rows)+len(incoming))
	for _, r := range s.rows {
		byTS[r.Timestamp.UTC().UnixNano()] = r
	}
	for _, r := range incoming {
		r.Timestamp = r.Timestamp.UTC()
		byTS[r.Timestamp.UnixNano()] = r
	}
	merged := make([]Row, 0, len(byTS))
	for _, r := range byTS {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	s.rows = merged
}

// CoverageGap reports whether there is a gap between the series' last row
// and want, when want is after the series' last timestamp by more than
// minGap. Used by the downloader to decide whether an update fetch is
// needed at all.
func (s Series) CoverageGap(want time.Time, minGap time.Duration) bool {
	if s.Len() == 0 {
		return true
	}
	return want.Sub(s.Last()) > minGap
}
