package planner

import (
	"testing"
	"time"

	"github.com/makutaku/vortex-go/internal/instrument"
	"github.com/makutaku/vortex-go/internal/period"
)

func fixedWindow(d time.Duration) MaxWindowFunc {
	return func(period.Period) time.Duration { return d }
}

func TestExpandSubdividesByMaxWindow(t *testing.T) {
	inst := instrument.NewStock("AAPL")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	jobs := Expand(inst, []period.Period{period.OneDay}, start, end, fixedWindow(10*24*time.Hour), nil, time.Time{})
	if len(jobs) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(jobs))
	}
	if !jobs[0].Start.Equal(start) {
		t.Fatalf("first chunk should start at range start")
	}
	if !jobs[len(jobs)-1].End.Equal(end) {
		t.Fatalf("last chunk should end at range end")
	}
}

func TestExpandClampsToFutureValidity(t *testing.T) {
	fut, err := instrument.NewFuture("GC", "GC", 2024, instrument.March, time.Time{}, 10)
	if err != nil {
		t.Fatal(err)
	}
	rangeStart := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	jobs := Expand(fut, []period.Period{period.OneDay}, rangeStart, rangeEnd, fixedWindow(0), nil, time.Time{})
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	vStart, vEnd, _ := fut.ValidityWindow()
	if !jobs[0].Start.Equal(vStart) || !jobs[0].End.Equal(vEnd) {
		t.Fatalf("job should be clamped to contract validity window, got [%v,%v)", jobs[0].Start, jobs[0].End)
	}
}

func TestExpandFuturesCoversEachContract(t *testing.T) {
	cfg := instrument.Config{
		AssetClass: instrument.KindFuture,
		Code:       "GC",
		Cycle:      instrument.RollCycle("HM"),
		DaysCount:  30,
	}
	jobs, err := ExpandFutures(cfg, 2024, 2024, []period.Period{period.OneDay},
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), fixedWindow(0), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs (one per contract month), got %d", len(jobs))
	}
}

func TestExpandBumpsStockStartPastTickDate(t *testing.T) {
	inst := instrument.NewStock("NEWCO")
	rangeStart := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	tickDate := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)

	jobs := Expand(inst, []period.Period{period.OneMinute}, rangeStart, rangeEnd, fixedWindow(0), nil, tickDate)
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if !jobs[0].Start.Equal(tickDate) {
		t.Fatalf("expected intraday start bumped to tick date %v, got %v", tickDate, jobs[0].Start)
	}
}

func TestExpandSkipsFutureIntradayBeforeTickDate(t *testing.T) {
	tickDate := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	fut, err := instrument.NewFuture("GC", "GC", 2024, instrument.March, tickDate, 60)
	if err != nil {
		t.Fatal(err)
	}
	rangeStart := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	jobs := Expand(fut, []period.Period{period.OneMinute, period.OneDay}, rangeStart, rangeEnd, fixedWindow(0), nil, time.Time{})
	for _, j := range jobs {
		if j.Period == period.OneMinute {
			t.Fatalf("expected intraday period to be skipped entirely for a future whose range starts before its tick date")
		}
	}
	if len(jobs) != 1 || jobs[0].Period != period.OneDay {
		t.Fatalf("expected only the daily job to survive, got %+v", jobs)
	}
}

func TestExpandAppliesProviderMinStart(t *testing.T) {
	inst := instrument.NewStock("AAPL")
	rangeStart := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	floor := time.Date(2000, 6, 1, 0, 0, 0, 0, time.UTC)
	minStart := func(p period.Period) (time.Time, bool) { return floor, true }

	jobs := Expand(inst, []period.Period{period.OneDay}, rangeStart, rangeEnd, fixedWindow(0), minStart, time.Time{})
	if len(jobs) != 1 || !jobs[0].Start.Equal(floor) {
		t.Fatalf("expected start bumped to provider minStart %v, got %+v", floor, jobs)
	}
}

func TestByInstrumentPreservesOrder(t *testing.T) {
	inst := instrument.NewStock("AAPL")
	jobs := []Job{
		{Instrument: inst, Start: time.Unix(1, 0)},
		{Instrument: inst, Start: time.Unix(2, 0)},
	}
	grouped := ByInstrument(jobs)
	got := grouped[inst.Key()]
	if len(got) != 2 || got[0].Start.After(got[1].Start) {
		t.Fatalf("expected order preserved, got %+v", got)
	}
}
