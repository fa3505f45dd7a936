package scheduler

import (
	"testing"
	"time"

	"github.com/makutaku/vortex-go/internal/instrument"
	"github.com/makutaku/vortex-go/internal/planner"
)

func TestDrawWeightThresholds(t *testing.T) {
	cases := []struct {
		cycleLen int
		want     int
	}{
		{0, 1}, {7, 1}, {8, 2}, {10, 2}, {11, 3}, {20, 3},
	}
	for _, c := range cases {
		if got := DrawWeight(c.cycleLen); got != c.want {
			t.Fatalf("DrawWeight(%d) = %d, want %d", c.cycleLen, got, c.want)
		}
	}
}

func TestInterleavePreservesPerInstrumentOrder(t *testing.T) {
	aapl := instrument.NewStock("AAPL")
	msft := instrument.NewStock("MSFT")
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jobs := map[string][]planner.Job{
		aapl.Key(): {{Instrument: aapl, Start: t0}, {Instrument: aapl, Start: t0.AddDate(0, 0, 1)}, {Instrument: aapl, Start: t0.AddDate(0, 0, 2)}},
		msft.Key(): {{Instrument: msft}},
	}
	out := Interleave(jobs, func(string) int { return 0 })
	if len(out) != 4 {
		t.Fatalf("expected 4 jobs total, got %d", len(out))
	}
	// AAPL's three jobs must appear in the same relative order as input.
	var aaplSeen int
	for _, j := range out {
		if j.Instrument.Key() == aapl.Key() {
			if want := t0.AddDate(0, 0, aaplSeen); !j.Start.Equal(want) {
				t.Fatalf("AAPL job %d out of order: start %v, want %v", aaplSeen, j.Start, want)
			}
			aaplSeen++
		}
	}
	if aaplSeen != 3 {
		t.Fatalf("expected all 3 AAPL jobs present, got %d", aaplSeen)
	}
}

func TestInterleaveGivesHigherWeightMoreDrawsPerRound(t *testing.T) {
	gc := instrument.NewStock("GC") // stand-in key; weight is driven by cycleLenOf below
	cl := instrument.NewStock("CL")
	jobs := map[string][]planner.Job{
		gc.Key(): {{Instrument: gc}, {Instrument: gc}, {Instrument: gc}, {Instrument: gc}},
		cl.Key(): {{Instrument: cl}, {Instrument: cl}, {Instrument: cl}, {Instrument: cl}},
	}
	weights := map[string]int{gc.Key(): 12, cl.Key(): 1}
	out := Interleave(jobs, func(k string) int { return weights[k] })

	// GC (weight 3) should finish within 2 rounds (draws 3 then 1); CL
	// (weight 1) needs 4 rounds. So GC's last job must appear strictly
	// before CL's last job in the interleaved output.
	var gcLast, clLast int
	for i, j := range out {
		if j.Instrument.Key() == gc.Key() {
			gcLast = i
		}
		if j.Instrument.Key() == cl.Key() {
			clLast = i
		}
	}
	if gcLast >= clLast {
		t.Fatalf("expected higher-weight GC queue to drain before lower-weight CL queue: gcLast=%d clLast=%d", gcLast, clLast)
	}
}
