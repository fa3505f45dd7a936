// Package scheduler interleaves the per-instrument job lists planner
// produces into a single fair execution order, so one instrument with many
// jobs (e.g. a long futures roll cycle) doesn't starve the others by
// running to completion before anything else gets a turn.
package scheduler

import (
	"sort"

	"github.com/makutaku/vortex-go/internal/planner"
)

// DrawWeight returns how many jobs are drawn from an instrument's queue per
// round, based on the number of month codes in its roll cycle: cycles of length <= 7 (including non-futures, cycleLen == 0) draw
// once per round, 8-10 draw twice, and > 10 draw three times, so
// high-frequency-roll instruments don't dominate the interleaving any more
// than their cycle length already implies.
func DrawWeight(cycleLen int) int {
	switch {
	case cycleLen > 10:
		return 3
	case cycleLen >= 8:
		return 2
	default:
		return 1
	}
}

// queue is one instrument's ordered jobs plus its per-round draw weight.
type queue struct {
	key    string
	weight int
	jobs   []planner.Job
	pos    int
}

// Interleave produces a single fair ordering across every instrument's job
// queue: each round, every still-nonempty queue contributes up to `weight`
// jobs (in that instrument's own temporal order), then the next round
// begins. Queues are visited in a stable key order so the output is
// deterministic given the same input.
func Interleave(jobsByInstrument map[string][]planner.Job, cycleLenOf func(instrumentKey string) int) []planner.Job {
	keys := make([]string, 0, len(jobsByInstrument))
	for k := range jobsByInstrument {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	queues := make([]*queue, 0, len(keys))
	for _, k := range keys {
		w := 1
		if cycleLenOf != nil {
			w = DrawWeight(cycleLenOf(k))
		}
		queues = append(queues, &queue{key: k, weight: w, jobs: jobsByInstrument[k]})
	}

	var out []planner.Job
	for {
		progressed := false
		for _, q := range queues {
			for i := 0; i < q.weight && q.pos < len(q.jobs); i++ {
				out = append(out, q.jobs[q.pos])
				q.pos++
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return out
}
