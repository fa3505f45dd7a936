// Package planner expands an instrument.Config (plus a provider's
// MaxWindow) into the concrete per-instrument Job lists the scheduler
// interleaves and the downloader executes.
package planner

import (
	"time"

	"github.com/makutaku/vortex-go/internal/instrument"
	"github.com/makutaku/vortex-go/internal/period"
)

// Job is one bounded [Start, End) fetch request against a single
// instrument/period pair.
type Job struct {
	Instrument instrument.Instrument
	Period     period.Period
	Start      time.Time
	End        time.Time
}

// MaxWindowFunc reports the largest window a provider accepts per call for
// a given period, used to subdivide a Job's full range into chunks.
type MaxWindowFunc func(p period.Period) time.Duration

// MinStartFunc reports the earliest timestamp a provider supports for a
// period, and whether the period is supported at all. A nil MinStartFunc
// disables the check.
type MinStartFunc func(p period.Period) (time.Time, bool)

// Expand builds the ordered Job list for a single instrument across the
// given periods and [rangeStart, rangeEnd) bound, subdividing by the
// provider's MaxWindow per period.
//
// tickDate is the date trading actually started for a Stock/Forex
// instrument (instrument.Config.TickDate); it is ignored for a
// instrument.Future, which carries its own tick date via TickDate().
// Per period: an intraday period whose start would precede the relevant
// tick date is skipped entirely for futures (no intraday history exists
// before a contract traded) but bumped forward to the tick date for
// stocks/forex (the instrument simply didn't trade before then). The same
// asymmetry applies to minStart: a future period starting before the
// provider's earliest supported date is skipped, while a stock/forex
// period is bumped forward to it.
func Expand(inst instrument.Instrument, periods []period.Period, rangeStart, rangeEnd time.Time, maxWindow MaxWindowFunc, minStart MinStartFunc, tickDate time.Time) []Job {
	start, end := clampToValidity(inst, rangeStart, rangeEnd)
	if !start.Before(end) {
		return nil
	}

	future, isFuture := inst.(instrument.Future)

	var jobs []Job
	for _, p := range periods {
		periodStart := start
		intraday := period.Intraday(p)

		if isFuture {
			if ftd := future.TickDate(); intraday && !ftd.IsZero() && periodStart.Before(ftd) {
				continue
			}
			if minStart != nil {
				if ms, ok := minStart(p); ok && periodStart.Before(ms) {
					continue
				}
			}
		} else {
			if intraday && !tickDate.IsZero() && periodStart.Before(tickDate) {
				periodStart = tickDate
			}
			if minStart != nil {
				if ms, ok := minStart(p); ok && periodStart.Before(ms) {
					periodStart = ms
				}
			}
			if !periodStart.Before(end) {
				continue
			}
		}

		window := maxWindow(p)
		if window <= 0 {
			jobs = append(jobs, Job{Instrument: inst, Period: p, Start: periodStart, End: end})
			continue
		}
		for cursor := periodStart; cursor.Before(end); {
			chunkEnd := cursor.Add(window)
			if chunkEnd.After(end) {
				chunkEnd = end
			}
			jobs = append(jobs, Job{Instrument: inst, Period: p, Start: cursor, End: chunkEnd})
			cursor = chunkEnd
		}
	}
	return jobs
}

// ExpandFutures expands every contract a futures Config produces (one
// instrument.Future per year x roll-cycle month) into its own Job list,
// clamped to each contract's own validity window rather than the overall
// requested range.
func ExpandFutures(cfg instrument.Config, fromYear, toYear int, periods []period.Period, rangeStart, rangeEnd time.Time, maxWindow MaxWindowFunc, minStart MinStartFunc) ([]Job, error) {
	futures, err := cfg.Futures(fromYear, toYear)
	if err != nil {
		return nil, err
	}
	var jobs []Job
	for _, f := range futures {
		jobs = append(jobs, Expand(f, periods, rangeStart, rangeEnd, maxWindow, minStart, time.Time{})...)
	}
	return jobs, nil
}

// clampToValidity narrows [start, end) to an instrument's ValidityWindow
// when it has one (futures only); Stock/Forex pass through unchanged.
func clampToValidity(inst instrument.Instrument, start, end time.Time) (time.Time, time.Time) {
	vStart, vEnd, ok := inst.ValidityWindow()
	if !ok {
		return start, end
	}
	if vStart.After(start) {
		start = vStart
	}
	if vEnd.Before(end) {
		end = vEnd
	}
	return start, end
}

// ByInstrument groups jobs into one ordered list per instrument, preserving
// each instrument's original temporal order — the shape the scheduler's
// fair round-robin interleaving consumes.
func ByInstrument(jobs []Job) map[string][]Job {
	out := map[string][]Job{}
	for _, j := range jobs {
		key := j.Instrument.Key()
		out[key] = append(out[key], j)
	}
	return out
}
