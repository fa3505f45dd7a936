// Package jobqueue runs a scheduler-ordered job list through a Downloader,
// sequentially or with bounded per-instrument parallelism, applying the
// resilience package's recovery plan to each failure.
package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/makutaku/vortex-go/internal/downloader"
	"github.com/makutaku/vortex-go/internal/planner"
	"github.com/makutaku/vortex-go/internal/resilience"
	"github.com/makutaku/vortex-go/internal/vortexerr"
)

// queueDecision is what the queue does next after a failed job, derived
// from the job's resilience.RecoveryPlan.
type queueDecision int

const (
	decisionContinue queueDecision = iota
	decisionAbortRemaining
	decisionPropagate
)

// decide folds a job failure's RecoveryPlan into a queue-level decision.
// AllowanceExceeded always aborts the remaining queue regardless of the
// plan's proposed action, since every subsequent job would hit the same
// exhausted quota; a plan proposing MANUAL_INTERVENTION propagates the
// error and terminates the run; anything else is recorded and the queue
// continues (this run has no fallback provider configured, so
// PROVIDER_FALLBACK and GRACEFUL_DEGRADATION both reduce to "continue").
func decide(err error) queueDecision {
	var ve *vortexerr.Error
	if errors.As(err, &ve) && ve.Subkind == vortexerr.SubAllowanceExceeded {
		return decisionAbortRemaining
	}
	if resilience.Plan(err, false).Has(resilience.ManualIntervention) {
		return decisionPropagate
	}
	return decisionContinue
}

// Runner executes a single job, abstracting over *downloader.Downloader so
// the processor can be tested without real provider/storage wiring.
type Runner interface {
	Run(ctx context.Context, job planner.Job, mode downloader.Mode) downloader.Result
}

// Summary aggregates the outcome of running a job list.
type Summary struct {
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
	Results   []downloader.Result
}

// ProgressFunc is called after every job completes, in the
// "{processed}/{total} jobs processed ---- {succeeded} downloads" style
// the teacher's own long-running loops log progress in.
type ProgressFunc func(processed, total, succeeded int)

// RunSequential executes jobs in order on a single goroutine, stopping
// early when a failure's recovery plan calls for aborting the remaining
// queue or propagating the error.
func RunSequential(ctx context.Context, runner Runner, jobs []planner.Job, mode downloader.Mode, progress ProgressFunc) (Summary, error) {
	summary := Summary{Total: len(jobs)}
	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		result := runner.Run(ctx, job, mode)
		summary.Results = append(summary.Results, result)
		recordOutcome(&summary, result)
		if progress != nil {
			progress(i+1, summary.Total, summary.Succeeded)
		}
		if result.Err == nil {
			continue
		}
		switch decide(result.Err) {
		case decisionContinue:
			continue
		case decisionAbortRemaining:
			return summary, nil
		default:
			return summary, result.Err
		}
	}
	return summary, nil
}

// RunParallel executes jobsByInstrument with one goroutine per instrument
// key, preserving each instrument's own job order (its job slice is run
// sequentially by that instrument's goroutine) while different instruments
// progress concurrently. Failures whose decision is to continue are only
// recorded. An allowance abort or a propagate-worthy failure stops every
// goroutine before its next job (jobs already running finish); the
// propagate-worthy errors are aggregated via go-multierror and returned.
func RunParallel(ctx context.Context, runner Runner, jobsByInstrument map[string][]planner.Job, mode downloader.Mode, maxConcurrency int, progress ProgressFunc) (Summary, error) {
	total := 0
	for _, js := range jobsByInstrument {
		total += len(js)
	}

	var (
		mu       sync.Mutex
		summary  = Summary{Total: total}
		errs     *multierror.Error
		sem      = make(chan struct{}, maxConcurrency)
		wg       sync.WaitGroup
		aborted  bool
	)

	for key, jobs := range jobsByInstrument {
		wg.Add(1)
		go func(key string, jobs []planner.Job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			for _, job := range jobs {
				if ctx.Err() != nil {
					return
				}
				mu.Lock()
				if aborted {
					mu.Unlock()
					return
				}
				mu.Unlock()

				result := runner.Run(ctx, job, mode)

				mu.Lock()
				summary.Results = append(summary.Results, result)
				recordOutcome(&summary, result)
				processed := len(summary.Results)
				succeeded := summary.Succeeded
				if result.Err != nil {
					switch decide(result.Err) {
					case decisionContinue:
						// recorded, keep going
					case decisionAbortRemaining:
						aborted = true
					default:
						errs = multierror.Append(errs, fmt.Errorf("instrument %s: %w", key, result.Err))
						aborted = true
					}
				}
				mu.Unlock()

				if progress != nil {
					progress(processed, total, succeeded)
				}
			}
		}(key, jobs)
	}

	wg.Wait()
	if errs != nil {
		return summary, errs.ErrorOrNil()
	}
	return summary, nil
}

func recordOutcome(summary *Summary, result downloader.Result) {
	switch {
	case result.Skipped:
		summary.Skipped++
	case result.Err == nil:
		summary.Succeeded++
	default:
		summary.Failed++
	}
}
