// Package downloader runs the per-job update/backfill state machine: load
// existing data, check coverage, fetch the gap through the resilience
// layer, merge and persist.
package downloader

import (
	"context"
	"errors"
	"time"

	"github.com/makutaku/vortex-go/internal/correlation"
	"github.com/makutaku/vortex-go/internal/dataseries"
	"github.com/makutaku/vortex-go/internal/planner"
	"github.com/makutaku/vortex-go/internal/provider"
	"github.com/makutaku/vortex-go/internal/resilience"
	"github.com/makutaku/vortex-go/internal/storage"
	"github.com/makutaku/vortex-go/internal/vortexerr"
)

// MinDaysToTriggerUpdate is the minimum gap between a job's requested end
// and the data already on disk before an update fetch is attempted at all;
// smaller gaps are treated as already covered and skipped.
const MinDaysToTriggerUpdate = 7 * 24 * time.Hour

// Mode selects whether a job treats existing data as a coverage check
// (UPDATING, the default) or is forced to fetch the full requested range
// regardless of what's already on disk (BACKFILLING).
type Mode string

const (
	Updating    Mode = "updating"
	Backfilling Mode = "backfilling"
)

// Result reports the outcome of running a single Job.
type Result struct {
	Job       planner.Job
	Skipped   bool // coverage already satisfied the request; nothing fetched
	RowsAdded int
	Err       error
}

// Downloader wires a Provider, Storage, CircuitBreaker, and Retrier
// together to execute planner.Job values. The resilience layer wraps each
// fetch outermost-to-innermost as breaker, then retry: Breaker.Allow gates
// the call before any retry attempt is made, and the aggregate outcome of
// the (possibly retried) fetch is what trips or heals the breaker — not
// each individual attempt.
type Downloader struct {
	Provider provider.Provider
	Storage  storage.Storage
	Retrier  *resilience.Retrier
	Breaker  *resilience.CircuitBreaker // optional; nil disables breaker gating
	Root     string
	DryRun   bool
}

// Run executes one job under the given mode, returning a Result that never
// itself carries a process-terminating error for the LowData/DataNotFound
// cases — those are recorded on Result.Err for the caller's recovery
// planner to classify via resilience.Plan.
func (d *Downloader) Run(ctx context.Context, job planner.Job, mode Mode) Result {
	ctx, scope := correlation.Begin(ctx, "download_job", d.Provider.Name())
	correlation.GlobalTracker().Record(scope)

	result := d.run(ctx, job, mode)
	correlation.GlobalTracker().Complete(scope.ID, result.Err)
	return result
}

func (d *Downloader) run(ctx context.Context, job planner.Job, mode Mode) Result {
	existing, _, loadErr := d.Storage.Load(ctx, d.Root, job.Instrument, job.Period)
	if loadErr != nil {
		var ve *vortexerr.Error
		if !isNotFound(loadErr, &ve) {
			return Result{Job: job, Err: loadErr}
		}
		existing = dataseries.Series{}
	}

	if mode == Updating && !existing.CoverageGap(job.End, MinDaysToTriggerUpdate) {
		return Result{Job: job, Skipped: true}
	}

	fetchStart := job.Start
	if mode == Updating && !existing.Last().IsZero() && existing.Last().After(fetchStart) {
		fetchStart = existing.Last()
	}

	if d.Breaker != nil {
		if err := d.Breaker.Allow(); err != nil {
			return Result{Job: job, Err: vortexerr.ProviderError(d.Provider.Name(), "circuit breaker open, provider marked unhealthy")}
		}
	}

	var fetched dataseries.Series
	err := d.Retrier.Do(ctx, func(ctx context.Context) error {
		s, ferr := d.Provider.Fetch(ctx, provider.FetchRequest{
			Instrument: job.Instrument,
			Period:     job.Period,
			Start:      fetchStart,
			End:        job.End,
		})
		if ferr != nil {
			return ferr
		}
		fetched = s
		return nil
	})
	if d.Breaker != nil {
		if err != nil {
			d.Breaker.RecordFailure()
		} else {
			d.Breaker.RecordSuccess()
		}
	}
	if err != nil {
		return Result{Job: job, Err: err}
	}

	if fetched.Len() < 3 {
		return Result{Job: job, Err: vortexerr.LowData(d.Provider.Name(), fetched.Len())}
	}

	merged := existing.Merge(fetched.Rows())
	if err := d.Storage.Persist(ctx, d.Root, job.Instrument, job.Period, d.Provider.Name(), merged, d.DryRun); err != nil {
		return Result{Job: job, Err: err}
	}

	return Result{Job: job, RowsAdded: merged.Len() - existing.Len()}
}

func isNotFound(err error, target **vortexerr.Error) bool {
	var ve *vortexerr.Error
	if !errors.As(err, &ve) || ve.Subkind != vortexerr.SubFileNotFound {
		return false
	}
	*target = ve
	return true
}
