package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/makutaku/vortex-go/internal/config"
	"github.com/makutaku/vortex-go/internal/downloader"
	"github.com/makutaku/vortex-go/internal/instrument"
	"github.com/makutaku/vortex-go/internal/jobqueue"
	"github.com/makutaku/vortex-go/internal/logger"
	"github.com/makutaku/vortex-go/internal/period"
	"github.com/makutaku/vortex-go/internal/planner"
	"github.com/makutaku/vortex-go/internal/provider"
	"github.com/makutaku/vortex-go/internal/report"
	"github.com/makutaku/vortex-go/internal/resilience"
	"github.com/makutaku/vortex-go/internal/scheduler"
	"github.com/makutaku/vortex-go/internal/storage"
	"github.com/makutaku/vortex-go/internal/vortexerr"
)

func main() {
	configPath := flag.String("config", filepath.Join("config", "download.json"), "path to JSON download config")
	backfill := flag.Bool("backfill", false, "force full backfill instead of incremental update")
	dryRun := flag.Bool("dry-run", false, "fetch and log but do not persist")
	verbosity := flag.Int("v", int(logger.Info), "log verbosity: 0=error 1=info 2=debug 3=trace")
	flag.Parse()

	logger.SetVerbosity(*verbosity)

	cfgData, err := os.ReadFile(*configPath)
	if err != nil {
		logger.Errorf("reading config: %v", err)
		os.Exit(vortexerr.ExitCode(vortexerr.KindConfiguration))
	}

	var cfg config.DownloadConfig
	if err := json.Unmarshal(cfgData, &cfg); err != nil {
		logger.Errorf("invalid config: %v", err)
		os.Exit(vortexerr.ExitCode(vortexerr.KindConfiguration))
	}
	cfg.Backfill = cfg.Backfill || *backfill
	cfg.DryRun = cfg.DryRun || *dryRun

	if err := cfg.Validate(); err != nil {
		logger.Errorf("config validation failed: %v", err)
		os.Exit(vortexerr.ExitCode(vortexerr.KindConfiguration))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	prov, err := newProvider(cfg.Provider)
	if err != nil {
		logger.Errorf("provider setup: %v", err)
		os.Exit(vortexerr.ExitCode(vortexerr.KindConfiguration))
	}
	if err := prov.Login(ctx); err != nil {
		logger.Errorf("provider login: %v", err)
		os.Exit(exitCodeFor(err))
	}
	defer func() {
		if err := prov.Logout(context.Background()); err != nil {
			logger.Errorf("provider logout: %v", err)
		}
	}()

	store := newStorage(cfg.StorageFormat)

	retrier := resilience.NewRetrier(resilience.Config{
		MaxRetries:                 5,
		RetryBase:                  500 * time.Millisecond,
		Strategy:                   resilience.Exponential,
		Jitter:                     true,
		RateLimitBackoffMultiplier: 4,
	}, resilience.Classify{})

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		CooldownPeriod:   30 * time.Second,
		SuccessThreshold: 1,
	})

	dl := &downloader.Downloader{
		Provider: prov,
		Storage:  store,
		Retrier:  retrier,
		Breaker:  breaker,
		Root:     cfg.OutputDirectory,
		DryRun:   cfg.DryRun,
	}

	jobsByInstrument, err := planJobs(cfg, prov)
	if err != nil {
		logger.Errorf("planning jobs: %v", err)
		os.Exit(vortexerr.ExitCode(vortexerr.KindInstrument))
	}

	mode := downloader.Updating
	if cfg.Backfill {
		mode = downloader.Backfilling
	}

	logger.Infof("starting run: %d instruments, mode=%s, provider=%s", len(jobsByInstrument), mode, prov.Name())

	progress := func(processed, total, succeeded int) {
		logger.Debugf("%d/%d jobs processed ---- %d downloads", processed, total, succeeded)
	}

	var summary jobqueue.Summary
	var runErr error
	if cfg.EffectiveMaxConcurrency() <= 1 {
		ordered := scheduler.Interleave(jobsByInstrument, cycleLenOf(cfg))
		summary, runErr = jobqueue.RunSequential(ctx, dl, ordered, mode, progress)
	} else {
		summary, runErr = jobqueue.RunParallel(ctx, dl, jobsByInstrument, mode, cfg.EffectiveMaxConcurrency(), progress)
	}

	if err := os.MkdirAll(cfg.OutputDirectory, 0755); err != nil {
		logger.Errorf("creating output directory: %v", err)
	}
	if err := report.WriteJSON(summary, cfg.OutputDirectory); err != nil {
		logger.Errorf("writing json report: %v", err)
	}
	if err := report.WriteCSV(summary.Results, cfg.OutputDirectory); err != nil {
		logger.Errorf("writing csv report: %v", err)
	}

	logger.Infof("run finished: %d succeeded, %d skipped, %d failed", summary.Succeeded, summary.Skipped, summary.Failed)

	if runErr != nil {
		logger.Errorf("run aborted: %v", runErr)
		os.Exit(exitCodeFor(runErr))
	}
	if summary.Failed > 0 {
		os.Exit(vortexerr.ExitCode(vortexerr.KindDataProvider))
	}
}

func newProvider(pc config.ProviderConfig) (provider.Provider, error) {
	switch pc.Name {
	case config.ProviderBarchart:
		return provider.NewBarchart(pc.Username, pc.Password, pc.BaseURL, pc.DailyLimit), nil
	case config.ProviderYahoo:
		rate := pc.RateLimitHz
		if rate <= 0 {
			rate = 2
		}
		return provider.NewYahoo(rate), nil
	default:
		return nil, vortexerr.Configuration("unsupported provider: " + string(pc.Name))
	}
}

func newStorage(format string) storage.Storage {
	if format == "parquet" {
		return storage.Parquet{}
	}
	return storage.CSV{}
}

// planJobs expands every configured instrument into planner.Jobs and groups
// them by instrument key, ready for scheduler.Interleave / jobqueue.RunParallel.
func planJobs(cfg config.DownloadConfig, prov provider.Provider) (map[string][]planner.Job, error) {
	rangeEnd := cfg.RangeEnd
	if rangeEnd.IsZero() {
		rangeEnd = time.Now()
	}

	supported := supportedPeriods(prov)

	jobsByInstrument := make(map[string][]planner.Job)
	for _, ic := range cfg.Instruments {
		periods, err := parsePeriods(ic.Periods)
		if err != nil {
			return nil, err
		}
		periods = intersectPeriods(periods, supported)

		if ic.AssetClass == instrument.KindFuture {
			jobs, err := planner.ExpandFutures(ic, rangeEnd.Year()-1, rangeEnd.Year()+1, periods, cfg.RangeStart, rangeEnd, prov.MaxWindow, prov.MinStart)
			if err != nil {
				return nil, err
			}
			// Grouped by underlying code rather than per-contract key, so the
			// whole roll cycle shares one scheduler queue and DrawWeight's
			// cycle-length weighting applies to it as a unit.
			jobsByInstrument[ic.Code] = append(jobsByInstrument[ic.Code], jobs...)
			continue
		}

		var inst instrument.Instrument
		if ic.AssetClass == instrument.KindForex {
			inst = instrument.NewForex(ic.Code)
		} else {
			inst = instrument.NewStock(ic.Code)
		}
		jobs := planner.Expand(inst, periods, cfg.RangeStart, rangeEnd, prov.MaxWindow, prov.MinStart, ic.TickDate)
		jobsByInstrument[inst.Key()] = append(jobsByInstrument[inst.Key()], jobs...)
	}

	return jobsByInstrument, nil
}

// supportedPeriods collects the set of periods prov can serve at all.
func supportedPeriods(prov provider.Provider) map[period.Period]bool {
	out := make(map[period.Period]bool)
	for _, fa := range prov.SupportedFrequencies() {
		out[fa.Frequency] = true
	}
	return out
}

// intersectPeriods narrows an instrument's configured periods down to
// those the provider actually supports, per the planner's
// "periods ∩ provider.supported_frequencies" rule.
func intersectPeriods(periods []period.Period, supported map[period.Period]bool) []period.Period {
	out := make([]period.Period, 0, len(periods))
	for _, p := range periods {
		if supported[p] {
			out = append(out, p)
		}
	}
	return out
}

func parsePeriods(raw []string) ([]period.Period, error) {
	out := make([]period.Period, 0, len(raw))
	for _, r := range raw {
		p := period.Period(r)
		if !period.Valid(p) {
			return nil, vortexerr.Configuration("unknown period: " + r)
		}
		out = append(out, p)
	}
	return out, nil
}

// cycleLenOf builds a lookup from instrument key to the roll-cycle length
// of the futures Config it was planned from, so scheduler.Interleave can
// weight long-roll-cycle futures fairly against single-contract instruments.
func cycleLenOf(cfg config.DownloadConfig) func(string) int {
	lens := make(map[string]int)
	for _, ic := range cfg.Instruments {
		if ic.AssetClass != instrument.KindFuture {
			continue
		}
		lens[ic.Code] = ic.Cycle.Len()
	}
	return func(key string) int {
		return lens[key]
	}
}

func exitCodeFor(err error) int {
	var ve *vortexerr.Error
	if e, ok := err.(*vortexerr.Error); ok {
		ve = e
	}
	if ve == nil {
		return vortexerr.ExitCode(vortexerr.KindVortex)
	}
	if ve.Kind == vortexerr.KindDataProvider && ve.Subkind != vortexerr.SubConnectionFailed {
		return 7 // provider-side failure other than a connection failure
	}
	return vortexerr.ExitCode(ve.Kind)
}
