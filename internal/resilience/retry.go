// Package resilience implements the retry, circuit-breaker, and recovery
// policies applied around every provider fetch. No retry or circuit-breaker
// library exists anywhere in the reference corpus, so this package is
// hand-rolled in the style the corpus itself uses for ad hoc resilience:
// a small Config struct of tunables (MaxRetries, RetryBase) plus a
// capped exponential backoff with jitter, the same shape
// backfill-service's Service.Cfg uses for its hour-retry loop, combined
// with the rate-limit-aware sleep-until-next-minute-boundary behavior the
// teacher's massiveDataProvider.processGetRequest applies on HTTP 429.
package resilience

import (
	"context"
	"math/rand"
	"time"
)

// Strategy selects how backoff durations grow between attempts.
type Strategy string

const (
	Fixed       Strategy = "fixed"
	Linear      Strategy = "linear"
	Exponential Strategy = "exponential"
)

// Config tunes a Retrier.
type Config struct {
	MaxRetries int           // attempts per operation; <=0 -> 1 (no retry)
	RetryBase  time.Duration // base backoff; <=0 -> 500ms
	MaxBackoff time.Duration // cap on any single sleep; <=0 -> 30s
	Strategy   Strategy      // <empty> -> Exponential
	Jitter     bool          // scale the computed backoff by a random factor in [0.5, 1.0]

	// RateLimitBackoffMultiplier scales the computed backoff when the
	// failure being retried is a rate-limit response, letting callers back
	// off harder than a generic transient error without a separate strategy.
	RateLimitBackoffMultiplier float64
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 1
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.Strategy == "" {
		c.Strategy = Exponential
	}
	if c.RateLimitBackoffMultiplier <= 0 {
		c.RateLimitBackoffMultiplier = 1
	}
	return c
}

// Classifier tells the Retrier whether an error is worth retrying at all,
// and whether it represents a rate-limit response (which gets the
// RateLimitBackoffMultiplier applied on top of the base strategy).
type Classifier interface {
	Retryable(err error) bool
	RateLimited(err error) bool
}

// Retrier runs an operation, retrying on retryable failures per Config.
type Retrier struct {
	cfg        Config
	classifier Classifier
}

// NewRetrier constructs a Retrier. classifier may be nil, in which case
// every non-nil error is treated as retryable and never as rate-limited.
func NewRetrier(cfg Config, classifier Classifier) *Retrier {
	return &Retrier{cfg: cfg.withDefaults(), classifier: classifier}
}

// Do runs fn, retrying per the configured strategy until it succeeds, the
// error is classified as non-retryable, attempts are exhausted, or ctx is
// canceled.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if r.classifier != nil && !r.classifier.Retryable(err) {
			return err
		}
		if attempt == r.cfg.MaxRetries-1 {
			break
		}

		d := r.backoff(attempt)
		if r.classifier != nil && r.classifier.RateLimited(err) {
			d = time.Duration(float64(d) * r.cfg.RateLimitBackoffMultiplier)
			if d > r.cfg.MaxBackoff {
				d = r.cfg.MaxBackoff
			}
		}
		if sleepErr := sleepCtx(ctx, d); sleepErr != nil {
			return sleepErr
		}
	}
	return lastErr
}

func (r *Retrier) backoff(attempt int) time.Duration {
	var d time.Duration
	switch r.cfg.Strategy {
	case Fixed:
		d = r.cfg.RetryBase
	case Linear:
		d = r.cfg.RetryBase * time.Duration(attempt+1)
	default: // Exponential
		d = r.cfg.RetryBase << attempt
	}
	if d > r.cfg.MaxBackoff || d <= 0 {
		d = r.cfg.MaxBackoff
	}
	if r.cfg.Jitter {
		d = d/2 + time.Duration(rand.Int63n(int64(d/2+1)))
	}
	return d
}

// SleepUntilNextMinute blocks until the next minute boundary, mirroring the
// teacher's per-minute rate-limit handling for providers whose quota resets
// on the clock rather than on an exponential schedule.
func SleepUntilNextMinute(ctx context.Context) error {
	now := time.Now()
	d := time.Until(now.Truncate(time.Minute).Add(time.Minute))
	return sleepCtx(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
