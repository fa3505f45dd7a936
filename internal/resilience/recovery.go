package resilience

import (
	"errors"
	"time"

	"github.com/makutaku/vortex-go/internal/vortexerr"
)

// RecoveryAction is one of the downloader's named responses to a failed
// job, proposed by Plan after the Retrier/CircuitBreaker have already had
// their say.
type RecoveryAction string

const (
	ImmediateRetry      RecoveryAction = "IMMEDIATE_RETRY"
	ExponentialBackoff  RecoveryAction = "EXPONENTIAL_BACKOFF"
	ProviderFallback    RecoveryAction = "PROVIDER_FALLBACK"
	GracefulDegradation RecoveryAction = "GRACEFUL_DEGRADATION"
	CircuitBreakerTrip  RecoveryAction = "CIRCUIT_BREAKER"
	ManualIntervention  RecoveryAction = "MANUAL_INTERVENTION"
)

// RecoveryPlan is Plan's verdict on a failed job: an ordered list of
// proposed actions (the first is the preferred response) plus any
// provider-declared delay to honor before acting on it.
type RecoveryPlan struct {
	Actions    []RecoveryAction
	RetryAfter time.Duration
}

// Has reports whether a is among the plan's proposed actions.
func (p RecoveryPlan) Has(a RecoveryAction) bool {
	for _, candidate := range p.Actions {
		if candidate == a {
			return true
		}
	}
	return false
}

// Plan maps a job failure to a RecoveryPlan using the error's vortexerr
// Kind/Subkind. hasFallback reports whether the caller has an alternate
// provider configured to fall back to; when false, a data-not-found or
// low-data failure proposes GRACEFUL_DEGRADATION (record and move on;
// nothing else to try) instead of PROVIDER_FALLBACK, and a connection or
// provider failure proposes EXPONENTIAL_BACKOFF alone.
func Plan(err error, hasFallback bool) RecoveryPlan {
	var ve *vortexerr.Error
	if !errors.As(err, &ve) {
		return RecoveryPlan{Actions: []RecoveryAction{ManualIntervention}}
	}

	switch ve.Subkind {
	case vortexerr.SubAuthenticationFailed:
		return RecoveryPlan{Actions: []RecoveryAction{ManualIntervention}}

	case vortexerr.SubConnectionFailed, vortexerr.SubProviderError:
		actions := []RecoveryAction{ExponentialBackoff}
		if hasFallback {
			actions = append(actions, ProviderFallback)
		}
		return RecoveryPlan{Actions: actions}

	case vortexerr.SubRateLimited:
		plan := RecoveryPlan{Actions: []RecoveryAction{ExponentialBackoff}}
		if ve.RetryAfter != nil {
			plan.RetryAfter = *ve.RetryAfter
		}
		return plan

	case vortexerr.SubDataNotFound, vortexerr.SubLowData:
		if hasFallback {
			return RecoveryPlan{Actions: []RecoveryAction{ProviderFallback}}
		}
		return RecoveryPlan{Actions: []RecoveryAction{GracefulDegradation}}

	case vortexerr.SubAllowanceExceeded:
		return RecoveryPlan{Actions: []RecoveryAction{GracefulDegradation}}

	default:
		return RecoveryPlan{Actions: []RecoveryAction{ManualIntervention}}
	}
}

// Classify adapts vortexerr's Retryable() into the resilience.Classifier
// interface expected by Retrier.
type Classify struct{}

func (Classify) Retryable(err error) bool {
	var ve *vortexerr.Error
	if errors.As(err, &ve) {
		return ve.Retryable()
	}
	return false
}

func (Classify) RateLimited(err error) bool {
	var ve *vortexerr.Error
	if errors.As(err, &ve) {
		return ve.Subkind == vortexerr.SubRateLimited
	}
	return false
}
