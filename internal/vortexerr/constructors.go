package vortexerr

import "time"

// Retryable reports whether an error of this kind/subkind should be
// retried by the resilience layer, per spec: ConnectionFailed, RateLimited,
// and ProviderError are retryable; everything else is not.
func (e *Error) Retryable() bool {
	if e == nil || e.Kind != KindDataProvider {
		return false
	}
	switch e.Subkind {
	case SubConnectionFailed, SubRateLimited, SubProviderError:
		return true
	default:
		return false
	}
}

// DataNotFound constructs the non-retryable "no data" provider error.
func DataNotFound(provider, message string) *Error {
	return &Error{
		Kind: KindDataProvider, Subkind: SubDataNotFound,
		Code: "PROVIDER_DATA_NOT_FOUND", Message: message,
		HelpText:   "verify the symbol, period, and date range are valid for " + provider,
		UserAction: "check instrument configuration",
		Context:    map[string]any{"provider": provider},
	}
}

// AuthenticationFailed constructs the non-retryable auth error that
// demands manual intervention.
func AuthenticationFailed(provider, message string) *Error {
	return &Error{
		Kind: KindDataProvider, Subkind: SubAuthenticationFailed,
		Code: "PROVIDER_AUTH_FAILED", Message: message,
		HelpText:   "refresh credentials for " + provider,
		UserAction: "manual_intervention",
		Context:    map[string]any{"provider": provider},
	}
}

// RateLimited constructs the retryable rate-limit error, optionally
// carrying a provider-declared retry-after duration.
func RateLimited(provider, message string, retryAfter *time.Duration) *Error {
	return &Error{
		Kind: KindDataProvider, Subkind: SubRateLimited,
		Code: "PROVIDER_RATE_LIMITED", Message: message,
		HelpText:   "reduce request rate or daily_limit for " + provider,
		UserAction: "wait and retry",
		Context:    map[string]any{"provider": provider},
		RetryAfter: retryAfter,
	}
}

// AllowanceExceeded constructs the non-retryable quota error that aborts
// the current download run.
func AllowanceExceeded(provider, message string) *Error {
	return &Error{
		Kind: KindDataProvider, Subkind: SubAllowanceExceeded,
		Code: "PROVIDER_ALLOWANCE_EXCEEDED", Message: message,
		HelpText:   "daily_limit reached for " + provider + "; resume tomorrow or raise the limit",
		UserAction: "abort_run",
		Context:    map[string]any{"provider": provider},
	}
}

// ConnectionFailed constructs the retryable network-failure error.
func ConnectionFailed(provider, message string) *Error {
	return &Error{
		Kind: KindDataProvider, Subkind: SubConnectionFailed,
		Code: "PROVIDER_CONNECTION_FAILED", Message: message,
		HelpText:   "check network connectivity to " + provider,
		UserAction: "retry",
		Context:    map[string]any{"provider": provider},
	}
}

// LowData constructs the non-retryable, non-fatal low-row-count error.
func LowData(provider string, rows int) *Error {
	return &Error{
		Kind: KindDataProvider, Subkind: SubLowData,
		Code: "PROVIDER_LOW_DATA", Message: "fewer than three rows returned",
		HelpText:   "this is often expected for illiquid or newly listed instruments",
		UserAction: "none",
		Context:    map[string]any{"provider": provider, "rows": rows},
	}
}

// ProviderError constructs the generic retryable provider-side error.
func ProviderError(provider, message string) *Error {
	return &Error{
		Kind: KindDataProvider, Subkind: SubProviderError,
		Code: "PROVIDER_ERROR", Message: message,
		HelpText:   "transient provider-side failure for " + provider,
		UserAction: "retry",
		Context:    map[string]any{"provider": provider},
	}
}

// StorageNotFound constructs the storage-layer not-found error.
func StorageNotFound(path string) *Error {
	return &Error{
		Kind: KindStorage, Subkind: SubFileNotFound,
		Code: "STORAGE_FILE_NOT_FOUND", Message: "data file or sidecar missing: " + path,
		HelpText:   "run a backfill to create it",
		UserAction: "none",
		Context:    map[string]any{"path": path},
	}
}

// StorageCorrupted constructs the storage-layer corrupt-file error.
func StorageCorrupted(path string, cause error) *Error {
	return Wrap(&Error{
		Kind: KindStorage, Subkind: SubFileCorrupted,
		Code: "STORAGE_FILE_CORRUPTED", Message: "failed to parse data file: " + path,
		HelpText:   "delete the file and backfill will recreate it",
		UserAction: "delete_and_retry",
		Context:    map[string]any{"path": path},
	}, cause)
}

// Configuration constructs a configuration-layer error.
func Configuration(message string) *Error {
	return &Error{
		Kind: KindConfiguration, Code: "CONFIGURATION_INVALID", Message: message,
		HelpText:   "fix the reported configuration field and retry",
		UserAction: "fix_configuration",
	}
}

// ManualIntervention constructs a fatal error that demands operator action,
// used by the recovery planner to surface MANUAL_INTERVENTION decisions.
func ManualIntervention(message string) *Error {
	return &Error{
		Kind: KindVortex, Code: "MANUAL_INTERVENTION_REQUIRED", Message: message,
		HelpText:   "resolve the underlying issue before resuming",
		UserAction: "manual_intervention",
	}
}
