// Package vortexerr defines the error taxonomy shared across the download
// orchestration engine: every error built by this package carries a
// stable Kind, a machine-readable
// Code, and user-facing HelpText/UserAction, so callers can branch on
// category without string matching — the same discipline the teacher
// applies to its own sentinel errors in internal/backtest/strategy, just
// generalized from two sentinels to a full taxonomy.
package vortexerr

import (
	"fmt"
	"time"
)

// Kind classifies an error into one of the taxonomy's top-level buckets.
type Kind string

const (
	KindConfiguration  Kind = "configuration"
	KindInstrument     Kind = "instrument"
	KindDataProvider   Kind = "data_provider"
	KindStorage        Kind = "storage"
	KindCLI            Kind = "cli"
	KindVortex         Kind = "vortex" // catch-all
)

// Subkind further refines KindDataProvider and KindStorage errors.
type Subkind string

const (
	SubAuthenticationFailed Subkind = "authentication_failed"
	SubConnectionFailed     Subkind = "connection_failed"
	SubRateLimited          Subkind = "rate_limited"
	SubDataNotFound         Subkind = "data_not_found"
	SubAllowanceExceeded    Subkind = "allowance_exceeded"
	SubLowData              Subkind = "low_data"
	SubProviderError        Subkind = "provider_error"

	SubPermissionDenied Subkind = "permission_denied"
	SubDiskSpace        Subkind = "disk_space"
	SubFileNotFound     Subkind = "file_not_found"
	SubFileCorrupted    Subkind = "file_corrupted"
)

// ExitCode maps an error Kind to the process exit code mandated by the
// specification.
func ExitCode(k Kind) int {
	switch k {
	case KindConfiguration:
		return 3
	case KindDataProvider:
		return 4 // connection-class default; refined per Subkind by callers
	case KindStorage:
		return 6
	case KindInstrument:
		return 8
	case KindCLI:
		return 9
	case KindVortex:
		return 10
	default:
		return 1
	}
}

// Error is the single concrete error type used throughout the engine.
type Error struct {
	Kind          Kind
	Subkind       Subkind
	Code          string         // stable machine-readable identifier, e.g. "PROVIDER_RATE_LIMITED"
	Message       string
	HelpText      string
	UserAction    string
	CorrelationID string
	Context       map[string]any
	RetryAfter    *time.Duration // set only when Subkind == SubRateLimited
	cause         error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause so errors.Is/errors.As compose.
func (e *Error) Unwrap() error { return e.cause }

// WithContext returns a copy of e with the given key/value merged into its
// context map.
func (e *Error) WithContext(key string, value any) *Error {
	cp := *e
	cp.Context = make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		cp.Context[k] = v
	}
	cp.Context[key] = value
	return &cp
}

// WithCorrelationID returns a copy of e decorated with the given
// correlation ID.
func (e *Error) WithCorrelationID(id string) *Error {
	cp := *e
	cp.CorrelationID = id
	return &cp
}

// Wrap attaches a lower-level cause to e.
func Wrap(e *Error, cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}
