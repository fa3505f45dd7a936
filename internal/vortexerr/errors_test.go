package vortexerr

import (
	"errors"
	"testing"
	"time"
)

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		want bool
	}{
		{"connection failed", ConnectionFailed("yahoo", "timeout"), true},
		{"rate limited", RateLimited("barchart", "429", nil), true},
		{"provider error", ProviderError("ibkr", "500"), true},
		{"data not found", DataNotFound("yahoo", "404"), false},
		{"auth failed", AuthenticationFailed("barchart", "401"), false},
		{"allowance exceeded", AllowanceExceeded("barchart", "quota"), false},
		{"low data", LowData("yahoo", 1), false},
		{"storage error", StorageNotFound("x.csv"), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.err.Retryable(); got != c.want {
				t.Errorf("Retryable() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestRateLimitedCarriesRetryAfter(t *testing.T) {
	d := 5 * time.Second
	err := RateLimited("barchart", "429", &d)
	if err.RetryAfter == nil || *err.RetryAfter != d {
		t.Fatalf("expected RetryAfter=%v, got %v", d, err.RetryAfter)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	wrapped := StorageCorrupted("aapl.csv", cause)
	if !errors.Is(wrapped, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
	if wrapped.Kind != KindStorage || wrapped.Subkind != SubFileCorrupted {
		t.Fatalf("unexpected kind/subkind: %v/%v", wrapped.Kind, wrapped.Subkind)
	}
}

func TestWithContextDoesNotMutateOriginal(t *testing.T) {
	base := DataNotFound("yahoo", "no data")
	decorated := base.WithContext("symbol", "AAPL")
	if _, ok := base.Context["symbol"]; ok {
		t.Fatalf("original error context must not be mutated")
	}
	if decorated.Context["symbol"] != "AAPL" {
		t.Fatalf("decorated error missing symbol context")
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		k    Kind
		want int
	}{
		{KindConfiguration, 3},
		{KindDataProvider, 4},
		{KindStorage, 6},
		{KindInstrument, 8},
		{KindCLI, 9},
		{KindVortex, 10},
	}
	for _, c := range cases {
		if got := ExitCode(c.k); got != c.want {
			t.Errorf("ExitCode(%s) = %d, want %d", c.k, got, c.want)
		}
	}
}
