// Package provider defines the capability contract every market-data
// source must satisfy, and the concrete Barchart/Yahoo/IBKR
// implementations. It generalizes the teacher's data.Provider interface
// (Secondary/GetContracts/GetDailyBars/...) from options pricing lookups to
// historical bar downloads, keeping the same "single narrow interface plus
// one struct per backend" shape.
package provider

import (
	"context"
	"time"

	"github.com/makutaku/vortex-go/internal/dataseries"
	"github.com/makutaku/vortex-go/internal/instrument"
	"github.com/makutaku/vortex-go/internal/period"
)

// FetchRequest describes one bounded download request for a single
// instrument/period pair.
type FetchRequest struct {
	Instrument instrument.Instrument
	Period     period.Period
	Start      time.Time
	End        time.Time
}

// Provider is implemented by every data source backend.
type Provider interface {
	// Name identifies the provider for logging, correlation scopes, and
	// error context (e.g. "barchart", "yahoo", "ibkr").
	Name() string

	// Login performs whatever handshake the backend requires (cookie/CSRF
	// token acquisition, session negotiation) before any Fetch call. Safe to
	// call multiple times; implementations should no-op once logged in.
	Login(ctx context.Context) error

	// Logout releases whatever session state Login acquired. Safe to call
	// on a provider that never logged in.
	Logout(ctx context.Context) error

	// Usage reports the provider's current API allowance, when the backend
	// exposes one. Returns ok=false for providers without a usage API.
	Usage(ctx context.Context) (used, limit int, ok bool)

	// Fetch retrieves a Series for the given request. Errors are
	// *vortexerr.Error so callers can branch on taxonomy without string
	// matching, except that a canceled or expired ctx may surface as the
	// context's own error.
	Fetch(ctx context.Context, req FetchRequest) (dataseries.Series, error)

	// MaxWindow returns the largest [start,end) span the provider accepts
	// in one Fetch call for the given period, used by the planner to
	// subdivide stock/forex download windows.
	MaxWindow(p period.Period) time.Duration

	// SupportedFrequencies lists every period this provider can serve,
	// along with its per-period record cap, window size, and earliest
	// supported start. The planner intersects this against an
	// instrument's configured periods before expanding jobs.
	SupportedFrequencies() []period.FrequencyAttributes

	// MinStart reports the earliest timestamp this provider supports for
	// period p, evaluated against the current time. ok is false when p is
	// not in SupportedFrequencies.
	MinStart(p period.Period) (time.Time, bool)
}

// minStartFor looks up p in freqs and resolves its MinStart against now,
// the shared lookup every backend's MinStart method delegates to.
func minStartFor(freqs []period.FrequencyAttributes, p period.Period, now time.Time) (time.Time, bool) {
	for _, fa := range freqs {
		if fa.Frequency == p {
			return fa.ResolvedMinStart(now), true
		}
	}
	return time.Time{}, false
}

// relativeMinStart builds a FrequencyAttributes MinStart value meaning
// "now minus age", the encoding ResolvedMinStart expects for Relative
// attributes.
func relativeMinStart(age time.Duration) time.Time {
	return time.Time{}.Add(age)
}
