package storage

import (
	"context"

	"github.com/makutaku/vortex-go/internal/dataseries"
	"github.com/makutaku/vortex-go/internal/instrument"
	"github.com/makutaku/vortex-go/internal/period"
)

// Storage persists and loads a Series plus its sidecar Metadata for a given
// instrument/period. Implementations: CSV (encoding/csv) and Parquet
// (parquet-go).
type Storage interface {
	// Load reads the existing series for inst/p, if any. Returns a
	// *vortexerr.Error with Subkind SubFileNotFound when nothing is
	// persisted yet — not a bare os.ErrNotExist, so callers never need to
	// know which filesystem error a variant's backend happens to return.
	Load(ctx context.Context, root string, inst instrument.Instrument, p period.Period) (dataseries.Series, dataseries.Metadata, error)

	// Persist writes series and its derived metadata, replacing whatever
	// was there before. When dryRun is true, Persist writes nothing and
	// returns nil, uniformly suppressing the side effect across both
	// variants.
	Persist(ctx context.Context, root string, inst instrument.Instrument, p period.Period, provider string, series dataseries.Series, dryRun bool) error
}
