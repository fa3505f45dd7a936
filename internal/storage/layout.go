// Package storage persists and loads dataseries.Series under a shared
// directory layout, with a CSV variant (grounded on the teacher's
// report.WriteCSV) and a Parquet variant. Both variants write a JSON
// sidecar (dataseries.Metadata) alongside the data file.
package storage

import (
	"path/filepath"

	"github.com/makutaku/vortex-go/internal/instrument"
	"github.com/makutaku/vortex-go/internal/period"
)

// Layout computes the on-disk path (without extension) for an
// instrument/period pair: futures/{period}/{symbol}/{year}{monthCode},
// stocks/{period}/{symbol}, forex/{period}/{symbol}.
func Layout(root string, inst instrument.Instrument, p period.Period) string {
	switch v := inst.(type) {
	case instrument.Future:
		return filepath.Join(root, "futures", string(p), v.Symbol(), v.ContractLabel())
	case instrument.Forex:
		return filepath.Join(root, "forex", string(p), v.Symbol())
	default:
		return filepath.Join(root, "stocks", string(p), inst.Symbol())
	}
}

// DataPath returns the data file path for the given layout base and
// extension (without the leading dot).
func DataPath(base, ext string) string { return base + "." + ext }

// MetadataPath returns the sidecar JSON metadata path for the given layout
// base.
func MetadataPath(base string) string { return base + ".meta.json" }
