package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/makutaku/vortex-go/internal/dataseries"
	"github.com/makutaku/vortex-go/internal/instrument"
	"github.com/makutaku/vortex-go/internal/period"
	"github.com/makutaku/vortex-go/internal/vortexerr"
)

var csvHeader = []string{"timestamp", "open", "high", "low", "close", "volume", "open_interest"}

// CSV is a Storage implementation writing plain-text CSV, in the same
// style as the teacher's report.WriteCSV: encoding/csv, one header row,
// one row per record, float values formatted with fmt.Sprintf.
type CSV struct{}

func (CSV) Load(ctx context.Context, root string, inst instrument.Instrument, p period.Period) (dataseries.Series, dataseries.Metadata, error) {
	base := Layout(root, inst, p)
	dataPath := DataPath(base, "csv")

	f, err := os.Open(dataPath)
	if err != nil {
		if os.IsNotExist(err) {
			return dataseries.Series{}, dataseries.Metadata{}, vortexerr.StorageNotFound(dataPath)
		}
		return dataseries.Series{}, dataseries.Metadata{}, vortexerr.StorageCorrupted(dataPath, err)
	}
	defer f.Close()

	kind, err := mimetype.DetectFile(dataPath)
	if err != nil {
		return dataseries.Series{}, dataseries.Metadata{}, vortexerr.StorageCorrupted(dataPath, err)
	}
	if !strings.HasPrefix(kind.String(), "text/") {
		return dataseries.Series{}, dataseries.Metadata{}, vortexerr.StorageCorrupted(dataPath, fmt.Errorf("expected text/csv, sniffed %s", kind.String()))
	}

	rows, err := parseCSV(f)
	if err != nil {
		return dataseries.Series{}, dataseries.Metadata{}, vortexerr.StorageCorrupted(dataPath, err)
	}

	meta, err := loadMetadata(MetadataPath(base))
	if err != nil {
		return dataseries.Series{}, dataseries.Metadata{}, err
	}
	return dataseries.New(rows), meta, nil
}

func (CSV) Persist(ctx context.Context, root string, inst instrument.Instrument, p period.Period, provider string, series dataseries.Series, dryRun bool) error {
	base := Layout(root, inst, p)
	dataPath := DataPath(base, "csv")
	meta := dataseries.NewMetadata(inst.Symbol(), string(p), provider, series, time.Now().UTC())

	if dryRun {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return vortexerr.StorageCorrupted(dataPath, err)
	}

	f, err := os.Create(dataPath)
	if err != nil {
		return vortexerr.StorageCorrupted(dataPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range series.Rows() {
		row := []string{
			r.Timestamp.Format("2006-01-02T15:04:05Z0700"),
			fmt.Sprintf("%.6f", r.Open),
			fmt.Sprintf("%.6f", r.High),
			fmt.Sprintf("%.6f", r.Low),
			fmt.Sprintf("%.6f", r.Close),
			fmt.Sprintf("%.2f", r.Volume),
			fmt.Sprintf("%.2f", r.OpenInt),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	return writeMetadata(MetadataPath(base), meta)
}

func parseCSV(f *os.File) ([]dataseries.Row, error) {
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}

	var rows []dataseries.Row
	for _, rec := range records[1:] {
		if len(rec) < 1 {
			continue
		}
		ts, err := time.Parse("2006-01-02T15:04:05Z0700", strings.TrimSpace(rec[0]))
		if err != nil {
			// Tolerate a trailing footer line (e.g. "Downloaded from ...")
			// the way Barchart's own exports sometimes append one.
			continue
		}
		rows = append(rows, dataseries.Row{
			Timestamp: ts.UTC(),
			Open:      parseField(rec, 1),
			High:      parseField(rec, 2),
			Low:       parseField(rec, 3),
			Close:     parseField(rec, 4),
			Volume:    parseField(rec, 5),
			OpenInt:   parseField(rec, 6),
		})
	}
	return rows, nil
}

func parseField(rec []string, idx int) float64 {
	if idx >= len(rec) {
		return 0
	}
	v, _ := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
	return v
}

func loadMetadata(path string) (dataseries.Metadata, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return dataseries.Metadata{}, vortexerr.StorageNotFound(path)
		}
		return dataseries.Metadata{}, vortexerr.StorageCorrupted(path, err)
	}
	var m dataseries.Metadata
	if err := json.Unmarshal(b, &m); err != nil {
		return dataseries.Metadata{}, vortexerr.StorageCorrupted(path, err)
	}
	return m, nil
}

func writeMetadata(path string, m dataseries.Metadata) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
