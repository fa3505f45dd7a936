package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/makutaku/vortex-go/internal/downloader"
	"github.com/makutaku/vortex-go/internal/instrument"
	"github.com/makutaku/vortex-go/internal/jobqueue"
	"github.com/makutaku/vortex-go/internal/period"
	"github.com/makutaku/vortex-go/internal/planner"
	"github.com/makutaku/vortex-go/internal/vortexerr"
)

func sampleSummary() jobqueue.Summary {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return jobqueue.Summary{
		Total:     2,
		Succeeded: 1,
		Failed:    1,
		Results: []downloader.Result{
			{
				Job:       planner.Job{Instrument: instrument.NewStock("AAPL"), Period: period.OneDay, Start: base, End: base.AddDate(0, 0, 1)},
				RowsAdded: 5,
			},
			{
				Job: planner.Job{Instrument: instrument.NewStock("MSFT"), Period: period.OneDay, Start: base, End: base.AddDate(0, 0, 1)},
				Err: vortexerr.DataNotFound("fake", "no data"),
			},
		},
	}
}

func TestWriteJSONProducesValidFile(t *testing.T) {
	dir := t.TempDir()
	if err := WriteJSON(sampleSummary(), dir); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "run_summary.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "AAPL") {
		t.Fatalf("expected json to mention instrument key, got %s", b)
	}
}

func TestWriteCSVProducesOneRowPerResult(t *testing.T) {
	dir := t.TempDir()
	summary := sampleSummary()
	if err := WriteCSV(summary.Results, dir); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "run_summary.csv"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines: %v", len(lines), lines)
	}
}
