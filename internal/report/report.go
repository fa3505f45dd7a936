// Package report writes a completed run's Summary to disk, in the
// JSON+CSV pair the teacher's own report/reports packages produced for
// backtest runs.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/makutaku/vortex-go/internal/downloader"
	"github.com/makutaku/vortex-go/internal/jobqueue"
)

// WriteJSON writes the full summary, including per-job results, as
// indented JSON to "{outdir}/run_summary.json".
func WriteJSON(summary jobqueue.Summary, outdir string) error {
	// Instrument values have only unexported fields and encode as {}, so
	// each result also carries its instrument key.
	type resultView struct {
		downloader.Result
		Instrument string
	}
	view := struct {
		jobqueue.Summary
		Results []resultView
	}{Summary: summary}
	for _, r := range summary.Results {
		rv := resultView{Result: r}
		if r.Job.Instrument != nil {
			rv.Instrument = r.Job.Instrument.Key()
		}
		view.Results = append(view.Results, rv)
	}
	b, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outdir, "run_summary.json"), b, 0644)
}

// WriteCSV writes one row per job result to "{outdir}/run_summary.csv".
func WriteCSV(results []downloader.Result, outdir string) error {
	f, err := os.Create(filepath.Join(outdir, "run_summary.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	headers := []string{"instrument", "period", "start", "end", "skipped", "rows_added", "error"}
	if err := w.Write(headers); err != nil {
		return err
	}
	for _, r := range results {
		errMsg := ""
		if r.Err != nil {
			errMsg = r.Err.Error()
		}
		instKey := ""
		if r.Job.Instrument != nil {
			instKey = r.Job.Instrument.Key()
		}
		row := []string{
			instKey,
			string(r.Job.Period),
			r.Job.Start.Format("2006-01-02"),
			r.Job.End.Format("2006-01-02"),
			fmt.Sprintf("%t", r.Skipped),
			fmt.Sprintf("%d", r.RowsAdded),
			errMsg,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
