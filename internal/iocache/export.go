package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/internal/parquet"
)

// ExportStore writes every table of the dataset store to Parquet files
// named after outputPrefix and reports progress to w.
func ExportStore(w io.Writer, store contract.DatasetStore, outputPrefix string) error {
	if outputPrefix == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("dataset store is not configured")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get store status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no dataset runs found to export")
	}
	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	metrics, err := store.GetAllFileMetrics()
	if err != nil {
		return fmt.Errorf("failed to retrieve file metrics: %w", err)
	}
	tickets, err := store.GetAllTickets()
	if err != nil {
		return fmt.Errorf("failed to retrieve tickets: %w", err)
	}
	evals, err := store.GetAllEvaluations()
	if err != nil {
		return fmt.Errorf("failed to retrieve evaluations: %w", err)
	}

	if err := exportTable(w, outputPrefix, "runs", parquet.ConvertRunRecords(runs)); err != nil {
		return err
	}
	if err := exportTable(w, outputPrefix, "file_metrics", parquet.ConvertFileMetricRecords(metrics)); err != nil {
		return err
	}
	if err := exportTable(w, outputPrefix, "tickets", parquet.ConvertTicketRecords(tickets)); err != nil {
		return err
	}
	if err := exportTable(w, outputPrefix, "evaluations", parquet.ConvertEvaluationRows(evals)); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(w, "\nExport complete! The Parquet files can be used with:")
	_, _ = fmt.Fprintln(w, "  - Pandas (via pyarrow)")
	_, _ = fmt.Fprintln(w, "  - DuckDB")
	_, _ = fmt.Fprintln(w, "  - Weka (after conversion) or any other Parquet-compatible tool")
	return nil
}

func exportTable[T any](w io.Writer, prefix, name string, rows []T) error {
	path := fmt.Sprintf("%s.%s.parquet", prefix, name)
	if err := parquet.Write(rows, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d %s rows to: %s\n", len(rows), name, path)
	return nil
}
