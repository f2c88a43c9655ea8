package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/internal/parquet"
)

// ExecuteHistoryExport writes the lookup history of the global manager to Parquet files.
func ExecuteHistoryExport(w io.Writer, outputFile string) error {
	return ExportHistory(w, Manager.GetHistoryStore(), outputFile)
}

// ExportHistory writes every lookup and lookup score of store to
// <outputFile>.lookups.parquet and <outputFile>.lookup_scores.parquet.
func ExportHistory(w io.Writer, store contract.HistoryStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("history is disabled; set --history-backend to record lookups")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalLookups == 0 {
		return errors.New("no lookup history found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total lookups: %d\n", status.TotalLookups)
	_, _ = fmt.Fprintf(w, "Total station scores: %d\n", status.TotalScores)

	lookups, err := store.GetAllLookups()
	if err != nil {
		return fmt.Errorf("failed to retrieve lookups: %w", err)
	}
	scores, err := store.GetAllLookupScores()
	if err != nil {
		return fmt.Errorf("failed to retrieve lookup scores: %w", err)
	}

	lookupsFile := outputFile + ".lookups.parquet"
	parquetLookups := parquet.ConvertLookupRecords(lookups)
	if err := parquet.WriteLookupsParquet(parquetLookups, lookupsFile); err != nil {
		return fmt.Errorf("failed to write lookups: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d lookups to: %s\n", len(parquetLookups), lookupsFile)

	scoresFile := outputFile + ".lookup_scores.parquet"
	parquetScores := parquet.ConvertLookupScoreRecords(scores)
	if err := parquet.WriteLookupScoresParquet(parquetScores, scoresFile); err != nil {
		return fmt.Errorf("failed to write lookup scores: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d station scores to: %s\n", len(parquetScores), scoresFile)

	_, _ = fmt.Fprintln(w, "\nExport complete! The Parquet files can be read with DuckDB, Pandas (via pyarrow) or Apache Spark.")
	return nil
}
