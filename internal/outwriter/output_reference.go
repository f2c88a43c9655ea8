package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintPrefectures outputs prefecture counts, dispatching based on the output format configured.
func PrintPrefectures(prefectures []schema.Prefecture, cfg *contract.Config, duration time.Duration) error {
	if cfg.Output == schema.ParquetOut {
		return errParquetUnsupported
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WritePrefectures(w, prefectures, cfg, duration)
	}, successMessage(cfg.Output))
}

// WritePrefectures writes prefecture counts to w in the configured format.
func WritePrefectures(w io.Writer, prefectures []schema.Prefecture, cfg *contract.Config, duration time.Duration) error {
	if prefectures == nil {
		prefectures = []schema.Prefecture{}
	}
	if ok, err := writeStructured(w, cfg.Output, prefectures); ok {
		return err
	}
	if cfg.Output == schema.CSVOut {
		return writeCSVWithHeader(w, []string{"prefecture", "count"}, func(cw *csv.Writer) error {
			for _, p := range prefectures {
				if err := cw.Write([]string{p.Name, strconv.Itoa(p.Count)}); err != nil {
					return err
				}
			}
			return nil
		})
	}

	rows := make([][]string, len(prefectures))
	total := 0
	for i, p := range prefectures {
		rows[i] = []string{p.Name, strconv.Itoa(p.Count)}
		total += p.Count
	}
	if err := renderSimpleTable(w, []string{"Prefecture", "Stations"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d prefectures, %d stations. Completed in %v\n", len(prefectures), total, duration)
	return err
}

// PrintLines outputs line names, dispatching based on the output format configured.
func PrintLines(lines []string, cfg *contract.Config, duration time.Duration) error {
	if cfg.Output == schema.ParquetOut {
		return errParquetUnsupported
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteLines(w, lines, cfg, duration)
	}, successMessage(cfg.Output))
}

// WriteLines writes line names to w in the configured format.
func WriteLines(w io.Writer, lines []string, cfg *contract.Config, duration time.Duration) error {
	if lines == nil {
		lines = []string{}
	}
	if ok, err := writeStructured(w, cfg.Output, lines); ok {
		return err
	}
	if cfg.Output == schema.CSVOut {
		return writeCSVWithHeader(w, []string{"line_name"}, func(cw *csv.Writer) error {
			for _, line := range lines {
				if err := cw.Write([]string{line}); err != nil {
					return err
				}
			}
			return nil
		})
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d lines. Completed in %v\n", len(lines), duration)
	return err
}

// PrintStatistics outputs facility coverage, dispatching based on the output format configured.
func PrintStatistics(stats schema.Statistics, cfg *contract.Config, duration time.Duration) error {
	if cfg.Output == schema.ParquetOut {
		return errParquetUnsupported
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteStatistics(w, stats, cfg, duration)
	}, successMessage(cfg.Output))
}

type facilityCount struct {
	Name  string
	Count int
}

// statisticRows pairs each coverage count with its display name.
func statisticRows(stats schema.Statistics) []facilityCount {
	return []facilityCount{
		{"Tactile paving", stats.WithTactilePaving},
		{"Guidance system", stats.WithGuidanceSystem},
		{"Accessible restroom", stats.WithAccessibleRestroom},
		{"Accessible gate", stats.WithAccessibleGate},
		{"Elevators", stats.WithElevators},
	}
}

// WriteStatistics writes facility coverage to w in the configured format.
func WriteStatistics(w io.Writer, stats schema.Statistics, cfg *contract.Config, duration time.Duration) error {
	if ok, err := writeStructured(w, cfg.Output, stats); ok {
		return err
	}

	coverage := func(n int) string {
		if stats.TotalStations <= 0 {
			return "0.0%"
		}
		return fmt.Sprintf("%.1f%%", 100*float64(n)/float64(stats.TotalStations))
	}

	if cfg.Output == schema.CSVOut {
		return writeCSVWithHeader(w, []string{"facility", "stations", "total_stations", "coverage"}, func(cw *csv.Writer) error {
			for _, r := range statisticRows(stats) {
				rec := []string{r.Name, strconv.Itoa(r.Count), strconv.Itoa(stats.TotalStations), coverage(r.Count)}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
			return nil
		})
	}

	var rows [][]string
	for _, r := range statisticRows(stats) {
		rows = append(rows, []string{r.Name, strconv.Itoa(r.Count), coverage(r.Count)})
	}
	if err := renderSimpleTable(w, []string{"Facility", "Stations", "Coverage"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d stations in total. Completed in %v\n", stats.TotalStations, duration)
	return err
}

// renderSimpleTable renders a right-aligned table.
func renderSimpleTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
