package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/internal/parquet"
	"github.com/huangsam/barriernavi/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintStationResults outputs a station page, dispatching based on the output format configured.
func PrintStationResults(result schema.StationListResult, cfg *contract.Config, duration time.Duration) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteStationResults(w, result, cfg, duration)
	}, successMessage(cfg.Output))
}

// WriteStationResults writes a station page to w in the configured format.
func WriteStationResults(w io.Writer, result schema.StationListResult, cfg *contract.Config, duration time.Duration) error {
	if ok, err := writeStructured(w, cfg.Output, result); ok {
		return err
	}

	switch cfg.Output {
	case schema.CSVOut:
		return writeStationCSV(w, result)
	case schema.ParquetOut:
		return parquet.WriteStationScores(w, parquet.ConvertStations(result.Category, result.Stations))
	default:
		return writeStationTable(w, result, cfg, duration)
	}
}

// writeStationCSV writes one row per station.
func writeStationCSV(w io.Writer, result schema.StationListResult) error {
	header := []string{
		"rank",
		"station_id",
		"station_name",
		"prefecture",
		"city",
		"operator",
		"line_name",
		"met_items",
		"total_items",
		"percentage",
		"label",
		"points",
		"weighted_score",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, s := range result.Stations {
			weighted := ""
			if s.Score.Weighted() {
				weighted = strconv.FormatFloat(*s.Score.WeightedScore, 'f', -1, 64)
			}
			rec := []string{
				strconv.Itoa(s.Rank),
				strconv.FormatInt(s.ID, 10),
				s.Name,
				s.Prefecture,
				s.City,
				s.Operator,
				s.LineName,
				strconv.Itoa(s.Score.MetItems),
				strconv.Itoa(s.Score.TotalItems),
				strconv.Itoa(s.Score.Percentage),
				s.Score.Label,
				s.Score.Points,
				weighted,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeStationTable generates and writes the human-readable table.
func writeStationTable(w io.Writer, result schema.StationListResult, cfg *contract.Config, duration time.Duration) error {
	if result.State != schema.ResultsState || len(result.Stations) == 0 {
		message := result.Message
		if message == "" {
			message = "No stations match the current filters."
		}
		if _, err := fmt.Fprintln(w, message); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w, result.Footer())
		return err
	}

	weighted := len(cfg.Weights) > 0
	nameWidth := GetMaxTableNameWidth(cfg)

	table := tablewriter.NewWriter(w)

	// 1. Define Headers
	headers := []string{"Rank", "Station", "Prefecture", "Line", "Score", "Label", "Points"}
	if weighted {
		headers = append(headers, "Weighted")
	}
	table.Header(headers)

	// 2. Configure alignment to match a minimal look
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	// 3. Populate Rows
	var data [][]string
	for _, s := range result.Stations {
		row := []string{
			strconv.Itoa(s.Rank),
			contract.TruncateText(s.Name, nameWidth),
			s.Prefecture,
			contract.TruncateText(s.LineName, nameWidth),
			formatPercent(s.Score.Percentage),
			formatLabel(s.Score.Percentage, cfg.UseColors),
			s.Score.Points,
		}
		if weighted {
			row = append(row, formatWeighted(s.Score))
		}
		data = append(data, row)
	}

	// 4. Render the table
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w, result.Footer()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Lookup completed in %v. Sort: %s. Cache backend: %s\n", duration, result.Sort, cfg.CacheBackend); err != nil {
		return err
	}
	return nil
}
