package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintStationDetail outputs a station breakdown, dispatching based on the output format configured.
func PrintStationDetail(result schema.StationDetailResult, cfg *contract.Config, duration time.Duration) error {
	if cfg.Output == schema.ParquetOut {
		return errParquetUnsupported
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteStationDetail(w, result, cfg, duration)
	}, successMessage(cfg.Output))
}

// WriteStationDetail writes a station breakdown to w in the configured format.
func WriteStationDetail(w io.Writer, result schema.StationDetailResult, cfg *contract.Config, duration time.Duration) error {
	if ok, err := writeStructured(w, cfg.Output, result); ok {
		return err
	}
	if cfg.Output == schema.CSVOut {
		return writeStationDetailCSV(w, result)
	}
	return writeStationDetailTable(w, result, cfg, duration)
}

// writeStationDetailCSV writes one row per metric.
func writeStationDetailCSV(w io.Writer, result schema.StationDetailResult) error {
	header := []string{"station_id", "key", "label", "type", "value", "raw_value", "required", "ratio", "met"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		id := strconv.FormatInt(result.Station.ID, 10)
		for _, m := range result.Station.Metrics {
			raw := m.RawValue.String()
			if m.Kind == schema.RatioKind {
				raw = m.Numerator.String() + "/" + m.Denominator.String()
			}
			rec := []string{
				id,
				m.Key,
				m.Label,
				string(m.Kind),
				m.Display,
				raw,
				strconv.FormatFloat(m.Required, 'f', -1, 64),
				strconv.FormatFloat(m.Ratio, 'f', 4, 64),
				strconv.FormatBool(m.Met),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeStationDetailTable writes the station header followed by its metric table.
func writeStationDetailTable(w io.Writer, result schema.StationDetailResult, cfg *contract.Config, duration time.Duration) error {
	s := result.Station
	location := strings.TrimSpace(s.Prefecture + " " + s.City)
	if _, err := fmt.Fprintf(w, "🚉 %s (%s)\n", s.Name, location); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "   %s / %s\n", s.Operator, s.LineName); err != nil {
		return err
	}
	summary := fmt.Sprintf("   %s accessibility: %s %s (%s)",
		result.Category, formatPercent(s.Score.Percentage), formatLabel(s.Score.Percentage, cfg.UseColors), s.Score.Points)
	if s.Score.Weighted() {
		summary += " weighted " + formatWeighted(s.Score)
	}
	if _, err := fmt.Fprintln(w, summary); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Met", "Metric", "Value", "Required", "Key"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, m := range s.Metrics {
		required := formatRequired(m.Kind, m.Required)
		if m.Kind == schema.FlagKind {
			required = "-"
		}
		data = append(data, []string{
			contract.GetMetMark(m.Met, cfg.UseColors),
			m.Label,
			m.Display,
			required,
			m.Key,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, m := range result.Mismatches {
		if _, err := fmt.Fprintf(w, "⚠️  %s\n", m); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Lookup completed in %v. Cache backend: %s\n", duration, cfg.CacheBackend)
	return err
}
