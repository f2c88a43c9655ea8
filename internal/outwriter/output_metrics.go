package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// getDisplayNameForCategory returns the display name with emoji for a category.
func getDisplayNameForCategory(category schema.Category) string {
	switch category {
	case schema.BodyCategory:
		return "♿ BODY"
	case schema.HearingCategory:
		return "🦻 HEARING"
	case schema.VisionCategory:
		return "🦯 VISION"
	default:
		return strings.ToUpper(string(category))
	}
}

// PrintCatalogs displays the metric definitions of every category.
// This is a static display that does not require the station API.
func PrintCatalogs(catalogs []schema.CategoryCatalog, cfg *contract.Config) error {
	if cfg.Output == schema.ParquetOut {
		return errParquetUnsupported
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteCatalogs(w, catalogs, cfg)
	}, successMessage(cfg.Output))
}

// WriteCatalogs writes metric definitions to w in the configured format.
func WriteCatalogs(w io.Writer, catalogs []schema.CategoryCatalog, cfg *contract.Config) error {
	if ok, err := writeStructured(w, cfg.Output, catalogs); ok {
		return err
	}
	if cfg.Output == schema.CSVOut {
		return writeCatalogsCSV(w, catalogs)
	}
	return writeCatalogsText(w, catalogs)
}

// writeCatalogsCSV writes one row per category and metric.
func writeCatalogsCSV(w io.Writer, catalogs []schema.CategoryCatalog) error {
	header := []string{"category", "key", "label", "type", "required", "numerator", "denominator"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, c := range catalogs {
			for _, def := range c.Metrics {
				rec := []string{
					string(c.Category),
					def.Key,
					def.Label,
					string(def.Kind),
					strconv.FormatFloat(def.Required, 'f', -1, 64),
					def.Numerator,
					def.Denominator,
				}
				if err := cw.Write(rec); err != nil {
					return fmt.Errorf("failed to write CSV record: %w", err)
				}
			}
		}
		return nil
	})
}

// writeCatalogsText displays catalogs in human-readable text format.
func writeCatalogsText(w io.Writer, catalogs []schema.CategoryCatalog) error {
	if _, err := fmt.Fprintf(w, "🚉 Barrier Navi Accessibility Metrics\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "=====================================\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Score = met metrics / all metrics, banded %s ≥ 80%%, %s ≥ 50%%, otherwise %s\n\n",
		schema.ExcellentLabel, schema.AdequateLabel, schema.LimitedLabel); err != nil {
		return err
	}

	for _, c := range catalogs {
		if _, err := fmt.Fprintf(w, "%s (%d metrics)\n", getDisplayNameForCategory(c.Category), len(c.Metrics)); err != nil {
			return err
		}

		table := tablewriter.NewWriter(w)
		table.Header([]string{"Key", "Label", "Type", "Required"})
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignLeft
		})
		var data [][]string
		for _, def := range c.Metrics {
			required := formatRequired(def.Kind, def.Required)
			if def.Kind == schema.RatioKind {
				required += fmt.Sprintf(" (%s/%s)", def.Numerator, def.Denominator)
			}
			data = append(data, []string{def.Key, def.Label, string(def.Kind), required})
		}
		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
