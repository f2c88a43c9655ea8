package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/schema"
	"gopkg.in/yaml.v3"
)

// errParquetUnsupported is returned for outputs that have no tabular parquet form.
var errParquetUnsupported = errors.New("parquet output is only available for station listings")

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		_, _ = fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeYAML is the YAML counterpart of writeJSON.
func writeYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	if err := writeRows(csvWriter); err != nil {
		return err
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// writeStructured handles the JSON and YAML modes shared by every output.
// It reports false when mode is not a structured format.
func writeStructured(w io.Writer, mode schema.OutputMode, data any) (bool, error) {
	switch mode {
	case schema.JSONOut:
		return true, writeJSON(w, data)
	case schema.YAMLOut:
		return true, writeYAML(w, data)
	default:
		return false, nil
	}
}

// successMessage returns the stderr note printed after writing to a file.
func successMessage(mode schema.OutputMode) string {
	switch mode {
	case schema.JSONOut:
		return "Wrote JSON"
	case schema.YAMLOut:
		return "Wrote YAML"
	case schema.CSVOut:
		return "Wrote CSV"
	case schema.ParquetOut:
		return "Wrote Parquet"
	default:
		return "Wrote table"
	}
}

// formatPercent renders an integer percentage.
func formatPercent(p int) string {
	return strconv.Itoa(p) + "%"
}

// formatLabel renders a band label, colored when requested.
func formatLabel(percentage int, useColors bool) string {
	if useColors {
		return contract.GetColorLabel(float64(percentage))
	}
	return schema.GetPlainLabel(float64(percentage))
}

// formatWeighted renders the weighted score of a summary, or "-" when unweighted.
func formatWeighted(s schema.ScoreSummary) string {
	if !s.Weighted() {
		return "-"
	}
	return fmt.Sprintf("%s/%s",
		strconv.FormatFloat(*s.WeightedScore, 'f', -1, 64),
		strconv.FormatFloat(*s.MaxWeightedScore, 'f', -1, 64))
}

// formatRequired renders the threshold of a metric definition.
func formatRequired(kind schema.ValueKind, required float64) string {
	switch kind {
	case schema.FlagKind:
		return contract.MetMark
	case schema.RatioKind:
		return "≥ " + strconv.FormatFloat(math.Round(required*10000)/100, 'f', -1, 64) + "%"
	default:
		return "≥ " + strconv.FormatFloat(required, 'f', -1, 64)
	}
}
