// Package outwriter has output and writer logic.
package outwriter

import (
	"os"
	"time"

	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/schema"
	"golang.org/x/term"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteStations prints a page of scored stations using the configured output format.
func (ow *OutWriter) WriteStations(result schema.StationListResult, cfg *contract.Config, duration time.Duration) error {
	return PrintStationResults(result, cfg, duration)
}

// WriteStation prints a station breakdown using the configured output format.
func (ow *OutWriter) WriteStation(result schema.StationDetailResult, cfg *contract.Config, duration time.Duration) error {
	return PrintStationDetail(result, cfg, duration)
}

// WritePrefectures prints prefecture counts using the configured output format.
func (ow *OutWriter) WritePrefectures(prefectures []schema.Prefecture, cfg *contract.Config, duration time.Duration) error {
	return PrintPrefectures(prefectures, cfg, duration)
}

// WriteLines prints line names using the configured output format.
func (ow *OutWriter) WriteLines(lines []string, cfg *contract.Config, duration time.Duration) error {
	return PrintLines(lines, cfg, duration)
}

// WriteStatistics prints facility coverage using the configured output format.
func (ow *OutWriter) WriteStatistics(stats schema.Statistics, cfg *contract.Config, duration time.Duration) error {
	return PrintStatistics(stats, cfg, duration)
}

// WriteCatalogs prints metric catalogs using the configured output format.
func (ow *OutWriter) WriteCatalogs(catalogs []schema.CategoryCatalog, cfg *contract.Config) error {
	return PrintCatalogs(catalogs, cfg)
}

// GetMaxTableNameWidth calculates the maximum width for station names in table output
// based on terminal width and table configuration.
func GetMaxTableNameWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			// Fallback to conservative default if terminal size can't be detected
			termWidth = 80
		} else {
			termWidth = detectedWidth
		}
	}

	// Rank + Prefecture + Line + Score + Label + Points with borders/padding
	baseWidth := 70

	// Weighted column
	if len(cfg.Weights) > 0 {
		baseWidth += 12
	}

	available := termWidth - baseWidth
	if available < 10 {
		return 10
	}
	if available > 40 {
		return 40
	}
	return available
}
