package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/barriernavi/schema"
)

// Met marks shown next to each metric.
const (
	MetMark   = "○"
	UnmetMark = "×"
)

// Color variables for console output.
var (
	ExcellentColor = color.New(color.FgGreen, color.Bold) // ExcellentColor marks stations that meet most criteria.
	AdequateColor  = color.New(color.FgYellow)            // AdequateColor marks partial coverage.
	LimitedColor   = color.New(color.FgRed, color.Bold)   // LimitedColor marks stations that fail most criteria.
	MetColor       = color.New(color.FgGreen)
	UnmetColor     = color.New(color.FgRed)
)

// GetColorLabel returns a colored band label for console output (table).
func GetColorLabel(percentage float64) string {
	text := schema.GetPlainLabel(percentage)

	switch text {
	case schema.ExcellentLabel:
		return ExcellentColor.Sprint(text)
	case schema.AdequateLabel:
		return AdequateColor.Sprint(text)
	default:
		return LimitedColor.Sprint(text)
	}
}

// GetMetMark returns the met or unmet mark, colored when requested.
func GetMetMark(met bool, useColors bool) string {
	mark, c := UnmetMark, UnmetColor
	if met {
		mark, c = MetMark, MetColor
	}
	if !useColors {
		return mark
	}
	return c.Sprint(mark)
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// LogInfo logs an informational message to stderr.
func LogInfo(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "Info "+format+"\n", args...)
}

func homeFile(name string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(homeDir, name)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for response caching.
func GetCacheDBFilePath() string {
	return homeFile(".barriernavi_cache.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for lookup history.
func GetHistoryDBFilePath() string {
	return homeFile(".barriernavi_history.db")
}

// GetStationDBFilePath returns the path to the SQLite DB file served by the reference API.
func GetStationDBFilePath() string {
	return homeFile(".barriernavi_stations.db")
}

// TruncateText shortens text to maxWidth runes with an ellipsis suffix.
// Requires maxWidth > 3 so at least one rune of content survives.
func TruncateText(text string, maxWidth int) string {
	runes := []rune(text)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return text
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
