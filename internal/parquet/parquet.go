// Package parquet provides data structures and functions for exporting station
// lookups and scores to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/barriernavi/schema"
	"github.com/parquet-go/parquet-go"
)

// Lookup represents a single recorded station lookup.
// This struct maps to the barriernavi_lookups database table.
type Lookup struct {
	// LookupID is the unique identifier for this lookup
	LookupID int64 `parquet:"lookup_id,snappy"`

	// StartTime is when the lookup began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	Category string `parquet:"category,snappy"`

	// Kind is either "list" or "detail"
	Kind string `parquet:"kind,snappy"`

	// Query is the encoded request parameters
	Query string `parquet:"query,snappy"`

	ResultCount int32 `parquet:"result_count,snappy"`
	DurationMs  int32 `parquet:"duration_ms,snappy"`

	// Username is set for logged-in sessions only (nullable)
	Username *string `parquet:"username,optional,snappy"`
}

// LookupScore represents the score of one station returned by a lookup.
// This struct maps to the barriernavi_lookup_scores database table.
type LookupScore struct {
	// LookupID references the parent lookup
	LookupID    int64     `parquet:"lookup_id,snappy"`
	StationID   int64     `parquet:"station_id,snappy"`
	StationName string    `parquet:"station_name,snappy"`
	LookupTime  time.Time `parquet:"lookup_time,snappy"`
	MetItems    int32     `parquet:"met_items,snappy"`
	TotalItems  int32     `parquet:"total_items,snappy"`
	Percentage  int32     `parquet:"percentage,snappy"`
	Label       string    `parquet:"label,snappy"`
}

// StationScore is one row of a scored station listing.
type StationScore struct {
	Rank        int32  `parquet:"rank,snappy"`
	Category    string `parquet:"category,snappy"`
	StationID   int64  `parquet:"station_id,snappy"`
	StationName string `parquet:"station_name,snappy"`
	Prefecture  string `parquet:"prefecture,snappy"`
	City        string `parquet:"city,snappy"`
	Operator    string `parquet:"operator,snappy"`
	LineName    string `parquet:"line_name,snappy"`
	MetItems    int32  `parquet:"met_items,snappy"`
	TotalItems  int32  `parquet:"total_items,snappy"`
	Percentage  int32  `parquet:"percentage,snappy"`
	Label       string `parquet:"label,snappy"`

	// WeightedScore is only present for weighted listings (nullable)
	WeightedScore *float64 `parquet:"weighted_score,optional,snappy"`
}

// WriteLookupsParquet writes a slice of Lookup structs to a Parquet file.
func WriteLookupsParquet(data []Lookup, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteLookupScoresParquet writes a slice of LookupScore structs to a Parquet file.
func WriteLookupScoresParquet(data []LookupScore, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteStationScores writes scored stations to w.
func WriteStationScores(w io.Writer, data []StationScore) error {
	return writeRows(w, data)
}

func writeFile[T any](data []T, outputPath string) error {
	// Create the output file
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return writeRows(file, data)
}

// writeRows infers the schema from the struct tags of T.
func writeRows[T any](w io.Writer, data []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertLookupRecords converts schema.LookupRecord to Lookup for Parquet export.
func ConvertLookupRecords(records []schema.LookupRecord) []Lookup {
	result := make([]Lookup, len(records))
	for i, record := range records {
		result[i] = Lookup{
			LookupID:    record.LookupID,
			StartTime:   record.StartTime,
			Category:    record.Category,
			Kind:        record.Kind,
			Query:       record.Query,
			ResultCount: record.ResultCount,
			DurationMs:  record.DurationMs,
			Username:    record.Username,
		}
	}
	return result
}

// ConvertLookupScoreRecords converts schema.LookupScoreRecord to LookupScore for Parquet export.
func ConvertLookupScoreRecords(records []schema.LookupScoreRecord) []LookupScore {
	result := make([]LookupScore, len(records))
	for i, record := range records {
		result[i] = LookupScore(record)
	}
	return result
}

// ConvertStations converts a ranked listing to StationScore rows.
func ConvertStations(category schema.Category, stations []schema.EnrichedStation) []StationScore {
	result := make([]StationScore, len(stations))
	for i, s := range stations {
		result[i] = StationScore{
			Rank:          int32(s.Rank),
			Category:      string(category),
			StationID:     s.ID,
			StationName:   s.Name,
			Prefecture:    s.Prefecture,
			City:          s.City,
			Operator:      s.Operator,
			LineName:      s.LineName,
			MetItems:      int32(s.Score.MetItems),
			TotalItems:    int32(s.Score.TotalItems),
			Percentage:    int32(s.Score.Percentage),
			Label:         s.Score.Label,
			WeightedScore: s.Score.WeightedScore,
		}
	}
	return result
}
