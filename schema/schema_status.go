package schema

import "time"

// CacheStatus represents the status of the response cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// HistoryStatus represents the status of the lookup history store.
type HistoryStatus struct {
	Backend          string           `json:"backend"`
	Connected        bool             `json:"connected"`
	TotalLookups     int              `json:"total_lookups"`
	LastLookupID     int64            `json:"last_lookup_id"`
	LastLookupTime   time.Time        `json:"last_lookup_time"`
	OldestLookupTime time.Time        `json:"oldest_lookup_time"`
	TotalScores      int              `json:"total_scores"`
	TableSizes       map[string]int64 `json:"table_sizes"`
}

// Lookup kinds recorded in history.
const (
	ListLookup   = "list"
	DetailLookup = "detail"
)

// LookupRecord represents a row from the barriernavi_lookups table.
type LookupRecord struct {
	LookupID    int64
	StartTime   time.Time
	Category    string
	Kind        string
	Query       string
	ResultCount int32
	DurationMs  int32
	Username    *string
}

// LookupScoreRecord represents a row from the barriernavi_lookup_scores table.
type LookupScoreRecord struct {
	LookupID    int64
	StationID   int64
	StationName string
	LookupTime  time.Time
	MetItems    int32
	TotalItems  int32
	Percentage  int32
	Label       string
}
