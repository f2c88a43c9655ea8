package schema

import (
	"bytes"
	"encoding/json"
	"maps"
	"math"
	"strconv"
	"strings"
)

// RawValue is a metric reading as reported by the data source.
// A value that is not Valid is unknown and never satisfies a requirement.
type RawValue struct {
	Value float64
	Valid bool
}

// Known wraps a reported value.
func Known(v float64) RawValue { return RawValue{Value: v, Valid: true} }

// Unknown returns the value used for missing or unparseable readings.
func Unknown() RawValue { return RawValue{} }

// Truthy reports whether the value is present and nonzero.
func (r RawValue) Truthy() bool { return r.Valid && r.Value != 0 }

// String renders the value for display, using "-" when unknown.
func (r RawValue) String() string {
	if !r.Valid {
		return "-"
	}
	return strconv.FormatFloat(r.Value, 'f', -1, 64)
}

// MarshalJSON encodes unknown values as null.
func (r RawValue) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// UnmarshalJSON accepts null, booleans, numbers and numeric strings.
// Anything else decodes as unknown rather than failing the whole payload.
func (r *RawValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Unknown()
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = ParseRawValue(v)
	return nil
}

// MarshalYAML encodes unknown values as null.
func (r RawValue) MarshalYAML() (any, error) {
	if !r.Valid {
		return nil, nil
	}
	return r.Value, nil
}

// ParseRawValue converts a loosely typed reading into a RawValue.
func ParseRawValue(v any) RawValue {
	switch t := v.(type) {
	case nil:
		return Unknown()
	case bool:
		if t {
			return Known(1)
		}
		return Known(0)
	case float64:
		return finite(t)
	case float32:
		return finite(float64(t))
	case int:
		return Known(float64(t))
	case int32:
		return Known(float64(t))
	case int64:
		return Known(float64(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return Unknown()
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Unknown()
		}
		return finite(f)
	default:
		return Unknown()
	}
}

// finite treats NaN and infinities as unknown.
func finite(f float64) RawValue {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Unknown()
	}
	return Known(f)
}

// MetricDefinition is a static accessibility criterion within a category.
type MetricDefinition struct {
	Key         string    `json:"key" yaml:"key"`
	Label       string    `json:"label" yaml:"label"`
	Kind        ValueKind `json:"type" yaml:"type"`
	Required    float64   `json:"required" yaml:"required"`
	Numerator   string    `json:"numerator,omitempty" yaml:"numerator,omitempty"`
	Denominator string    `json:"denominator,omitempty" yaml:"denominator,omitempty"`
}

// MetricObservation is one station's reading for one metric.
// Numerator and Denominator are only meaningful for ratio metrics.
type MetricObservation struct {
	Key         string    `json:"key" yaml:"key"`
	Label       string    `json:"label,omitempty" yaml:"label,omitempty"`
	Kind        ValueKind `json:"type,omitempty" yaml:"type,omitempty"`
	RawValue    RawValue  `json:"raw_value" yaml:"raw_value"`
	Numerator   RawValue  `json:"numerator,omitzero" yaml:"numerator,omitempty"`
	Denominator RawValue  `json:"denominator,omitzero" yaml:"denominator,omitempty"`
	Required    float64   `json:"required" yaml:"required"`
	Ratio       float64   `json:"ratio" yaml:"ratio"`
	Met         bool      `json:"met" yaml:"met"`
	Display     string    `json:"value" yaml:"value"`
}

// ScoreSummary is the aggregate tally for one station.
type ScoreSummary struct {
	MetItems         int      `json:"met_items" yaml:"met_items"`
	TotalItems       int      `json:"total_items" yaml:"total_items"`
	Percentage       int      `json:"percentage" yaml:"percentage"`
	Label            string   `json:"label" yaml:"label"`
	Points           string   `json:"points" yaml:"points"`
	WeightedScore    *float64 `json:"weighted_score,omitempty" yaml:"weighted_score,omitempty"`
	MaxWeightedScore *float64 `json:"max_weighted_score,omitempty" yaml:"max_weighted_score,omitempty"`
}

// Weighted reports whether the summary was computed with a weight map.
func (s ScoreSummary) Weighted() bool {
	return s.WeightedScore != nil && s.MaxWeightedScore != nil
}

// StationSummary is a station identity with its score, used in list views.
type StationSummary struct {
	ID         int64        `json:"station_id" yaml:"station_id"`
	Name       string       `json:"station_name" yaml:"station_name"`
	Prefecture string       `json:"prefecture" yaml:"prefecture"`
	City       string       `json:"city" yaml:"city"`
	Operator   string       `json:"operator" yaml:"operator"`
	LineName   string       `json:"line_name" yaml:"line_name"`
	Score      ScoreSummary `json:"score" yaml:"score"`
}

// StationDetail is a station summary plus its full ordered metric breakdown.
type StationDetail struct {
	StationSummary `yaml:",inline"`
	Metrics        []MetricObservation `json:"metrics" yaml:"metrics"`
}

// StationPage is one page of a station listing.
type StationPage struct {
	Stations   []StationSummary `json:"data" yaml:"data"`
	Count      int              `json:"count" yaml:"count"`
	TotalCount int              `json:"total_count" yaml:"total_count"`
}

// Prefecture is a prefecture name with its station count.
type Prefecture struct {
	Name  string `json:"prefecture" yaml:"prefecture"`
	Count int    `json:"count" yaml:"count"`
}

// Statistics summarizes facility coverage across all stations.
type Statistics struct {
	TotalStations          int `json:"total_stations" yaml:"total_stations"`
	WithTactilePaving      int `json:"with_tactile_paving" yaml:"with_tactile_paving"`
	WithGuidanceSystem     int `json:"with_guidance_system" yaml:"with_guidance_system"`
	WithAccessibleRestroom int `json:"with_accessible_restroom" yaml:"with_accessible_restroom"`
	WithAccessibleGate     int `json:"with_accessible_gate" yaml:"with_accessible_gate"`
	WithElevators          int `json:"with_elevators" yaml:"with_elevators"`
}

// Profile is the read-only slice of a user profile the client consumes.
type Profile struct {
	ID                int64    `json:"id" yaml:"id"`
	Username          string   `json:"username" yaml:"username"`
	Email             string   `json:"email" yaml:"email"`
	DisabilityType    []string `json:"disability_type" yaml:"disability_type"`
	FavoriteStations  []int64  `json:"favorite_stations" yaml:"favorite_stations"`
	PreferredFeatures []string `json:"preferred_features" yaml:"preferred_features"`
}

// Session is the login context injected into components that need it.
type Session struct {
	Username string
	UserID   int64
	LoggedIn bool
	Guest    bool
}

// Authenticated reports whether the session belongs to a real, logged-in user.
func (s Session) Authenticated() bool {
	return s.LoggedIn && !s.Guest && s.UserID > 0
}

// FilterState is the mutable search state owned by one presenter.
type FilterState struct {
	Prefecture string
	Keyword    string
	LineName   string
	Required   map[string]struct{}
	Sort       SortOrder
	Page       int
	PageSize   int
	Weights    map[string]float64
}

// NewFilterState returns the state of a freshly opened screen.
func NewFilterState(pageSize int) FilterState {
	return FilterState{
		Required: map[string]struct{}{},
		Sort:     SortNone,
		Page:     1,
		PageSize: pageSize,
	}
}

// Clone returns a deep copy of the filter state.
func (f FilterState) Clone() FilterState {
	clone := f
	clone.Required = make(map[string]struct{}, len(f.Required))
	maps.Copy(clone.Required, f.Required)
	if f.Weights != nil {
		clone.Weights = make(map[string]float64, len(f.Weights))
		maps.Copy(clone.Weights, f.Weights)
	}
	return clone
}

// StationQuery is the request description for listing stations.
// Filters is sorted and free of duplicates.
type StationQuery struct {
	Category   Category
	Offset     int
	Limit      int
	Prefecture string
	Keyword    string
	LineName   string
	Filters    []string
	Sort       SortOrder
	Weights    map[string]float64
}
