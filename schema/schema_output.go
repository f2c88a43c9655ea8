package schema

import "fmt"

// Score band labels.
const (
	ExcellentLabel = "Excellent"
	AdequateLabel  = "Adequate"
	LimitedLabel   = "Limited"
)

// EnrichedStation adds presentation data to a StationSummary.
type EnrichedStation struct {
	Rank           int `json:"rank" yaml:"rank"`
	StationSummary `yaml:",inline"`
}

// GetPlainLabel returns the accessibility band for a percentage.
func GetPlainLabel(percentage float64) string {
	switch {
	case percentage >= 80:
		return ExcellentLabel
	case percentage >= 50:
		return AdequateLabel
	default:
		return LimitedLabel
	}
}

// EnrichStations ranks a page of stations. Ranks continue from offset
// so that page two of a listing starts after the last rank of page one.
func EnrichStations(stations []StationSummary, offset int) []EnrichedStation {
	output := make([]EnrichedStation, len(stations))
	for i, s := range stations {
		output[i] = EnrichedStation{
			Rank:           offset + i + 1,
			StationSummary: s,
		}
	}
	return output
}

// MetricMismatch records a metric whose reported met flag disagrees with the recomputed one.
// ReportedRequired is set when the service sent a threshold other than the
// local one, which usually explains the disagreement.
type MetricMismatch struct {
	Key              string  `json:"key" yaml:"key"`
	Reported         bool    `json:"reported" yaml:"reported"`
	Computed         bool    `json:"computed" yaml:"computed"`
	Required         float64 `json:"required" yaml:"required"`
	ReportedRequired float64 `json:"reported_required,omitempty" yaml:"reported_required,omitempty"`
}

// String describes the mismatch for warnings.
func (m MetricMismatch) String() string {
	s := fmt.Sprintf("%s: service reported met=%t, recomputed met=%t", m.Key, m.Reported, m.Computed)
	if m.ReportedRequired != 0 {
		s += fmt.Sprintf(" (service threshold %g, local threshold %g)", m.ReportedRequired, m.Required)
	}
	return s
}

// StationListResult is one rendered page of a station listing.
type StationListResult struct {
	Category   Category          `json:"category" yaml:"category"`
	State      ViewState         `json:"state" yaml:"state"`
	Message    string            `json:"message,omitempty" yaml:"message,omitempty"`
	Stations   []EnrichedStation `json:"data" yaml:"data"`
	Page       int               `json:"page" yaml:"page"`
	TotalPages int               `json:"total_pages" yaml:"total_pages"`
	PageSize   int               `json:"page_size" yaml:"page_size"`
	TotalCount int               `json:"total_count" yaml:"total_count"`
	Filters    []string          `json:"filters,omitempty" yaml:"filters,omitempty"`
	Sort       SortOrder         `json:"sort" yaml:"sort"`
}

// Footer returns the pagination line shown under a listing.
func (r StationListResult) Footer() string {
	return fmt.Sprintf("Page %d of %d (%d stations)", r.Page, r.TotalPages, r.TotalCount)
}

// StationDetailResult is a rendered station breakdown.
type StationDetailResult struct {
	Category   Category         `json:"category" yaml:"category"`
	Station    StationDetail    `json:"station" yaml:"station"`
	Mismatches []MetricMismatch `json:"mismatches,omitempty" yaml:"mismatches,omitempty"`
}

// CategoryCatalog is the metric catalog of one category.
type CategoryCatalog struct {
	Category Category           `json:"category" yaml:"category"`
	Metrics  []MetricDefinition `json:"metrics" yaml:"metrics"`
}
