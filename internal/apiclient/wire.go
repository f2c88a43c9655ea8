package apiclient

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/huangsam/barriernavi/core"
	"github.com/huangsam/barriernavi/schema"
)

// envelope is the common response shape {success, data, count, total_count, error}.
type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Count      int             `json:"count"`
	TotalCount int             `json:"total_count"`
	Error      string          `json:"error"`

	status int
}

func (e *envelope) decodeData(dest any) error {
	if len(e.Data) == 0 {
		return &schema.APIError{Status: e.status, Message: "malformed response: missing data"}
	}
	if err := json.Unmarshal(e.Data, dest); err != nil {
		return &schema.APIError{Status: e.status, Message: fmt.Sprintf("malformed response: %v", err)}
	}
	return nil
}

// wireScore tolerates decimal percentages; labels are re-derived locally.
type wireScore struct {
	MetItems         int      `json:"met_items"`
	TotalItems       int      `json:"total_items"`
	Percentage       float64  `json:"percentage"`
	WeightedScore    *float64 `json:"weighted_score"`
	MaxWeightedScore *float64 `json:"max_weighted_score"`
}

type wireMetric struct {
	Key         string          `json:"key"`
	Label       string          `json:"label"`
	Kind        string          `json:"type"`
	RawValue    schema.RawValue `json:"raw_value"`
	Numerator   schema.RawValue `json:"numerator"`
	Denominator schema.RawValue `json:"denominator"`
	Required    float64         `json:"required"`
	Ratio       float64         `json:"ratio"`
	Met         bool            `json:"met"`
	Value       json.RawMessage `json:"value"`
}

type wireStation struct {
	ID         int64        `json:"station_id"`
	Name       string       `json:"station_name"`
	Prefecture string       `json:"prefecture"`
	City       string       `json:"city"`
	Operator   string       `json:"operator"`
	LineName   string       `json:"line_name"`
	Score      wireScore    `json:"score"`
	Metrics    []wireMetric `json:"metrics"`
}

func (s wireStation) summary() schema.StationSummary {
	return schema.StationSummary{
		ID:         s.ID,
		Name:       s.Name,
		Prefecture: s.Prefecture,
		City:       s.City,
		Operator:   s.Operator,
		LineName:   s.LineName,
		Score: core.Summarize(schema.ScoreSummary{
			MetItems:         s.Score.MetItems,
			TotalItems:       s.Score.TotalItems,
			Percentage:       int(math.Round(s.Score.Percentage)),
			WeightedScore:    s.Score.WeightedScore,
			MaxWeightedScore: s.Score.MaxWeightedScore,
		}),
	}
}

func (s wireStation) detail() schema.StationDetail {
	detail := schema.StationDetail{
		StationSummary: s.summary(),
		Metrics:        make([]schema.MetricObservation, len(s.Metrics)),
	}
	for i, m := range s.Metrics {
		detail.Metrics[i] = schema.MetricObservation{
			Key:         m.Key,
			Label:       m.Label,
			Kind:        wireKind(m.Kind),
			RawValue:    m.RawValue,
			Numerator:   m.Numerator,
			Denominator: m.Denominator,
			Required:    m.Required,
			Ratio:       m.Ratio,
			Met:         m.Met,
			Display:     displayValue(m.Value),
		}
	}
	return detail
}

// displayValue accepts the processed value as either a string or a number.
func displayValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	var v schema.RawValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v.String()
}

// wireKind maps the API's metric type names onto value kinds.
func wireKind(kind string) schema.ValueKind {
	if kind == "number" {
		return schema.CountKind
	}
	return schema.ValueKind(kind)
}
