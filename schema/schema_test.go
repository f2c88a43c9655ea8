package schema_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/huangsam/barriernavi/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawValueUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected schema.RawValue
	}{
		{"null", `null`, schema.Unknown()},
		{"number", `4`, schema.Known(4)},
		{"fraction", `0.75`, schema.Known(0.75)},
		{"true", `true`, schema.Known(1)},
		{"false", `false`, schema.Known(0)},
		{"numeric string", `"1"`, schema.Known(1)},
		{"padded string", `" 3 "`, schema.Known(3)},
		{"empty string", `""`, schema.Unknown()},
		{"garbage string", `"n/a"`, schema.Unknown()},
		{"NaN string", `"NaN"`, schema.Unknown()},
		{"Inf string", `"Inf"`, schema.Unknown()},
		{"negative infinity string", `"-infinity"`, schema.Unknown()},
		{"object", `{}`, schema.Unknown()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v schema.RawValue
			require.NoError(t, json.Unmarshal([]byte(tt.input), &v))
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestRawValueMarshalJSON(t *testing.T) {
	out, err := json.Marshal(struct {
		A schema.RawValue `json:"a"`
		B schema.RawValue `json:"b"`
	}{A: schema.Known(2.5), B: schema.Unknown()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2.5,"b":null}`, string(out))
}

func TestRawValueTruthy(t *testing.T) {
	assert.True(t, schema.Known(1).Truthy())
	assert.True(t, schema.Known(-1).Truthy())
	assert.False(t, schema.Known(0).Truthy())
	assert.False(t, schema.Unknown().Truthy())
	assert.Equal(t, "-", schema.Unknown().String())
	assert.Equal(t, "3", schema.Known(3).String())
}

func TestParseRawValueNonFinite(t *testing.T) {
	for _, v := range []any{math.NaN(), math.Inf(1), float32(math.Inf(-1)), "+Inf"} {
		assert.Equal(t, schema.Unknown(), schema.ParseRawValue(v), "%v", v)
	}
	assert.Equal(t, schema.Known(2.5), schema.ParseRawValue(2.5))
}

func TestObservationOmitsUnknownRatioParts(t *testing.T) {
	out, err := json.Marshal(schema.MetricObservation{Key: "num_slopes", RawValue: schema.Known(2)})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "numerator")
	assert.NotContains(t, string(out), "denominator")
}

func TestStationDetailFlattensSummary(t *testing.T) {
	detail := schema.StationDetail{
		StationSummary: schema.StationSummary{ID: 7, Name: "大宮"},
		Metrics:        []schema.MetricObservation{{Key: "has_accessible_gate"}},
	}
	out, err := json.Marshal(detail)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(out, &generic))
	assert.Equal(t, float64(7), generic["station_id"])
	assert.Equal(t, "大宮", generic["station_name"])
	assert.Len(t, generic["metrics"], 1)
}

func TestFilterStateClone(t *testing.T) {
	original := schema.NewFilterState(10)
	original.Required["has_accessible_gate"] = struct{}{}
	original.Weights = map[string]float64{"has_accessible_gate": 3}

	clone := original.Clone()
	clone.Required["num_slopes"] = struct{}{}
	clone.Weights["has_accessible_gate"] = 1

	assert.Len(t, original.Required, 1)
	assert.Equal(t, 3.0, original.Weights["has_accessible_gate"])
	assert.Equal(t, 1, clone.Page)
	assert.Equal(t, schema.SortNone, clone.Sort)
}

func TestSessionAuthenticated(t *testing.T) {
	assert.True(t, schema.Session{LoggedIn: true, UserID: 3}.Authenticated())
	assert.False(t, schema.Session{LoggedIn: true, UserID: 3, Guest: true}.Authenticated())
	assert.False(t, schema.Session{LoggedIn: false, UserID: 3}.Authenticated())
	assert.False(t, schema.Session{LoggedIn: true}.Authenticated())
}

func TestAPIErrorNotFound(t *testing.T) {
	var err error = &schema.APIError{Status: 404, Message: "Station not found"}
	assert.True(t, errors.Is(err, schema.ErrNotFound))
	assert.Contains(t, err.Error(), "Station not found")

	err = &schema.APIError{Status: 500, Message: "boom"}
	assert.False(t, errors.Is(err, schema.ErrNotFound))

	var apiErr *schema.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 500, apiErr.Status)
}
