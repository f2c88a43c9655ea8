package core

import (
	"testing"

	"github.com/huangsam/barriernavi/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func known(v float64) schema.RawValue { return schema.RawValue{Value: v, Valid: true} }

func observe(key string, v schema.RawValue) schema.MetricObservation {
	return schema.MetricObservation{Key: key, RawValue: v}
}

func observeRatio(key string, num, den schema.RawValue) schema.MetricObservation {
	return schema.MetricObservation{Key: key, Numerator: num, Denominator: den}
}

func TestEvaluateMetric(t *testing.T) {
	elevators := count("num_compliant_elevators", "エレベーター", 4)
	platforms := ratio("platform_ratio", "ホーム", 0.8, "num_step_free_platforms", "num_platforms")
	paving := flag("has_tactile_paving", "ブロック")

	tests := []struct {
		name    string
		def     schema.MetricDefinition
		obs     schema.MetricObservation
		met     bool
		ratio   float64
		display string
	}{
		{"count at threshold", elevators, observe("num_compliant_elevators", known(4)), true, 1, "4"},
		{"count below threshold", elevators, observe("num_compliant_elevators", known(3)), false, 0.75, "3"},
		{"count unknown", elevators, observe("num_compliant_elevators", schema.RawValue{}), false, 0, "-"},
		{"count above threshold clamps ratio", elevators, observe("num_compliant_elevators", known(9)), true, 1, "9"},
		{"flag truthy", paving, observe("has_tactile_paving", known(1)), true, 1, "○"},
		{"flag falsy", paving, observe("has_tactile_paving", known(0)), false, 0, "×"},
		{"flag unknown", paving, observe("has_tactile_paving", schema.RawValue{}), false, 0, "×"},
		{"flag NaN string", paving, observe("has_tactile_paving", schema.ParseRawValue("NaN")), false, 0, "×"},
		{"count Inf string", elevators, observe("num_compliant_elevators", schema.ParseRawValue("Inf")), false, 0, "-"},
		{"count infinity string", elevators, observe("num_compliant_elevators", schema.ParseRawValue("-infinity")), false, 0, "-"},
		{"ratio NaN numerator", platforms, observeRatio("platform_ratio", schema.ParseRawValue("nan"), known(5)), false, 0, "-/5"},
		{"ratio met", platforms, observeRatio("platform_ratio", known(4), known(5)), true, 0.8, "4/5 (80.0%)"},
		{"ratio unmet", platforms, observeRatio("platform_ratio", known(3), known(5)), false, 0.6, "3/5 (60.0%)"},
		{"ratio zero denominator", platforms, observeRatio("platform_ratio", known(0), known(0)), false, 0, "0/0 (0.0%)"},
		{"ratio unknown denominator", platforms, observeRatio("platform_ratio", known(2), schema.RawValue{}), false, 0, "0/0 (0.0%)"},
		{"ratio unknown numerator", platforms, observeRatio("platform_ratio", schema.RawValue{}, known(5)), false, 0, "-/5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateMetric(tt.def, tt.obs)
			assert.Equal(t, tt.met, got.Met)
			assert.InDelta(t, tt.ratio, got.Ratio, 1e-9)
			assert.Equal(t, tt.display, got.Display)
			assert.Equal(t, tt.def.Label, got.Label)
			assert.Equal(t, tt.def.Required, got.Required)
		})
	}
}

func TestScore(t *testing.T) {
	catalog, _ := CatalogFor(schema.HearingCategory)

	t.Run("three of four met", func(t *testing.T) {
		eval, err := Score(catalog, []schema.MetricObservation{
			observe("has_guidance_system", known(1)),
			observe("has_accessible_restroom", known(1)),
			observe("has_accessible_gate", known(0)),
			observe("has_fall_prevention", known(1)),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, eval.Summary.MetItems)
		assert.Equal(t, 4, eval.Summary.TotalItems)
		assert.Equal(t, 75, eval.Summary.Percentage)
		assert.Equal(t, schema.AdequateLabel, eval.Summary.Label)
		assert.Equal(t, "3/4点", eval.Summary.Points)
		assert.False(t, eval.Summary.Weighted())
		require.Len(t, eval.Observations, 4)
	})

	t.Run("no observations", func(t *testing.T) {
		eval, err := Score(catalog, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, eval.Summary.Percentage)
		assert.Equal(t, schema.LimitedLabel, eval.Summary.Label)
		assert.Equal(t, "0/0点", eval.Summary.Points)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := Score(catalog, []schema.MetricObservation{observe("has_tactile_paving", known(1))})
		assert.ErrorIs(t, err, schema.ErrInvalidMetricKey)
	})

	t.Run("duplicate key", func(t *testing.T) {
		_, err := Score(catalog, []schema.MetricObservation{
			observe("has_guidance_system", known(1)),
			observe("has_guidance_system", known(0)),
		})
		assert.ErrorIs(t, err, schema.ErrInvalidMetricKey)
	})
}

func TestScoreFiveMetricsSixtyPercent(t *testing.T) {
	catalog, _ := CatalogFor(schema.VisionCategory)
	eval, err := Score(catalog, []schema.MetricObservation{
		observe("step_response_status", known(1)),
		observe("has_tactile_paving", known(1)),
		observe("has_guidance_system", known(1)),
		observe("has_accessible_restroom", known(0)),
		observe("num_compliant_elevators", known(2)),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, eval.Summary.MetItems)
	assert.Equal(t, 5, eval.Summary.TotalItems)
	assert.Equal(t, 60, eval.Summary.Percentage)
	assert.Equal(t, schema.AdequateLabel, eval.Summary.Label)
}

func TestScoreWeighted(t *testing.T) {
	catalog, _ := CatalogFor(schema.HearingCategory)
	observations := []schema.MetricObservation{
		observe("has_guidance_system", known(1)),
		observe("has_accessible_restroom", known(0)),
		observe("has_accessible_gate", known(1)),
	}

	tests := []struct {
		name       string
		weights    map[string]float64
		percentage int
		score      float64
		maxScore   float64
	}{
		{
			name:       "explicit weights",
			weights:    map[string]float64{"has_guidance_system": 3, "has_accessible_restroom": 2, "has_accessible_gate": 1},
			percentage: 67,
			score:      4,
			maxScore:   6,
		},
		{
			name:       "missing weights count as one",
			weights:    map[string]float64{"has_accessible_restroom": 4},
			percentage: 33,
			score:      2,
			maxScore:   6,
		},
		{
			name:       "fractional weights",
			weights:    map[string]float64{"has_guidance_system": 0.5, "has_accessible_restroom": 0.5, "has_accessible_gate": 0.5},
			percentage: 67,
			score:      1,
			maxScore:   1.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval, err := ScoreWeighted(catalog, observations, tt.weights)
			require.NoError(t, err)
			require.True(t, eval.Summary.Weighted())
			assert.Equal(t, tt.percentage, eval.Summary.Percentage)
			assert.InDelta(t, tt.score, *eval.Summary.WeightedScore, 1e-9)
			assert.InDelta(t, tt.maxScore, *eval.Summary.MaxWeightedScore, 1e-9)
			assert.Equal(t, 2, eval.Summary.MetItems)
			assert.Equal(t, "2/3点", eval.Summary.Points)
		})
	}
}

func TestScoreWeightedInvalidWeights(t *testing.T) {
	catalog, _ := CatalogFor(schema.HearingCategory)
	obs := []schema.MetricObservation{observe("has_guidance_system", known(1))}

	tests := []struct {
		name    string
		weights map[string]float64
		is      error
	}{
		{"zero weight", map[string]float64{"has_guidance_system": 0}, schema.ErrInvalidWeight},
		{"negative weight", map[string]float64{"has_guidance_system": -1}, schema.ErrInvalidWeight},
		{"unknown key", map[string]float64{"num_slopes": 2}, schema.ErrInvalidMetricKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ScoreWeighted(catalog, obs, tt.weights)
			assert.ErrorIs(t, err, tt.is)
		})
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		in       schema.ScoreSummary
		expected schema.ScoreSummary
	}{
		{
			name:     "recomputes percentage",
			in:       schema.ScoreSummary{MetItems: 8, TotalItems: 10, Percentage: 12},
			expected: schema.ScoreSummary{MetItems: 8, TotalItems: 10, Percentage: 80, Label: schema.ExcellentLabel, Points: "8/10点"},
		},
		{
			name:     "clamps met to total",
			in:       schema.ScoreSummary{MetItems: 12, TotalItems: 10},
			expected: schema.ScoreSummary{MetItems: 10, TotalItems: 10, Percentage: 100, Label: schema.ExcellentLabel, Points: "10/10点"},
		},
		{
			name:     "negative tallies",
			in:       schema.ScoreSummary{MetItems: -1, TotalItems: -3},
			expected: schema.ScoreSummary{Label: schema.LimitedLabel, Points: "0/0点"},
		},
		{
			name:     "band boundary",
			in:       schema.ScoreSummary{MetItems: 1, TotalItems: 2},
			expected: schema.ScoreSummary{MetItems: 1, TotalItems: 2, Percentage: 50, Label: schema.AdequateLabel, Points: "1/2点"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Summarize(tt.in))
		})
	}
}

func TestVerify(t *testing.T) {
	catalog, _ := CatalogFor(schema.VisionCategory)
	obs := []schema.MetricObservation{
		{Key: "num_compliant_elevators", RawValue: known(3), Met: true},
		{Key: "has_tactile_paving", RawValue: known(1), Met: true},
		{Key: "num_compliant_slopes", RawValue: schema.RawValue{}, Met: false},
	}

	mismatches, err := Verify(catalog, obs)
	require.NoError(t, err)
	assert.Equal(t, []schema.MetricMismatch{{Key: "num_compliant_elevators", Reported: true, Computed: false, Required: 4}}, mismatches)

	_, err = Verify(catalog, []schema.MetricObservation{{Key: "num_slopes"}})
	assert.ErrorIs(t, err, schema.ErrInvalidMetricKey)
}

func TestVerifyNamesServiceThreshold(t *testing.T) {
	catalog, _ := CatalogFor(schema.VisionCategory)
	obs := []schema.MetricObservation{
		{Key: "num_compliant_elevators", RawValue: known(3), Met: true, Required: 3},
		{Key: "has_tactile_paving", RawValue: known(0), Met: true, Required: 1},
	}

	mismatches, err := Verify(catalog, obs)
	require.NoError(t, err)
	require.Len(t, mismatches, 2)
	assert.Equal(t, 3.0, mismatches[0].ReportedRequired)
	assert.Contains(t, mismatches[0].String(), "service threshold 3, local threshold 4")
	assert.Zero(t, mismatches[1].ReportedRequired)
	assert.NotContains(t, mismatches[1].String(), "threshold")
}

func TestPercentOf(t *testing.T) {
	assert.Equal(t, 0, percentOf(1, 0))
	assert.Equal(t, 33, percentOf(1, 3))
	assert.Equal(t, 67, percentOf(2, 3))
	assert.Equal(t, 100, percentOf(5, 4))
}
