package core

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/schema"
)

// Evaluation is a station's re-evaluated metric breakdown with its aggregate.
type Evaluation struct {
	Summary      schema.ScoreSummary
	Observations []schema.MetricObservation
}

// EvaluateMetric applies the met rule for def to obs and returns a new observation.
// Unknown readings never meet a requirement.
func EvaluateMetric(def schema.MetricDefinition, obs schema.MetricObservation) schema.MetricObservation {
	out := obs
	out.Key = def.Key
	out.Label = def.Label
	out.Kind = def.Kind
	out.Required = def.Required

	switch def.Kind {
	case schema.FlagKind:
		out.Met = obs.RawValue.Truthy()
		out.Ratio = 0
		out.Display = contract.UnmetMark
		if out.Met {
			out.Ratio = 1
			out.Display = contract.MetMark
		}

	case schema.CountKind:
		if !obs.RawValue.Valid {
			out.Met, out.Ratio, out.Display = false, 0, "-"
			break
		}
		v := obs.RawValue.Value
		out.Met = v >= def.Required
		out.Ratio = 1
		if def.Required > 0 {
			out.Ratio = clamp01(v / def.Required)
		}
		out.Display = formatNumber(v)

	case schema.RatioKind:
		num, den := obs.Numerator, obs.Denominator
		switch {
		case !den.Valid || den.Value <= 0:
			out.Met, out.Ratio, out.Display = false, 0, "0/0 (0.0%)"
		case !num.Valid:
			out.Met, out.Ratio, out.Display = false, 0, "-/"+formatNumber(den.Value)
		default:
			r := clamp01(num.Value / den.Value)
			out.Met = r >= def.Required
			out.Ratio = r
			out.Display = fmt.Sprintf("%s/%s (%.1f%%)", formatNumber(num.Value), formatNumber(den.Value), 100*num.Value/den.Value)
		}
	}
	return out
}

// Score re-evaluates every observation and aggregates an unweighted summary.
func Score(catalog *Catalog, observations []schema.MetricObservation) (Evaluation, error) {
	return ScoreWeighted(catalog, observations, nil)
}

// ScoreWeighted re-evaluates every observation and aggregates a summary.
// An empty weight map yields the unweighted score. Metrics absent from a
// non-empty map weigh 1.
func ScoreWeighted(catalog *Catalog, observations []schema.MetricObservation, weights map[string]float64) (Evaluation, error) {
	if err := ValidateWeights(catalog, weights); err != nil {
		return Evaluation{}, err
	}

	evaluated := make([]schema.MetricObservation, 0, len(observations))
	seen := make(map[string]struct{}, len(observations))
	metItems := 0
	weightedScore, maxWeightedScore := 0.0, 0.0

	for _, obs := range observations {
		def, ok := catalog.Lookup(obs.Key)
		if !ok {
			return Evaluation{}, fmt.Errorf("%w: %q is not a %s metric", schema.ErrInvalidMetricKey, obs.Key, catalog.Category())
		}
		if _, dup := seen[obs.Key]; dup {
			return Evaluation{}, fmt.Errorf("%w: %q observed more than once", schema.ErrInvalidMetricKey, obs.Key)
		}
		seen[obs.Key] = struct{}{}

		e := EvaluateMetric(def, obs)
		evaluated = append(evaluated, e)

		w := weightFor(weights, obs.Key)
		maxWeightedScore += w
		if e.Met {
			metItems++
			weightedScore += w
		}
	}

	summary := schema.ScoreSummary{MetItems: metItems, TotalItems: len(evaluated)}
	if len(weights) > 0 {
		summary.WeightedScore = &weightedScore
		summary.MaxWeightedScore = &maxWeightedScore
	}
	return Evaluation{Summary: Summarize(summary), Observations: evaluated}, nil
}

// Summarize restores the invariants of a summary, typically one received from
// the API: tallies are clamped, the percentage is recomputed from them and the
// band and points labels are derived from the result.
func Summarize(s schema.ScoreSummary) schema.ScoreSummary {
	s.TotalItems = max(s.TotalItems, 0)
	s.MetItems = min(max(s.MetItems, 0), s.TotalItems)

	if s.Weighted() {
		s.Percentage = percentOf(*s.WeightedScore, *s.MaxWeightedScore)
	} else {
		s.Percentage = percentOf(float64(s.MetItems), float64(s.TotalItems))
	}
	s.Label = schema.GetPlainLabel(float64(s.Percentage))
	s.Points = fmt.Sprintf("%d/%d点", s.MetItems, s.TotalItems)
	return s
}

// ValidateWeights checks that every weighted key is in the catalog and positive.
func ValidateWeights(catalog *Catalog, weights map[string]float64) error {
	keys := make([]string, 0, len(weights))
	for key := range weights {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		if !catalog.Has(key) {
			return fmt.Errorf("%w: weight for %q which is not a %s metric", schema.ErrInvalidMetricKey, key, catalog.Category())
		}
		w := weights[key]
		if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			return fmt.Errorf("%w: %q has weight %v, must be greater than 0", schema.ErrInvalidWeight, key, w)
		}
	}
	return nil
}

// Verify recomputes met for each observation and reports disagreements with
// the flags that came with them.
func Verify(catalog *Catalog, observations []schema.MetricObservation) ([]schema.MetricMismatch, error) {
	var mismatches []schema.MetricMismatch
	for _, obs := range observations {
		def, ok := catalog.Lookup(obs.Key)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a %s metric", schema.ErrInvalidMetricKey, obs.Key, catalog.Category())
		}
		computed := EvaluateMetric(def, obs).Met
		if computed == obs.Met {
			continue
		}
		mismatch := schema.MetricMismatch{Key: obs.Key, Reported: obs.Met, Computed: computed, Required: def.Required}
		if obs.Required != 0 && obs.Required != def.Required {
			mismatch.ReportedRequired = obs.Required
		}
		mismatches = append(mismatches, mismatch)
	}
	return mismatches, nil
}

func weightFor(weights map[string]float64, key string) float64 {
	if w, ok := weights[key]; ok {
		return w
	}
	return 1
}

// percentOf returns round(100*part/whole) bounded to [0,100], or 0 when whole is not positive.
func percentOf(part, whole float64) int {
	if whole <= 0 || math.IsNaN(part) || math.IsNaN(whole) {
		return 0
	}
	p := int(math.Round(100 * part / whole))
	return min(max(p, 0), 100)
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
