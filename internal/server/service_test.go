package server

import (
	"context"
	"errors"
	"testing"

	"github.com/huangsam/barriernavi/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summaryIDs(stations []schema.StationSummary) []int64 {
	ids := make([]int64, len(stations))
	for i, s := range stations {
		ids[i] = s.ID
	}
	return ids
}

func TestStationService_ListStations(t *testing.T) {
	svc := NewStationService(newSeededRepository(t), nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		query     schema.StationQuery
		wantIDs   []int64
		wantTotal int
	}{
		{
			name:      "name order without sort",
			query:     schema.StationQuery{Category: schema.HearingCategory, Limit: 10},
			wantIDs:   []int64{3, 4, 1, 2},
			wantTotal: 4,
		},
		{
			name:      "score descending keeps name order for ties",
			query:     schema.StationQuery{Category: schema.HearingCategory, Limit: 10, Sort: schema.SortScoreDesc},
			wantIDs:   []int64{1, 2, 3, 4},
			wantTotal: 4,
		},
		{
			name:      "score ascending keeps name order for ties",
			query:     schema.StationQuery{Category: schema.HearingCategory, Limit: 10, Sort: schema.SortScoreAsc},
			wantIDs:   []int64{3, 4, 2, 1},
			wantTotal: 4,
		},
		{
			name:      "paging after sorting",
			query:     schema.StationQuery{Category: schema.HearingCategory, Offset: 1, Limit: 2, Sort: schema.SortScoreDesc},
			wantIDs:   []int64{2, 3},
			wantTotal: 4,
		},
		{
			name:      "offset past the end",
			query:     schema.StationQuery{Category: schema.HearingCategory, Offset: 40, Limit: 10},
			wantIDs:   []int64{},
			wantTotal: 4,
		},
		{
			name:      "required filter",
			query:     schema.StationQuery{Category: schema.HearingCategory, Limit: 10, Filters: []string{"has_accessible_restroom"}},
			wantIDs:   []int64{1, 2},
			wantTotal: 2,
		},
		{
			name: "ratio filter uses the threshold",
			query: schema.StationQuery{Category: schema.VisionCategory, Limit: 10,
				Filters: []string{"platform_ratio"}},
			wantIDs:   []int64{1},
			wantTotal: 1,
		},
		{
			name: "filters outside the category are ignored",
			query: schema.StationQuery{Category: schema.HearingCategory, Limit: 10,
				Filters: []string{"has_tactile_paving"}},
			wantIDs:   []int64{3, 4, 1, 2},
			wantTotal: 4,
		},
		{
			name:      "search narrows before scoring",
			query:     schema.StationQuery{Category: schema.BodyCategory, Limit: 10, Prefecture: "東京都", LineName: "山手"},
			wantIDs:   []int64{4, 1},
			wantTotal: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.ListStations(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, summaryIDs(page.Stations))
			assert.Equal(t, len(tt.wantIDs), page.Count)
			assert.Equal(t, tt.wantTotal, page.TotalCount)
		})
	}
}

func TestStationService_Scores(t *testing.T) {
	svc := NewStationService(newSeededRepository(t), nil)
	ctx := context.Background()

	page, err := svc.ListStations(ctx, schema.StationQuery{Category: schema.HearingCategory, Limit: 10, Sort: schema.SortScoreDesc})
	require.NoError(t, err)
	require.Len(t, page.Stations, 4)

	tokyo := page.Stations[0]
	assert.Equal(t, "東京", tokyo.Name)
	assert.Equal(t, "JR東日本", tokyo.Operator)
	assert.Equal(t, 100, tokyo.Score.Percentage)
	assert.Equal(t, "4/4点", tokyo.Score.Points)
	assert.Equal(t, schema.ExcellentLabel, tokyo.Score.Label)

	shibuya := page.Stations[1]
	assert.Equal(t, 50, shibuya.Score.Percentage)
	assert.Equal(t, schema.AdequateLabel, shibuya.Score.Label)

	t.Run("weighted list", func(t *testing.T) {
		page, err := svc.ListStations(ctx, schema.StationQuery{
			Category: schema.HearingCategory,
			Limit:    10,
			Keyword:  "渋谷",
			Weights:  map[string]float64{"has_accessible_gate": 3},
		})
		require.NoError(t, err)
		require.Len(t, page.Stations, 1)

		score := page.Stations[0].Score
		require.True(t, score.Weighted())
		assert.Equal(t, 2.0, *score.WeightedScore)
		assert.Equal(t, 6.0, *score.MaxWeightedScore)
		assert.Equal(t, 33, score.Percentage)
	})

	t.Run("invalid weights", func(t *testing.T) {
		_, err := svc.ListStations(ctx, schema.StationQuery{
			Category: schema.HearingCategory,
			Limit:    10,
			Weights:  map[string]float64{"has_accessible_gate": -1},
		})
		assert.ErrorIs(t, err, schema.ErrInvalidWeight)
	})
}

func TestStationService_GetStation(t *testing.T) {
	svc := NewStationService(newSeededRepository(t), nil)
	ctx := context.Background()

	detail, err := svc.GetStation(ctx, schema.VisionCategory, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "東京", detail.Name)
	assert.Equal(t, 9, detail.Score.MetItems)
	assert.Equal(t, 10, detail.Score.TotalItems)
	assert.Equal(t, 90, detail.Score.Percentage)
	require.Len(t, detail.Metrics, 10)

	platform := detail.Metrics[6]
	assert.Equal(t, "platform_ratio", platform.Key)
	assert.Equal(t, schema.Known(4), platform.Numerator)
	assert.Equal(t, schema.Known(4), platform.Denominator)
	assert.Equal(t, "4/4 (100.0%)", platform.Display)
	assert.True(t, platform.Met)

	escalators := detail.Metrics[8]
	assert.Equal(t, "num_compliant_escalators", escalators.Key)
	assert.False(t, escalators.Met)
	assert.InDelta(t, 0.5, escalators.Ratio, 1e-9)

	t.Run("weighted detail", func(t *testing.T) {
		detail, err := svc.GetStation(ctx, schema.VisionCategory, 1, map[string]float64{"num_compliant_escalators": 3})
		require.NoError(t, err)
		assert.Equal(t, 75, detail.Score.Percentage)
		assert.Equal(t, "9/10点", detail.Score.Points)
	})

	t.Run("station without readings", func(t *testing.T) {
		detail, err := svc.GetStation(ctx, schema.VisionCategory, 4, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, detail.Score.MetItems)
		assert.Equal(t, "0/0 (0.0%)", detail.Metrics[6].Display)
		for _, m := range detail.Metrics {
			assert.False(t, m.Met, m.Key)
		}
	})

	t.Run("threshold overrides", func(t *testing.T) {
		lenient := NewStationService(newSeededRepository(t), map[schema.Category]map[string]float64{
			schema.VisionCategory: {"num_compliant_escalators": 2},
		})
		detail, err := lenient.GetStation(ctx, schema.VisionCategory, 1, nil)
		require.NoError(t, err)
		assert.Equal(t, 100, detail.Score.Percentage)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := svc.GetStation(ctx, schema.VisionCategory, 99, nil)
		assert.ErrorIs(t, err, schema.ErrNotFound)
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := svc.GetStation(ctx, schema.Category("smell"), 1, nil)
		assert.ErrorIs(t, err, schema.ErrUnknownCategory)
	})
}

func TestStationService_ListLines(t *testing.T) {
	svc := NewStationService(newSeededRepository(t), nil)

	lines, err := svc.ListLines(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"中央線", "大阪環状線", "山手線", "東横線"}, lines)
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  []string
	}{
		{"empty", nil, []string{}},
		{"single", []string{"山手線"}, []string{"山手線"}},
		{"joined with spaces", []string{"山手線 ・ 中央線"}, []string{"中央線", "山手線"}},
		{"duplicates across rows", []string{"山手線", "中央線・山手線"}, []string{"中央線", "山手線"}},
		{"blank parts", []string{"・山手線・"}, []string{"山手線"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitLines(tt.names))
		})
	}
}

func TestPageOf(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{3, 4}, pageOf(items, 2, 2))
	assert.Equal(t, []int{5}, pageOf(items, 4, 10))
	assert.Equal(t, []int{}, pageOf(items, 9, 10))
	assert.Equal(t, []int{1, 2}, pageOf(items, -3, 2))
	assert.Equal(t, items, pageOf(items, 0, 0))
}

type failingRepository struct {
	Repository
}

func (failingRepository) Prefectures(context.Context) ([]schema.Prefecture, error) {
	return nil, errors.New("connection reset")
}

func (failingRepository) LineNames(context.Context) ([]string, error) {
	return nil, errors.New("connection reset")
}

func TestStationService_RepositoryErrors(t *testing.T) {
	svc := NewStationService(failingRepository{}, nil)
	ctx := context.Background()

	_, err := svc.ListPrefectures(ctx)
	assert.Error(t, err)

	_, err = svc.ListLines(ctx)
	assert.Error(t, err)
}
