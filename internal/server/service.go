package server

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/huangsam/barriernavi/core"
	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/schema"
)

// lineSeparator joins several line names in one line_name column.
const lineSeparator = "・"

// StationService scores repository rows with the same catalog and scoring
// model the client uses.
type StationService struct {
	repo       Repository
	thresholds map[schema.Category]map[string]float64
}

var _ contract.StationAPI = &StationService{} // Compile-time check

// NewStationService creates a service over repo. Threshold overrides apply
// to every category they name.
func NewStationService(repo Repository, thresholds map[schema.Category]map[string]float64) *StationService {
	return &StationService{repo: repo, thresholds: thresholds}
}

func (s *StationService) catalog(category schema.Category) (*core.Catalog, error) {
	return core.ConfiguredCatalog(category, s.thresholds)
}

// ListStations filters, scores, sorts and pages stations. Filter keys outside
// the category are ignored. Sorting is stable so equal scores keep name order.
func (s *StationService) ListStations(ctx context.Context, query schema.StationQuery) (schema.StationPage, error) {
	catalog, err := s.catalog(query.Category)
	if err != nil {
		return schema.StationPage{}, err
	}
	if err := core.ValidateWeights(catalog, query.Weights); err != nil {
		return schema.StationPage{}, err
	}

	rows, err := s.repo.FindStations(ctx, StationFilter{
		Keyword:    query.Keyword,
		Prefecture: query.Prefecture,
		LineName:   query.LineName,
	})
	if err != nil {
		return schema.StationPage{}, err
	}

	required := make([]string, 0, len(query.Filters))
	for _, key := range query.Filters {
		if catalog.Has(key) {
			required = append(required, key)
		}
	}

	stations := make([]schema.StationSummary, 0, len(rows))
	for i := range rows {
		eval, err := core.ScoreWeighted(catalog, rows[i].Observations(catalog), query.Weights)
		if err != nil {
			return schema.StationPage{}, fmt.Errorf("failed to score station %d: %w", rows[i].ID, err)
		}
		if !meetsAll(eval.Observations, required) {
			continue
		}
		summary := rows[i].Summary()
		summary.Score = eval.Summary
		stations = append(stations, summary)
	}

	switch query.Sort {
	case schema.SortScoreAsc:
		slices.SortStableFunc(stations, func(a, b schema.StationSummary) int {
			return cmp.Compare(a.Score.Percentage, b.Score.Percentage)
		})
	case schema.SortScoreDesc:
		slices.SortStableFunc(stations, func(a, b schema.StationSummary) int {
			return cmp.Compare(b.Score.Percentage, a.Score.Percentage)
		})
	}

	page := pageOf(stations, query.Offset, query.Limit)
	return schema.StationPage{
		Stations:   page,
		Count:      len(page),
		TotalCount: len(stations),
	}, nil
}

func meetsAll(observations []schema.MetricObservation, keys []string) bool {
	for _, key := range keys {
		i := slices.IndexFunc(observations, func(o schema.MetricObservation) bool { return o.Key == key })
		if i < 0 || !observations[i].Met {
			return false
		}
	}
	return true
}

// pageOf returns items[offset:offset+limit], clipped to the slice.
func pageOf[T any](items []T, offset, limit int) []T {
	start := min(max(offset, 0), len(items))
	end := len(items)
	if limit > 0 {
		end = min(start+limit, len(items))
	}
	return items[start:end]
}

// GetStation returns the scored metric breakdown of one station.
func (s *StationService) GetStation(ctx context.Context, category schema.Category, id int64, weights map[string]float64) (schema.StationDetail, error) {
	catalog, err := s.catalog(category)
	if err != nil {
		return schema.StationDetail{}, err
	}
	row, err := s.repo.GetStation(ctx, id)
	if err != nil {
		return schema.StationDetail{}, err
	}
	eval, err := core.ScoreWeighted(catalog, row.Observations(catalog), weights)
	if err != nil {
		return schema.StationDetail{}, err
	}

	detail := schema.StationDetail{StationSummary: row.Summary(), Metrics: eval.Observations}
	detail.Score = eval.Summary
	return detail, nil
}

// ListPrefectures returns prefectures with station counts, largest first.
func (s *StationService) ListPrefectures(ctx context.Context) ([]schema.Prefecture, error) {
	return s.repo.Prefectures(ctx)
}

// ListLines returns the individual line names, sorted.
func (s *StationService) ListLines(ctx context.Context) ([]string, error) {
	names, err := s.repo.LineNames(ctx)
	if err != nil {
		return nil, err
	}
	return splitLines(names), nil
}

// splitLines breaks joined line names apart and returns them sorted without
// duplicates or blanks.
func splitLines(names []string) []string {
	lines := []string{}
	for _, name := range names {
		for part := range strings.SplitSeq(name, lineSeparator) {
			if part = strings.TrimSpace(part); part != "" {
				lines = append(lines, part)
			}
		}
	}
	slices.Sort(lines)
	return slices.Compact(lines)
}

// GetStatistics returns facility coverage counts.
func (s *StationService) GetStatistics(ctx context.Context) (schema.Statistics, error) {
	return s.repo.Statistics(ctx)
}

// GetProfile returns a user's profile and preferences.
func (s *StationService) GetProfile(ctx context.Context, userID int64) (schema.Profile, error) {
	return s.repo.Profile(ctx, userID)
}
