// Package core has core logic for metric catalogs, scoring, queries and presentation.
package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/internal/outwriter"
	"github.com/huangsam/barriernavi/schema"
)

// ExecutorFunc defines the function signature for commands that talk to the station API.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, api contract.StationAPI, mgr contract.CacheManager) error

// ExecuteStations lists one page of stations and prints it.
// It serves as the main entry point for the 'stations' command.
func ExecuteStations(ctx context.Context, cfg *contract.Config, api contract.StationAPI, mgr contract.CacheManager) error {
	result, duration, err := GetStationsResult(ctx, cfg, api, mgr)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteStations(result, cfg, duration)
}

// ExecuteStation shows the full metric breakdown of one station.
// It serves as the main entry point for the 'station' command.
func ExecuteStation(ctx context.Context, cfg *contract.Config, api contract.StationAPI, mgr contract.CacheManager, id int64) error {
	result, duration, err := GetStationResult(ctx, cfg, api, mgr, id)
	if err != nil {
		return err
	}
	for _, m := range result.Mismatches {
		contract.LogWarn("Reported met flag differs from recomputed value", errors.New(m.String()))
	}
	return outwriter.NewOutWriter().WriteStation(result, cfg, duration)
}

// ExecutePrefectures prints every prefecture with its station count.
func ExecutePrefectures(ctx context.Context, cfg *contract.Config, api contract.StationAPI, mgr contract.CacheManager) error {
	prefectures, duration, err := GetPrefecturesResult(ctx, cfg, api, mgr)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WritePrefectures(prefectures, cfg, duration)
}

// ExecuteLines prints every distinct line name.
func ExecuteLines(ctx context.Context, cfg *contract.Config, api contract.StationAPI, mgr contract.CacheManager) error {
	lines, duration, err := GetLinesResult(ctx, cfg, api, mgr)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteLines(lines, cfg, duration)
}

// ExecuteStatistics prints facility coverage counts across all stations.
func ExecuteStatistics(ctx context.Context, cfg *contract.Config, api contract.StationAPI, mgr contract.CacheManager) error {
	stats, duration, err := GetStatisticsResult(ctx, cfg, api, mgr)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteStatistics(stats, cfg, duration)
}

// GetPrefecturesResult fetches the prefecture list through the response cache.
func GetPrefecturesResult(ctx context.Context, cfg *contract.Config, api contract.StationAPI, mgr contract.CacheManager) ([]schema.Prefecture, time.Duration, error) {
	return fetchReference(ctx, cfg, api, mgr, contract.StationAPI.ListPrefectures)
}

// GetLinesResult fetches the line names through the response cache.
func GetLinesResult(ctx context.Context, cfg *contract.Config, api contract.StationAPI, mgr contract.CacheManager) ([]string, time.Duration, error) {
	return fetchReference(ctx, cfg, api, mgr, contract.StationAPI.ListLines)
}

// GetStatisticsResult fetches the facility statistics through the response cache.
func GetStatisticsResult(ctx context.Context, cfg *contract.Config, api contract.StationAPI, mgr contract.CacheManager) (schema.Statistics, time.Duration, error) {
	return fetchReference(ctx, cfg, api, mgr, contract.StationAPI.GetStatistics)
}

func fetchReference[T any](ctx context.Context, cfg *contract.Config, api contract.StationAPI, mgr contract.CacheManager, fetch func(contract.StationAPI, context.Context) (T, error)) (T, time.Duration, error) {
	start := time.Now()
	result, err := fetch(newReader(cfg, api, mgr), ctx)
	if err != nil {
		var zero T
		return zero, time.Since(start), fmt.Errorf("%s: %w", UserMessage(err), err)
	}
	return result, time.Since(start), nil
}

// ExecuteMetrics displays the metric catalog of every category with any
// configured threshold overrides applied. No API call is made.
func ExecuteMetrics(_ context.Context, cfg *contract.Config) error {
	catalogs, err := GetCatalogs(cfg)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteCatalogs(catalogs, cfg)
}

// GetCatalogs returns the configured catalog of every category in display order.
func GetCatalogs(cfg *contract.Config) ([]schema.CategoryCatalog, error) {
	catalogs := make([]schema.CategoryCatalog, 0, len(schema.AllCategories))
	for _, category := range schema.AllCategories {
		catalog, err := ConfiguredCatalog(category, cfg.Thresholds)
		if err != nil {
			return nil, err
		}
		catalogs = append(catalogs, schema.CategoryCatalog{Category: category, Metrics: catalog.Definitions()})
	}
	return catalogs, nil
}

// NewConfiguredPresenter builds a presenter for cfg.Category with the
// configured thresholds, session and response cache.
func NewConfiguredPresenter(cfg *contract.Config, api contract.StationAPI, mgr contract.CacheManager) (*Presenter, error) {
	catalog, err := ConfiguredCatalog(cfg.Category, cfg.Thresholds)
	if err != nil {
		return nil, err
	}
	return NewPresenter(newReader(cfg, api, mgr), catalog, cfg.PageSize, cfg.Session), nil
}

// NewSearchPresenter builds a configured presenter and applies the search
// flags of cfg. Without explicit filters the profile preferences of a
// logged-in user become the filters.
func NewSearchPresenter(ctx context.Context, cfg *contract.Config, api contract.StationAPI, mgr contract.CacheManager) (*Presenter, error) {
	p, err := NewConfiguredPresenter(cfg, api, mgr)
	if err != nil {
		return nil, err
	}
	if err := applyConfigFilters(p, cfg); err != nil {
		return nil, err
	}
	if len(cfg.Filters) == 0 {
		applied, err := p.ApplyPreferences(ctx)
		if err != nil {
			contract.LogWarn("Cannot apply profile preferences", err)
		} else if len(applied) > 0 && !shouldSuppressHeader(ctx) {
			contract.LogInfo("Applied preferred filters for %s: %v", cfg.Session.Username, applied)
		}
	}
	return p, nil
}

// GetStationsResult runs one list cycle for the query described by cfg.
// An error result carries the view's message and a non-nil error.
func GetStationsResult(ctx context.Context, cfg *contract.Config, api contract.StationAPI, mgr contract.CacheManager) (schema.StationListResult, time.Duration, error) {
	start := time.Now()
	p, err := NewSearchPresenter(ctx, cfg, api, mgr)
	if err != nil {
		return schema.StationListResult{Category: cfg.Category, State: schema.ErrorState, Message: UserMessage(err)}, 0, err
	}
	if cfg.Page > 0 {
		p.SetPage(cfg.Page)
	}

	if !shouldSuppressHeader(ctx) && cfg.Output == schema.TextOut {
		logListHeader(cfg)
	}
	view := p.LoadList(ctx)
	duration := time.Since(start)

	result := listResult(p, view)
	if view.State == schema.ErrorState {
		return result, duration, fmt.Errorf("%s: %w", view.Message, view.Err)
	}
	recordList(ctx, cfg, mgr, p, view, start, duration)
	return result, duration, nil
}

// GetStationResult loads and re-scores one station with the configured weights.
func GetStationResult(ctx context.Context, cfg *contract.Config, api contract.StationAPI, mgr contract.CacheManager, id int64) (schema.StationDetailResult, time.Duration, error) {
	start := time.Now()
	p, err := NewConfiguredPresenter(cfg, api, mgr)
	if err != nil {
		return schema.StationDetailResult{}, 0, err
	}
	if err := p.SetWeights(cfg.Weights); err != nil {
		return schema.StationDetailResult{}, 0, err
	}
	view := p.LoadDetail(ctx, id)
	duration := time.Since(start)
	if view.State == schema.ErrorState {
		return schema.StationDetailResult{}, duration, fmt.Errorf("%s: %w", view.Message, view.Err)
	}
	recordDetail(ctx, cfg, mgr, view.Station, start, duration)
	return schema.StationDetailResult{
		Category:   p.Catalog().Category(),
		Station:    view.Station,
		Mismatches: view.Mismatches,
	}, duration, nil
}

// newReader wraps api with the response cache when one is configured.
func newReader(cfg *contract.Config, api contract.StationAPI, mgr contract.CacheManager) contract.StationAPI {
	if mgr == nil {
		return api
	}
	store := mgr.GetResponseStore()
	if store == nil {
		return api
	}
	return NewCachedAPI(api, store, cfg.CacheTTL)
}

func applyConfigFilters(p *Presenter, cfg *contract.Config) error {
	p.SetPrefecture(cfg.Prefecture)
	p.SetKeyword(cfg.Keyword)
	p.SetLine(cfg.LineName)
	if err := p.SetFilters(cfg.Filters); err != nil {
		return err
	}
	if cfg.Sort != "" {
		if err := p.SetSort(cfg.Sort); err != nil {
			return err
		}
	}
	return p.SetWeights(cfg.Weights)
}

func listResult(p *Presenter, view ListView) schema.StationListResult {
	state := p.State()
	filters := make([]string, 0, len(state.Required))
	for _, key := range p.Catalog().Keys() {
		if _, ok := state.Required[key]; ok {
			filters = append(filters, key)
		}
	}
	offset := (view.Pagination.CurrentPage - 1) * view.Pagination.PageSize
	return schema.StationListResult{
		Category:   p.Catalog().Category(),
		State:      view.State,
		Message:    view.Message,
		Stations:   schema.EnrichStations(view.Stations, max(offset, 0)),
		Page:       view.Pagination.CurrentPage,
		TotalPages: view.Pagination.TotalPages(),
		PageSize:   view.Pagination.PageSize,
		TotalCount: view.Pagination.TotalCount,
		Filters:    filters,
		Sort:       state.Sort,
	}
}

// logListHeader prints a short description of the search to stderr.
func logListHeader(cfg *contract.Config) {
	_, _ = fmt.Fprintf(os.Stderr, "🚉 Searching %s accessibility", cfg.Category)
	if cfg.Prefecture != "" {
		_, _ = fmt.Fprintf(os.Stderr, " in %s", cfg.Prefecture)
	}
	if cfg.Keyword != "" {
		_, _ = fmt.Fprintf(os.Stderr, " matching %q", cfg.Keyword)
	}
	if cfg.LineName != "" {
		_, _ = fmt.Fprintf(os.Stderr, " on %s", cfg.LineName)
	}
	_, _ = fmt.Fprintln(os.Stderr)
}

// recordList stores a list lookup and its scores in the history store, if enabled.
func recordList(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, p *Presenter, view ListView, start time.Time, duration time.Duration) {
	store := historyStore(ctx, mgr)
	if store == nil {
		return
	}
	query, err := BuildQuery(p.Catalog(), p.State())
	if err != nil {
		return
	}
	lookup := newLookupRecord(cfg, schema.ListLookup, EncodeQuery(query), len(view.Stations), start, duration)
	scores := make([]schema.LookupScoreRecord, len(view.Stations))
	for i, s := range view.Stations {
		scores[i] = newLookupScoreRecord(s, start)
	}
	if _, err := store.RecordLookup(lookup, scores); err != nil {
		contract.LogWarn("Failed to record lookup history", err)
	}
}

// recordDetail stores a detail lookup in the history store, if enabled.
func recordDetail(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, station schema.StationDetail, start time.Time, duration time.Duration) {
	store := historyStore(ctx, mgr)
	if store == nil {
		return
	}
	query := fmt.Sprintf("station_id=%d", station.ID)
	if len(cfg.Weights) > 0 {
		query += "&weights=" + WeightsParam(cfg.Weights)
	}
	lookup := newLookupRecord(cfg, schema.DetailLookup, query, 1, start, duration)
	scores := []schema.LookupScoreRecord{newLookupScoreRecord(station.StationSummary, start)}
	if _, err := store.RecordLookup(lookup, scores); err != nil {
		contract.LogWarn("Failed to record lookup history", err)
	}
}

func historyStore(ctx context.Context, mgr contract.CacheManager) contract.HistoryStore {
	if mgr == nil || shouldSkipHistory(ctx) {
		return nil
	}
	return mgr.GetHistoryStore()
}

func newLookupRecord(cfg *contract.Config, kind, query string, resultCount int, start time.Time, duration time.Duration) schema.LookupRecord {
	record := schema.LookupRecord{
		StartTime:   start.UTC(),
		Category:    string(cfg.Category),
		Kind:        kind,
		Query:       query,
		ResultCount: int32(resultCount),
		DurationMs:  int32(duration.Milliseconds()),
	}
	if cfg.Session.Authenticated() {
		username := cfg.Session.Username
		record.Username = &username
	}
	return record
}

func newLookupScoreRecord(s schema.StationSummary, lookupTime time.Time) schema.LookupScoreRecord {
	return schema.LookupScoreRecord{
		StationID:   s.ID,
		StationName: s.Name,
		LookupTime:  lookupTime.UTC(),
		MetItems:    int32(s.Score.MetItems),
		TotalItems:  int32(s.Score.TotalItems),
		Percentage:  int32(s.Score.Percentage),
		Label:       s.Score.Label,
	}
}
