package core

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/schema"
)

// User-visible messages for non-result states.
const (
	LoadingMessage = "Loading stations..."
	EmptyMessage   = "No stations match the current filters."
)

// ListRequest is an issued station list fetch.
type ListRequest struct {
	Seq   uint64
	Page  int
	Query schema.StationQuery
}

// ListResponse is the outcome of a ListRequest.
type ListResponse struct {
	Seq    uint64
	Page   int
	Result schema.StationPage
	Err    error
}

// ListView is what a list screen should render.
type ListView struct {
	State      schema.ViewState
	Stations   []schema.StationSummary
	Pagination Pagination
	Message    string
	Err        error
}

// DetailRequest is an issued station detail fetch.
type DetailRequest struct {
	Seq      uint64
	Category schema.Category
	ID       int64
	Weights  map[string]float64
}

// DetailResponse is the outcome of a DetailRequest.
type DetailResponse struct {
	Seq     uint64
	Weights map[string]float64
	Detail  schema.StationDetail
	Err     error
}

// DetailView is what a detail screen should render.
type DetailView struct {
	State      schema.ViewState
	Station    schema.StationDetail
	Mismatches []schema.MetricMismatch
	Message    string
	Err        error
}

// Presenter owns the filter and pagination state of one screen and turns
// API responses into views. It serves every category through its catalog.
//
// A Presenter is driven from a single goroutine. Fetch methods touch no
// presenter state and may run elsewhere; their responses are handed back
// through the Apply methods, which drop anything but the latest request.
type Presenter struct {
	api     contract.StationAPI
	catalog *Catalog
	session schema.Session
	state   schema.FilterState

	totalCount int
	refetch    bool

	listSeq   uint64
	detailSeq uint64
	list      ListView
	detail    DetailView
}

// NewPresenter creates a presenter for one screen.
func NewPresenter(api contract.StationAPI, catalog *Catalog, pageSize int, session schema.Session) *Presenter {
	p := &Presenter{
		api:     api,
		catalog: catalog,
		session: session,
		state:   schema.NewFilterState(pageSize),
	}
	p.list = ListView{State: schema.LoadingState, Message: LoadingMessage, Pagination: p.Pagination()}
	p.detail = DetailView{State: schema.LoadingState, Message: LoadingMessage}
	return p
}

// Catalog returns the catalog the presenter scores with.
func (p *Presenter) Catalog() *Catalog { return p.catalog }

// Session returns the injected session context.
func (p *Presenter) Session() schema.Session { return p.session }

// State returns a copy of the current filter state.
func (p *Presenter) State() schema.FilterState { return p.state.Clone() }

// ListView returns the current list view.
func (p *Presenter) ListView() ListView { return p.list }

// DetailView returns the current detail view.
func (p *Presenter) DetailView() DetailView { return p.detail }

// Pagination returns the pagination for the current page and last known total.
func (p *Presenter) Pagination() Pagination {
	return Pagination{CurrentPage: p.state.Page, TotalCount: p.totalCount, PageSize: p.state.PageSize}
}

// SetPrefecture filters by prefecture; empty clears the filter.
func (p *Presenter) SetPrefecture(prefecture string) {
	p.state.Prefecture = prefecture
	p.state.Page = 1
}

// SetKeyword filters by station name substring; empty clears the filter.
func (p *Presenter) SetKeyword(keyword string) {
	p.state.Keyword = keyword
	p.state.Page = 1
}

// SetLine filters by line name; empty clears the filter.
func (p *Presenter) SetLine(line string) {
	p.state.LineName = line
	p.state.Page = 1
}

// ToggleFilter adds or removes a metric from the set that must be met.
func (p *Presenter) ToggleFilter(key string) error {
	if !p.catalog.Has(key) {
		return fmt.Errorf("%w: %q is not a %s metric", schema.ErrInvalidMetricKey, key, p.catalog.Category())
	}
	if _, ok := p.state.Required[key]; ok {
		delete(p.state.Required, key)
	} else {
		p.state.Required[key] = struct{}{}
	}
	p.state.Page = 1
	return nil
}

// SetFilters replaces the set of metrics that must be met.
func (p *Presenter) SetFilters(keys []string) error {
	required := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if !p.catalog.Has(key) {
			return fmt.Errorf("%w: %q is not a %s metric", schema.ErrInvalidMetricKey, key, p.catalog.Category())
		}
		required[key] = struct{}{}
	}
	p.state.Required = required
	p.state.Page = 1
	return nil
}

// SetSort changes the sort order.
func (p *Presenter) SetSort(order schema.SortOrder) error {
	if _, ok := schema.ValidSortOrders[order]; !ok {
		return fmt.Errorf("%w: %q", schema.ErrInvalidSort, order)
	}
	p.state.Sort = order
	p.state.Page = 1
	return nil
}

// CycleSort advances none -> score-desc -> score-asc -> none.
func (p *Presenter) CycleSort() schema.SortOrder {
	switch p.state.Sort {
	case schema.SortScoreDesc:
		p.state.Sort = schema.SortScoreAsc
	case schema.SortScoreAsc:
		p.state.Sort = schema.SortNone
	default:
		p.state.Sort = schema.SortScoreDesc
	}
	p.state.Page = 1
	return p.state.Sort
}

// SetWeights sets the per-metric weights used for list and detail scoring.
func (p *Presenter) SetWeights(weights map[string]float64) error {
	if err := ValidateWeights(p.catalog, weights); err != nil {
		return err
	}
	p.state.Weights = nil
	if len(weights) > 0 {
		p.state.Weights = maps.Clone(weights)
	}
	p.state.Page = 1
	return nil
}

// Reset clears every filter and returns to page 1.
func (p *Presenter) Reset() {
	p.state = schema.NewFilterState(p.state.PageSize)
}

// SetPage jumps to page without clamping. A page past the end is corrected
// once the listing reports its total.
func (p *Presenter) SetPage(page int) {
	p.state.Page = page
}

// Navigate moves to the first, previous, next or last page, clamped to the
// known page range, and returns the new page.
func (p *Presenter) Navigate(nav Nav) int {
	p.state.Page = p.Pagination().Target(nav)
	return p.state.Page
}

// GoTo moves to page, clamped to the known page range.
func (p *Presenter) GoTo(page int) int {
	p.state.Page = p.Pagination().Clamp(page)
	return p.state.Page
}

// BeginList issues a list request for the current state. Any response to an
// earlier request becomes stale.
func (p *Presenter) BeginList() (ListRequest, error) {
	p.listSeq++
	query, err := BuildQuery(p.catalog, p.state)
	if err != nil {
		p.list = ListView{State: schema.ErrorState, Message: UserMessage(err), Err: err, Pagination: p.Pagination()}
		return ListRequest{}, err
	}
	p.refetch = false
	p.list = ListView{
		State:      schema.LoadingState,
		Stations:   p.list.Stations,
		Pagination: p.Pagination(),
		Message:    LoadingMessage,
	}
	return ListRequest{Seq: p.listSeq, Page: p.state.Page, Query: query}, nil
}

// FetchList performs the network call for req.
func (p *Presenter) FetchList(ctx context.Context, req ListRequest) ListResponse {
	page, err := p.api.ListStations(ctx, req.Query)
	return ListResponse{Seq: req.Seq, Page: req.Page, Result: page, Err: err}
}

// ApplyList renders resp if it answers the latest list request and reports
// whether it was applied.
func (p *Presenter) ApplyList(resp ListResponse) bool {
	if resp.Seq != p.listSeq {
		return false
	}

	if resp.Err != nil {
		p.list = ListView{
			State:      schema.ErrorState,
			Pagination: p.Pagination(),
			Message:    UserMessage(resp.Err),
			Err:        resp.Err,
		}
		return true
	}

	p.totalCount = max(resp.Result.TotalCount, 0)
	stations := make([]schema.StationSummary, len(resp.Result.Stations))
	for i, s := range resp.Result.Stations {
		s.Score = Summarize(s.Score)
		stations[i] = s
	}

	pagination := p.Pagination()
	if len(stations) == 0 && p.state.Page > pagination.TotalPages() {
		// The listing shrank under us; land on the last real page.
		p.state.Page = pagination.TotalPages()
		p.refetch = true
		pagination = p.Pagination()
	}

	p.list = ListView{State: schema.ResultsState, Stations: stations, Pagination: pagination}
	if len(stations) == 0 {
		p.list.State = schema.EmptyState
		p.list.Message = EmptyMessage
	}
	return true
}

// NeedsRefetch reports whether the last applied page was out of range and the
// clamped page should be loaded.
func (p *Presenter) NeedsRefetch() bool { return p.refetch }

// LoadList runs a full list cycle synchronously.
func (p *Presenter) LoadList(ctx context.Context) ListView {
	for range 2 {
		req, err := p.BeginList()
		if err != nil {
			return p.list
		}
		p.ApplyList(p.FetchList(ctx, req))
		if !p.refetch {
			break
		}
	}
	return p.list
}

// BeginDetail issues a detail request for a station, carrying the current weights.
func (p *Presenter) BeginDetail(id int64) DetailRequest {
	p.detailSeq++
	p.detail = DetailView{State: schema.LoadingState, Message: LoadingMessage}
	var weights map[string]float64
	if len(p.state.Weights) > 0 {
		weights = maps.Clone(p.state.Weights)
	}
	return DetailRequest{Seq: p.detailSeq, Category: p.catalog.Category(), ID: id, Weights: weights}
}

// FetchDetail performs the network call for req.
func (p *Presenter) FetchDetail(ctx context.Context, req DetailRequest) DetailResponse {
	detail, err := p.api.GetStation(ctx, req.Category, req.ID, req.Weights)
	return DetailResponse{Seq: req.Seq, Weights: req.Weights, Detail: detail, Err: err}
}

// ApplyDetail renders resp if it answers the latest detail request. The
// breakdown is always re-scored locally; reported met flags that disagree are
// kept as mismatches.
func (p *Presenter) ApplyDetail(resp DetailResponse) bool {
	if resp.Seq != p.detailSeq {
		return false
	}
	if resp.Err != nil {
		p.detail = DetailView{State: schema.ErrorState, Message: UserMessage(resp.Err), Err: resp.Err}
		return true
	}

	mismatches, err := Verify(p.catalog, resp.Detail.Metrics)
	if err != nil {
		p.detail = DetailView{State: schema.ErrorState, Message: UserMessage(err), Err: err}
		return true
	}
	eval, err := ScoreWeighted(p.catalog, resp.Detail.Metrics, resp.Weights)
	if err != nil {
		p.detail = DetailView{State: schema.ErrorState, Message: UserMessage(err), Err: err}
		return true
	}

	station := resp.Detail
	station.Score = eval.Summary
	station.Metrics = eval.Observations
	p.detail = DetailView{State: schema.ResultsState, Station: station, Mismatches: mismatches}
	return true
}

// LoadDetail runs a full detail cycle synchronously.
func (p *Presenter) LoadDetail(ctx context.Context, id int64) DetailView {
	req := p.BeginDetail(id)
	p.ApplyDetail(p.FetchDetail(ctx, req))
	return p.detail
}

// ApplyPreferences pre-selects filters from the logged-in user's preferred
// features. Guests and anonymous sessions are left untouched. Keys that are
// not part of the catalog are skipped.
func (p *Presenter) ApplyPreferences(ctx context.Context) ([]string, error) {
	if !p.session.Authenticated() {
		return nil, nil
	}
	profile, err := p.api.GetProfile(ctx, p.session.UserID)
	if err != nil {
		return nil, fmt.Errorf("read profile preferences: %w", err)
	}

	var applied []string
	for _, key := range profile.PreferredFeatures {
		if _, dup := p.state.Required[key]; dup || !p.catalog.Has(key) {
			continue
		}
		p.state.Required[key] = struct{}{}
		applied = append(applied, key)
	}
	if len(applied) > 0 {
		p.state.Page = 1
	}
	return applied, nil
}

// UserMessage converts an error into text suitable for an error state.
func UserMessage(err error) string {
	var apiErr *schema.APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "The station service did not respond in time. Please try again."
	case errors.Is(err, schema.ErrNotFound):
		return "Station not found."
	case errors.As(err, &apiErr):
		return "The station service reported an error: " + apiErr.Message
	case errors.Is(err, schema.ErrNetworkFailure):
		return "Could not reach the station service. Check your connection and try again."
	case errors.Is(err, schema.ErrInvalidMetricKey):
		return "Station data is inconsistent and cannot be scored: " + err.Error()
	case errors.Is(err, schema.ErrInvalidPage), errors.Is(err, schema.ErrInvalidSort), errors.Is(err, schema.ErrInvalidWeight):
		return "Invalid search: " + err.Error()
	default:
		return err.Error()
	}
}
