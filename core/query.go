package core

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/schema"
)

// Wire parameter names for station list requests.
const (
	paramLimit      = "limit"
	paramOffset     = "offset"
	paramPrefecture = "prefecture"
	paramKeyword    = "keyword"
	paramLineName   = "line_name"
	paramFilters    = "filters"
	paramSort       = "sort"
	paramWeights    = "weights"
)

// BuildQuery translates filter state into a request description.
// Pages are 1-based; a page below 1 is rejected rather than clamped.
func BuildQuery(catalog *Catalog, state schema.FilterState) (schema.StationQuery, error) {
	if state.Page < 1 {
		return schema.StationQuery{}, fmt.Errorf("%w: page %d, pages start at 1", schema.ErrInvalidPage, state.Page)
	}
	if state.PageSize < 1 {
		return schema.StationQuery{}, fmt.Errorf("%w: page size %d must be positive", schema.ErrInvalidPage, state.PageSize)
	}

	sortOrder := state.Sort
	if sortOrder == "" {
		sortOrder = schema.SortNone
	}
	if _, ok := schema.ValidSortOrders[sortOrder]; !ok {
		return schema.StationQuery{}, fmt.Errorf("%w: %q", schema.ErrInvalidSort, state.Sort)
	}

	filters := make([]string, 0, len(state.Required))
	for key := range state.Required {
		if !catalog.Has(key) {
			return schema.StationQuery{}, fmt.Errorf("%w: filter %q is not a %s metric", schema.ErrInvalidMetricKey, key, catalog.Category())
		}
		filters = append(filters, key)
	}
	slices.Sort(filters)

	if err := ValidateWeights(catalog, state.Weights); err != nil {
		return schema.StationQuery{}, err
	}
	var weights map[string]float64
	if len(state.Weights) > 0 {
		weights = maps.Clone(state.Weights)
	}

	return schema.StationQuery{
		Category:   catalog.Category(),
		Offset:     (state.Page - 1) * state.PageSize,
		Limit:      state.PageSize,
		Prefecture: strings.TrimSpace(state.Prefecture),
		Keyword:    strings.TrimSpace(state.Keyword),
		LineName:   strings.TrimSpace(state.LineName),
		Filters:    filters,
		Sort:       sortOrder,
		Weights:    weights,
	}, nil
}

// QueryValues converts a query into URL parameters. Empty values are omitted.
func QueryValues(q schema.StationQuery) url.Values {
	v := url.Values{}
	v.Set(paramLimit, strconv.Itoa(q.Limit))
	v.Set(paramOffset, strconv.Itoa(q.Offset))
	if q.Prefecture != "" {
		v.Set(paramPrefecture, q.Prefecture)
	}
	if q.Keyword != "" {
		v.Set(paramKeyword, q.Keyword)
	}
	if q.LineName != "" {
		v.Set(paramLineName, q.LineName)
	}
	if len(q.Filters) > 0 {
		filters := slices.Clone(q.Filters)
		slices.Sort(filters)
		filters = slices.Compact(filters)
		data, _ := json.Marshal(filters)
		v.Set(paramFilters, string(data))
	}
	if q.Sort != "" && q.Sort != schema.SortNone {
		v.Set(paramSort, string(q.Sort))
	}
	if param := WeightsParam(q.Weights); param != "" {
		v.Set(paramWeights, param)
	}
	return v
}

// EncodeQuery returns the canonical encoding of a query. Equal queries encode
// to identical strings.
func EncodeQuery(q schema.StationQuery) string {
	return QueryValues(q).Encode()
}

// WeightsParam encodes a weight map as a JSON object with sorted keys,
// or "" when there are no weights.
func WeightsParam(weights map[string]float64) string {
	if len(weights) == 0 {
		return ""
	}
	data, err := json.Marshal(weights)
	if err != nil {
		return ""
	}
	return string(data)
}

// ParseWeightsParam decodes the weights parameter. An empty value means no weights.
func ParseWeightsParam(s string) (map[string]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var weights map[string]float64
	if err := json.Unmarshal([]byte(s), &weights); err != nil {
		return nil, fmt.Errorf("%w: weights must be a JSON object of numbers: %v", schema.ErrInvalidWeight, err)
	}
	return weights, nil
}

// DecodeQuery is the inverse of QueryValues, used when serving list requests.
// Malformed numbers fall back to defaults and a malformed filters list is
// treated as no filters, so a sloppy client still gets results.
func DecodeQuery(category schema.Category, v url.Values) (schema.StationQuery, error) {
	q := schema.StationQuery{
		Category:   category,
		Limit:      contract.DefaultServerPageSize,
		Prefecture: strings.TrimSpace(v.Get(paramPrefecture)),
		Keyword:    strings.TrimSpace(v.Get(paramKeyword)),
		LineName:   strings.TrimSpace(v.Get(paramLineName)),
		Sort:       schema.SortNone,
	}

	if limit, err := strconv.Atoi(v.Get(paramLimit)); err == nil && limit > 0 {
		q.Limit = min(limit, contract.MaxPageSize)
	}
	if offset, err := strconv.Atoi(v.Get(paramOffset)); err == nil && offset > 0 {
		q.Offset = offset
	}

	if raw := v.Get(paramFilters); raw != "" {
		var filters []string
		if err := json.Unmarshal([]byte(raw), &filters); err == nil {
			slices.Sort(filters)
			q.Filters = slices.Compact(filters)
		}
	}

	if s := schema.SortOrder(v.Get(paramSort)); s != "" {
		if _, ok := schema.ValidSortOrders[s]; ok {
			q.Sort = s
		}
	}

	weights, err := ParseWeightsParam(v.Get(paramWeights))
	if err != nil {
		return schema.StationQuery{}, err
	}
	if len(weights) > 0 {
		q.Weights = weights
	}
	return q, nil
}

// CacheKey returns a stable hash identifying a query's response.
func CacheKey(q schema.StationQuery) string {
	return hashKey("stations", string(q.Category), EncodeQuery(q))
}

func hashKey(parts ...string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(strings.Join(parts, "|"))))
}
