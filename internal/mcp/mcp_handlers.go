package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huangsam/barriernavi/core"
	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	api     contract.StationAPI
	mgr     contract.CacheManager
}

func (h *toolHandler) handleSearchStations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.configFor(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid search parameters: %v", err)), nil
	}
	cfg.Keyword = request.GetString("keyword", "")
	cfg.Prefecture = request.GetString("prefecture", "")
	cfg.LineName = request.GetString("line_name", "")
	cfg.Filters = contract.ParseListString(request.GetString("filters", ""))

	if s := request.GetString("sort", ""); s != "" {
		cfg.Sort = schema.SortOrder(s)
		if _, ok := schema.ValidSortOrders[cfg.Sort]; !ok {
			return mcp.NewToolResultError(fmt.Sprintf("invalid search parameters: unknown sort %q", s)), nil
		}
	}
	cfg.Page = request.GetInt("page", 1)
	if cfg.Page < 1 {
		return mcp.NewToolResultError(fmt.Sprintf("invalid search parameters: page must be at least 1 (received %d)", cfg.Page)), nil
	}
	if size := request.GetInt("page_size", 0); size != 0 {
		if size < 1 || size > contract.MaxPageSize {
			return mcp.NewToolResultError(fmt.Sprintf("invalid search parameters: page_size must be between 1 and %d", contract.MaxPageSize)), nil
		}
		cfg.PageSize = size
	}

	result, _, err := core.GetStationsResult(core.WithSuppressHeader(ctx), cfg, h.api, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(result), nil
}

func (h *toolHandler) handleGetStationDetail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.configFor(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid detail parameters: %v", err)), nil
	}
	id := request.GetInt("station_id", 0)
	if id <= 0 {
		return mcp.NewToolResultError("invalid detail parameters: station_id must be a positive integer"), nil
	}

	result, _, err := core.GetStationResult(core.WithSuppressHeader(ctx), cfg, h.api, h.mgr, int64(id))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("detail lookup failed: %v", err)), nil
	}
	return jsonResult(result), nil
}

func (h *toolHandler) handleListPrefectures(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefectures, _, err := core.GetPrefecturesResult(ctx, h.baseCfg, h.api, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing prefectures failed: %v", err)), nil
	}
	return jsonResult(prefectures), nil
}

func (h *toolHandler) handleListLines(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lines, _, err := core.GetLinesResult(ctx, h.baseCfg, h.api, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing lines failed: %v", err)), nil
	}
	return jsonResult(lines), nil
}

func (h *toolHandler) handleGetStatistics(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, _, err := core.GetStatisticsResult(ctx, h.baseCfg, h.api, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("statistics failed: %v", err)), nil
	}
	return jsonResult(stats), nil
}

func (h *toolHandler) handleListMetrics(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	catalogs, err := core.GetCatalogs(h.baseCfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid catalog configuration: %v", err)), nil
	}
	if c := request.GetString("category", ""); c != "" {
		category, err := core.ParseCategory(c)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid metrics parameters: %v", err)), nil
		}
		for _, catalog := range catalogs {
			if catalog.Category == category {
				return jsonResult([]schema.CategoryCatalog{catalog}), nil
			}
		}
	}
	return jsonResult(catalogs), nil
}

// configFor clones the base config and applies the shared category and weights arguments.
func (h *toolHandler) configFor(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	if c := request.GetString("category", ""); c != "" {
		category, err := core.ParseCategory(c)
		if err != nil {
			return nil, err
		}
		cfg.Category = category
	}
	if w := request.GetString("weights", ""); w != "" {
		weights, err := contract.ParseWeightsString(w)
		if err != nil {
			return nil, err
		}
		cfg.Weights = weights
	}
	return cfg, nil
}

func jsonResult(v any) *mcp.CallToolResult {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(jsonData))
}
