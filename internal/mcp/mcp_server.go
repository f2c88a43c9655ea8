// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the Barrier Navi MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, api contract.StationAPI, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Barrier Navi Station Accessibility Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		api:     api,
		mgr:     mgr,
	}

	// --- 1. Tool: search_stations ---
	s.AddTool(mcp.NewTool("search_stations",
		mcp.WithDescription("Search Japanese train stations and score their accessibility for one category."),
		mcp.WithString("category", mcp.Description("Accessibility category (body, hearing, vision). Defaults to the configured category."), mcp.Enum("body", "hearing", "vision")),
		mcp.WithString("keyword", mcp.Description("Substring of the station name.")),
		mcp.WithString("prefecture", mcp.Description("Exact prefecture name, e.g. 東京都.")),
		mcp.WithString("line_name", mcp.Description("Line name, e.g. 山手線.")),
		mcp.WithString("filters", mcp.Description("Comma-separated metric keys a station must meet.")),
		mcp.WithString("sort", mcp.Description("Sort by score percentage."), mcp.Enum("none", "score-asc", "score-desc")),
		mcp.WithString("weights", mcp.Description("Metric weights such as 'has_tactile_paving:3,has_guidance_system:1'.")),
		mcp.WithNumber("page", mcp.Description("1-based page number. Defaults to 1.")),
		mcp.WithNumber("page_size", mcp.Description("Stations per page (1-100).")),
	), h.handleSearchStations)

	// --- 2. Tool: get_station_detail ---
	s.AddTool(mcp.NewTool("get_station_detail",
		mcp.WithDescription("Get the full metric breakdown and score of one station."),
		mcp.WithNumber("station_id", mcp.Description("Station ID from search_stations."), mcp.Required()),
		mcp.WithString("category", mcp.Description("Accessibility category (body, hearing, vision)."), mcp.Enum("body", "hearing", "vision")),
		mcp.WithString("weights", mcp.Description("Metric weights such as 'has_tactile_paving:3'.")),
	), h.handleGetStationDetail)

	// --- 3. Tool: list_prefectures ---
	s.AddTool(mcp.NewTool("list_prefectures",
		mcp.WithDescription("List prefectures with their station counts, largest first."),
	), h.handleListPrefectures)

	// --- 4. Tool: list_lines ---
	s.AddTool(mcp.NewTool("list_lines",
		mcp.WithDescription("List the distinct railway line names."),
	), h.handleListLines)

	// --- 5. Tool: list_metrics ---
	s.AddTool(mcp.NewTool("list_metrics",
		mcp.WithDescription("List the accessibility criteria used for scoring, with their thresholds."),
		mcp.WithString("category", mcp.Description("Limit to one category (body, hearing, vision)."), mcp.Enum("body", "hearing", "vision")),
	), h.handleListMetrics)

	// --- 6. Tool: get_statistics ---
	s.AddTool(mcp.NewTool("get_statistics",
		mcp.WithDescription("Get facility coverage counts across all stations."),
	), h.handleGetStatistics)

	return s
}

// StartMCPServer starts the Barrier Navi MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, api contract.StationAPI, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, api, mgr)
	return server.ServeStdio(s)
}
