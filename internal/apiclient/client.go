// Package apiclient talks to the station accessibility HTTP JSON API.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/barriernavi/core"
	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/schema"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 16 << 20

// Client implements contract.StationAPI over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ contract.StationAPI = &Client{} // Compile-time check

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API root, e.g. http://localhost:5000/api.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout bounds every request made by the client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a client for the default local API.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    contract.DefaultAPIURL,
		httpClient: &http.Client{Timeout: contract.DefaultAPITimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewConfiguredClient creates a client from the validated configuration.
func NewConfiguredClient(cfg *contract.Config) *Client {
	return NewClient(WithBaseURL(cfg.APIURL), WithTimeout(cfg.APITimeout))
}

// ListStations fetches one scored page of stations.
func (c *Client) ListStations(ctx context.Context, query schema.StationQuery) (schema.StationPage, error) {
	env, err := c.get(ctx, fmt.Sprintf("/%s/stations", query.Category), core.QueryValues(query))
	if err != nil {
		return schema.StationPage{}, err
	}
	var stations []wireStation
	if err := env.decodeData(&stations); err != nil {
		return schema.StationPage{}, err
	}

	page := schema.StationPage{
		Stations:   make([]schema.StationSummary, len(stations)),
		Count:      env.Count,
		TotalCount: env.TotalCount,
	}
	for i, s := range stations {
		page.Stations[i] = s.summary()
	}
	if page.Count == 0 {
		page.Count = len(page.Stations)
	}
	if page.TotalCount < page.Count {
		page.TotalCount = page.Count
	}
	return page, nil
}

// GetStation fetches one station with its metric breakdown.
func (c *Client) GetStation(ctx context.Context, category schema.Category, id int64, weights map[string]float64) (schema.StationDetail, error) {
	params := url.Values{}
	if param := core.WeightsParam(weights); param != "" {
		params.Set("weights", param)
	}
	env, err := c.get(ctx, fmt.Sprintf("/%s/stations/%d", category, id), params)
	if err != nil {
		return schema.StationDetail{}, err
	}
	var station wireStation
	if err := env.decodeData(&station); err != nil {
		return schema.StationDetail{}, err
	}
	return station.detail(), nil
}

// ListPrefectures fetches prefectures with their station counts.
func (c *Client) ListPrefectures(ctx context.Context) ([]schema.Prefecture, error) {
	env, err := c.get(ctx, "/stations/prefectures", nil)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Name  string          `json:"prefecture"`
		Count schema.RawValue `json:"count"`
	}
	if err := env.decodeData(&rows); err != nil {
		return nil, err
	}
	prefectures := make([]schema.Prefecture, len(rows))
	for i, row := range rows {
		prefectures[i] = schema.Prefecture{Name: row.Name, Count: int(row.Count.Value)}
	}
	return prefectures, nil
}

// ListLines fetches the distinct line names.
func (c *Client) ListLines(ctx context.Context) ([]string, error) {
	env, err := c.get(ctx, "/lines", nil)
	if err != nil {
		return nil, err
	}
	var lines []string
	if err := env.decodeData(&lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// GetStatistics fetches facility coverage counts. Aggregates may arrive as
// numeric strings depending on the database behind the API.
func (c *Client) GetStatistics(ctx context.Context) (schema.Statistics, error) {
	env, err := c.get(ctx, "/stations/statistics", nil)
	if err != nil {
		return schema.Statistics{}, err
	}
	var raw map[string]schema.RawValue
	if err := env.decodeData(&raw); err != nil {
		return schema.Statistics{}, err
	}
	count := func(key string) int { return int(raw[key].Value) }
	return schema.Statistics{
		TotalStations:          count("total_stations"),
		WithTactilePaving:      count("with_tactile_paving"),
		WithGuidanceSystem:     count("with_guidance_system"),
		WithAccessibleRestroom: count("with_accessible_restroom"),
		WithAccessibleGate:     count("with_accessible_gate"),
		WithElevators:          count("with_elevators"),
	}, nil
}

// GetProfile fetches the profile of a user.
func (c *Client) GetProfile(ctx context.Context, userID int64) (schema.Profile, error) {
	params := url.Values{}
	params.Set("user_id", strconv.FormatInt(userID, 10))
	env, err := c.get(ctx, "/auth/profile", params)
	if err != nil {
		return schema.Profile{}, err
	}
	var profile schema.Profile
	if err := env.decodeData(&profile); err != nil {
		return schema.Profile{}, err
	}
	return profile, nil
}

// get performs a GET request and unwraps the response envelope.
// Transport failures wrap schema.ErrNetworkFailure; everything the server
// answered with is a *schema.APIError.
func (c *Client) get(ctx context.Context, path string, params url.Values) (*envelope, error) {
	requestURL := c.baseURL + path
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", schema.ErrNetworkFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", schema.ErrNetworkFailure, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &schema.APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, &schema.APIError{Status: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err)}
	}
	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		message := env.Error
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, &schema.APIError{Status: resp.StatusCode, Message: message}
	}
	env.status = resp.StatusCode
	return &env, nil
}
