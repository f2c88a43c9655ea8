package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/huangsam/barriernavi/internal/apiclient"
	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer serves the seeded fixture database over HTTP.
func newTestServer(t *testing.T) (*httptest.Server, *SQLRepository) {
	t.Helper()
	repo := newSeededRepository(t)
	srv := New(&contract.Config{ServerAddr: "127.0.0.1:0"}, repo)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, repo
}

// getJSON fetches path and decodes the response body into a generic map.
func getJSON(t *testing.T, ts *httptest.Server, path string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHandlers_Envelope(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantKeys   []string
		wantError  string
	}{
		{
			name:       "station list",
			path:       "/api/body/stations?limit=2",
			wantStatus: http.StatusOK,
			wantKeys:   []string{"success", "data", "count", "total_count"},
		},
		{
			name:       "station detail",
			path:       "/api/vision/stations/1",
			wantStatus: http.StatusOK,
			wantKeys:   []string{"success", "data"},
		},
		{
			name:       "station count",
			path:       "/api/stations/count",
			wantStatus: http.StatusOK,
			wantKeys:   []string{"success", "count"},
		},
		{
			name:       "missing station",
			path:       "/api/hearing/stations/404",
			wantStatus: http.StatusNotFound,
			wantKeys:   []string{"success", "error"},
			wantError:  "Station not found",
		},
		{
			name:       "malformed weights",
			path:       "/api/vision/stations/1?weights=abc",
			wantStatus: http.StatusBadRequest,
			wantKeys:   []string{"success", "error"},
			wantError:  "invalid weight",
		},
		{
			name:       "weight outside the category",
			path:       "/api/hearing/stations?weights=" + url.QueryEscape(`{"num_slopes":2}`),
			wantStatus: http.StatusBadRequest,
			wantKeys:   []string{"success", "error"},
			wantError:  "invalid metric key",
		},
		{
			name:       "profile without user id",
			path:       "/api/auth/profile",
			wantStatus: http.StatusBadRequest,
			wantKeys:   []string{"success", "error"},
			wantError:  "ユーザーIDが必要です",
		},
		{
			name:       "unknown profile",
			path:       "/api/auth/profile?user_id=5",
			wantStatus: http.StatusNotFound,
			wantKeys:   []string{"success", "error"},
			wantError:  "ユーザーが見つかりません",
		},
		{
			name:       "non-numeric user id",
			path:       "/api/auth/profile?user_id=abc",
			wantStatus: http.StatusNotFound,
			wantKeys:   []string{"success", "error"},
			wantError:  "ユーザーが見つかりません",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := getJSON(t, ts, tt.path)
			assert.Equal(t, tt.wantStatus, status)
			for _, key := range tt.wantKeys {
				assert.Contains(t, body, key)
			}
			assert.Equal(t, tt.wantStatus < 400, body["success"])
			if tt.wantError != "" {
				assert.Contains(t, body["error"], tt.wantError)
			}
		})
	}
}

func TestHandlers_ListStationsQuery(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := getJSON(t, ts, `/api/hearing/stations?limit=2&offset=1&sort=score-desc&filters=not-json`)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["count"])
	assert.EqualValues(t, 4, body["total_count"], "malformed filters are treated as no filters")

	data := body["data"].([]any)
	first := data[0].(map[string]any)
	assert.Equal(t, "渋谷", first["station_name"])
	score := first["score"].(map[string]any)
	assert.EqualValues(t, 50, score["percentage"])
	assert.Equal(t, "2/4点", score["points"])
}

func TestHandlers_CountStations(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCount  int
	}{
		{"whole table", "", http.StatusOK, 4},
		{"keyword narrows the count", "?keyword=" + url.QueryEscape("宿"), http.StatusOK, 1},
		{"keyword without matches", "?keyword=zzzz-no-such-station", http.StatusOK, 0},
		{"paging is ignored", "?limit=1&offset=3", http.StatusOK, 4},
		{"unknown category", "?category=smell", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := getJSON(t, ts, "/api/stations/count"+tt.query)
			require.Equal(t, tt.wantStatus, status)
			if tt.wantStatus == http.StatusOK {
				assert.EqualValues(t, tt.wantCount, body["count"])
			}
		})
	}

	t.Run("matches the list total", func(t *testing.T) {
		query := "?filters=" + url.QueryEscape(`["has_tactile_paving"]`)
		_, list := getJSON(t, ts, "/api/vision/stations"+query)
		_, count := getJSON(t, ts, "/api/stations/count"+query+"&category=vision")
		assert.Equal(t, list["total_count"], count["count"])
	})
}

func TestHandlers_UnknownRoutes(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, path := range []string{"/api/smell/stations", "/api/body/stations/abc"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}

	resp, err := http.Post(ts.URL+"/api/lines", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandlers_HealthAndMetrics(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := getJSON(t, ts, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	getJSON(t, ts, "/api/body/stations/1")
	getJSON(t, ts, "/api/body/stations/2")

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	metrics := string(raw)
	assert.Contains(t, metrics, `barriernavi_api_requests_total{method="GET",route="/api/{category:body|hearing|vision}/stations/{id:[0-9]+}",status="200"} 2`)
	assert.Contains(t, metrics, "barriernavi_api_request_duration_seconds_bucket")
	assert.Contains(t, metrics, "go_goroutines")
}

func TestHandlers_HealthUnavailable(t *testing.T) {
	repo := newSeededRepository(t)
	ts := httptest.NewServer(New(&contract.Config{}, repo).Handler())
	t.Cleanup(ts.Close)
	require.NoError(t, repo.Close())

	status, body := getJSON(t, ts, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "unhealthy", body["status"])
}

// TestClientRoundTrip drives the server through the real API client.
func TestClientRoundTrip(t *testing.T) {
	ts, repo := newTestServer(t)
	client := apiclient.NewClient(apiclient.WithBaseURL(ts.URL + "/api"))
	ctx := context.Background()

	t.Run("list", func(t *testing.T) {
		page, err := client.ListStations(ctx, schema.StationQuery{
			Category: schema.HearingCategory,
			Limit:    2,
			Sort:     schema.SortScoreDesc,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Count)
		assert.Equal(t, 4, page.TotalCount)
		assert.Equal(t, []int64{1, 2}, summaryIDs(page.Stations))
		assert.Equal(t, 100, page.Stations[0].Score.Percentage)
		assert.Equal(t, "山手線・中央線", page.Stations[0].LineName)
	})

	t.Run("weighted list", func(t *testing.T) {
		page, err := client.ListStations(ctx, schema.StationQuery{
			Category: schema.HearingCategory,
			Limit:    10,
			Keyword:  "渋谷",
			Weights:  map[string]float64{"has_accessible_gate": 3},
		})
		require.NoError(t, err)
		require.Len(t, page.Stations, 1)
		assert.Equal(t, 33, page.Stations[0].Score.Percentage)
		assert.True(t, page.Stations[0].Score.Weighted())
	})

	t.Run("filtered list", func(t *testing.T) {
		page, err := client.ListStations(ctx, schema.StationQuery{
			Category: schema.VisionCategory,
			Limit:    10,
			Filters:  []string{"has_tactile_paving", "platform_ratio"},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, summaryIDs(page.Stations))
	})

	t.Run("detail", func(t *testing.T) {
		detail, err := client.GetStation(ctx, schema.VisionCategory, 1, nil)
		require.NoError(t, err)
		assert.Equal(t, 90, detail.Score.Percentage)
		require.Len(t, detail.Metrics, 10)

		platform := detail.Metrics[6]
		assert.Equal(t, schema.RatioKind, platform.Kind)
		assert.False(t, platform.RawValue.Valid)
		assert.Equal(t, schema.Known(4), platform.Numerator)
		assert.Equal(t, "4/4 (100.0%)", platform.Display)

		tactile := detail.Metrics[1]
		assert.Equal(t, schema.Known(1), tactile.RawValue)
		assert.Equal(t, contract.MetMark, tactile.Display)
	})

	t.Run("detail not found", func(t *testing.T) {
		_, err := client.GetStation(ctx, schema.BodyCategory, 99, nil)
		assert.ErrorIs(t, err, schema.ErrNotFound)
	})

	t.Run("reference data", func(t *testing.T) {
		prefectures, err := client.ListPrefectures(ctx)
		require.NoError(t, err)
		assert.Equal(t, []schema.Prefecture{{Name: "東京都", Count: 3}, {Name: "大阪府", Count: 1}}, prefectures)

		lines, err := client.ListLines(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"中央線", "大阪環状線", "山手線", "東横線"}, lines)

		stats, err := client.GetStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, stats.TotalStations)
		assert.Equal(t, 2, stats.WithElevators)
	})

	t.Run("profile", func(t *testing.T) {
		require.NoError(t, repo.SaveProfile(ctx, schema.Profile{
			ID:                3,
			Username:          "hanako",
			PreferredFeatures: []string{"has_tactile_paving"},
		}))

		profile, err := client.GetProfile(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "hanako", profile.Username)
		assert.Equal(t, []string{"has_tactile_paving"}, profile.PreferredFeatures)
	})
}
