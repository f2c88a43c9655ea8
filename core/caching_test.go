package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/internal/iocache"
	"github.com/huangsam/barriernavi/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func newFixedCachedAPI(api contract.StationAPI, store contract.CacheStore, ttl time.Duration) *CachedAPI {
	c := NewCachedAPI(api, store, ttl)
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestCachedAPI_ListStations(t *testing.T) {
	query := schema.StationQuery{Category: schema.BodyCategory, Limit: 10, Sort: schema.SortNone}
	key := CacheKey(query)
	page := stationPage(1, 5)
	encoded, _ := json.Marshal(page)

	t.Run("hit", func(t *testing.T) {
		api := &contract.MockStationAPI{}
		store := &iocache.MockCacheStore{}
		store.On("Get", key).Return(encoded, currentCacheVersion, fixedNow.Add(-time.Minute).Unix(), nil)

		got, err := newFixedCachedAPI(api, store, time.Hour).ListStations(context.Background(), query)
		require.NoError(t, err)
		assert.Equal(t, int64(5), got.Stations[0].ID)
		api.AssertNotCalled(t, "ListStations", mock.Anything, mock.Anything)
	})

	t.Run("miss stores result", func(t *testing.T) {
		api := &contract.MockStationAPI{}
		api.On("ListStations", mock.Anything, query).Return(page, nil)
		store := &iocache.MockCacheStore{}
		store.On("Get", key).Return(nil, 0, int64(0), sql.ErrNoRows)
		store.On("Set", key, encoded, currentCacheVersion, fixedNow.Unix()).Return(nil)

		got, err := newFixedCachedAPI(api, store, time.Hour).ListStations(context.Background(), query)
		require.NoError(t, err)
		assert.Equal(t, page, got)
		store.AssertExpectations(t)
	})

	t.Run("stale entry refetches", func(t *testing.T) {
		api := &contract.MockStationAPI{}
		api.On("ListStations", mock.Anything, query).Return(page, nil).Once()
		store := &iocache.MockCacheStore{}
		store.On("Get", key).Return(encoded, currentCacheVersion, fixedNow.Add(-2*time.Hour).Unix(), nil)
		store.On("Set", key, mock.Anything, currentCacheVersion, fixedNow.Unix()).Return(nil)

		_, err := newFixedCachedAPI(api, store, time.Hour).ListStations(context.Background(), query)
		require.NoError(t, err)
		api.AssertExpectations(t)
	})

	t.Run("version mismatch refetches", func(t *testing.T) {
		api := &contract.MockStationAPI{}
		api.On("ListStations", mock.Anything, query).Return(page, nil).Once()
		store := &iocache.MockCacheStore{}
		store.On("Get", key).Return(encoded, currentCacheVersion+1, fixedNow.Unix(), nil)
		store.On("Set", key, mock.Anything, currentCacheVersion, fixedNow.Unix()).Return(nil)

		_, err := newFixedCachedAPI(api, store, time.Hour).ListStations(context.Background(), query)
		require.NoError(t, err)
		api.AssertExpectations(t)
	})

	t.Run("errors are not stored", func(t *testing.T) {
		api := &contract.MockStationAPI{}
		api.On("ListStations", mock.Anything, query).Return(schema.StationPage{}, schema.ErrNetworkFailure)
		store := &iocache.MockCacheStore{}
		store.On("Get", key).Return(nil, 0, int64(0), sql.ErrNoRows)

		_, err := newFixedCachedAPI(api, store, time.Hour).ListStations(context.Background(), query)
		assert.ErrorIs(t, err, schema.ErrNetworkFailure)
		store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("set failure still returns result", func(t *testing.T) {
		api := &contract.MockStationAPI{}
		api.On("ListStations", mock.Anything, query).Return(page, nil)
		store := &iocache.MockCacheStore{}
		store.On("Get", key).Return(nil, 0, int64(0), sql.ErrNoRows)
		store.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))

		got, err := newFixedCachedAPI(api, store, time.Hour).ListStations(context.Background(), query)
		require.NoError(t, err)
		assert.Equal(t, page, got)
	})
}

func TestCachedAPI_Disabled(t *testing.T) {
	api := &contract.MockStationAPI{}
	api.On("ListLines", mock.Anything).Return([]string{"山手線"}, nil).Twice()

	for _, c := range []*CachedAPI{
		NewCachedAPI(api, nil, time.Hour),
		NewCachedAPI(api, &iocache.MockCacheStore{}, 0),
	} {
		lines, err := c.ListLines(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"山手線"}, lines)
	}
	api.AssertExpectations(t)
}

func TestCachedAPI_GetStationKeyIncludesWeights(t *testing.T) {
	api := &contract.MockStationAPI{}
	api.On("GetStation", mock.Anything, schema.VisionCategory, int64(42), mock.Anything).Return(visionDetail(), nil)

	var keys []string
	store := &iocache.MockCacheStore{}
	store.On("Get", mock.Anything).Return(nil, 0, int64(0), sql.ErrNoRows)
	store.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { keys = append(keys, args.String(0)) }).
		Return(nil)

	c := newFixedCachedAPI(api, store, time.Hour)
	_, err := c.GetStation(context.Background(), schema.VisionCategory, 42, nil)
	require.NoError(t, err)
	_, err = c.GetStation(context.Background(), schema.VisionCategory, 42, map[string]float64{"has_tactile_paving": 2})
	require.NoError(t, err)

	require.Len(t, keys, 2)
	assert.NotEqual(t, keys[0], keys[1])
}

func TestCachedAPI_ProfileIsNeverCached(t *testing.T) {
	api := &contract.MockStationAPI{}
	api.On("GetProfile", mock.Anything, int64(3)).Return(schema.Profile{ID: 3}, nil)
	store := &iocache.MockCacheStore{}

	profile, err := newFixedCachedAPI(api, store, time.Hour).GetProfile(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), profile.ID)
	store.AssertNotCalled(t, "Get", mock.Anything)
}

func TestCachedAPI_ReferenceData(t *testing.T) {
	prefectures := []schema.Prefecture{{Name: "東京都", Count: 120}}
	stats := schema.Statistics{TotalStations: 9000, WithElevators: 7000}

	api := &contract.MockStationAPI{}
	api.On("ListPrefectures", mock.Anything).Return(prefectures, nil).Once()
	api.On("GetStatistics", mock.Anything).Return(stats, nil).Once()

	store := &iocache.MockCacheStore{}
	store.On("Get", mock.Anything).Return(nil, 0, int64(0), sql.ErrNoRows)
	store.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	c := newFixedCachedAPI(api, store, time.Hour)
	gotPrefectures, err := c.ListPrefectures(context.Background())
	require.NoError(t, err)
	assert.Equal(t, prefectures, gotPrefectures)
	gotStats, err := c.GetStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stats, gotStats)
	api.AssertExpectations(t)
}
