package core

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/schema"
)

// currentCacheVersion defines the version of the cache schema
const currentCacheVersion = 1

// CachedAPI wraps a StationAPI and memoizes read responses in a CacheStore.
// Profiles are never cached.
type CachedAPI struct {
	api   contract.StationAPI
	store contract.CacheStore
	ttl   time.Duration
	now   func() time.Time
}

var _ contract.StationAPI = (*CachedAPI)(nil)

// NewCachedAPI wraps api. A nil store or non-positive ttl disables caching.
func NewCachedAPI(api contract.StationAPI, store contract.CacheStore, ttl time.Duration) *CachedAPI {
	return &CachedAPI{api: api, store: store, ttl: ttl, now: time.Now}
}

func (c *CachedAPI) enabled() bool {
	return c.store != nil && c.ttl > 0
}

// ListStations implements contract.StationAPI.
func (c *CachedAPI) ListStations(ctx context.Context, query schema.StationQuery) (schema.StationPage, error) {
	return cached(c, CacheKey(query), func() (schema.StationPage, error) {
		return c.api.ListStations(ctx, query)
	})
}

// GetStation implements contract.StationAPI.
func (c *CachedAPI) GetStation(ctx context.Context, category schema.Category, id int64, weights map[string]float64) (schema.StationDetail, error) {
	key := hashKey("station", string(category), strconv.FormatInt(id, 10), WeightsParam(weights))
	return cached(c, key, func() (schema.StationDetail, error) {
		return c.api.GetStation(ctx, category, id, weights)
	})
}

// ListPrefectures implements contract.StationAPI.
func (c *CachedAPI) ListPrefectures(ctx context.Context) ([]schema.Prefecture, error) {
	return cached(c, hashKey("prefectures"), func() ([]schema.Prefecture, error) {
		return c.api.ListPrefectures(ctx)
	})
}

// ListLines implements contract.StationAPI.
func (c *CachedAPI) ListLines(ctx context.Context) ([]string, error) {
	return cached(c, hashKey("lines"), func() ([]string, error) {
		return c.api.ListLines(ctx)
	})
}

// GetStatistics implements contract.StationAPI.
func (c *CachedAPI) GetStatistics(ctx context.Context) (schema.Statistics, error) {
	return cached(c, hashKey("statistics"), func() (schema.Statistics, error) {
		return c.api.GetStatistics(ctx)
	})
}

// GetProfile implements contract.StationAPI.
func (c *CachedAPI) GetProfile(ctx context.Context, userID int64) (schema.Profile, error) {
	return c.api.GetProfile(ctx, userID)
}

// cached returns the stored value for key when it is fresh, otherwise it
// calls fetch and stores a successful result.
func cached[T any](c *CachedAPI, key string, fetch func() (T, error)) (T, error) {
	if !c.enabled() {
		return fetch()
	}
	if result, ok := checkCacheHit[T](c, key); ok {
		return result, nil
	}
	return computeAndStore(c, key, fetch)
}

// checkCacheHit attempts to retrieve and validate a cached result
func checkCacheHit[T any](c *CachedAPI, key string) (T, bool) {
	var result T
	data, version, ts, err := c.store.Get(key)
	if err != nil {
		return result, false // Cache miss
	}

	// Validate version and staleness
	if version != currentCacheVersion || c.now().Sub(time.Unix(ts, 0)) > c.ttl {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}

// computeAndStore fetches the result and stores it in cache
func computeAndStore[T any](c *CachedAPI, key string, fetch func() (T, error)) (T, error) {
	result, err := fetch()
	if err != nil {
		return result, err
	}
	if data, err := json.Marshal(result); err == nil {
		if err := c.store.Set(key, data, currentCacheVersion, c.now().Unix()); err != nil {
			contract.LogWarn("Failed to cache response", err)
		}
	}
	return result, nil
}
