// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"

	"github.com/huangsam/barriernavi/schema"
)

// StationAPI defines the read operations of the station accessibility API.
// This allows the presenter and commands to be tested without a live server.
type StationAPI interface {
	// ListStations returns one scored page of stations matching the query.
	ListStations(ctx context.Context, query schema.StationQuery) (schema.StationPage, error)

	// GetStation returns a station with its full metric breakdown. A nil or empty
	// weight map requests the unweighted score.
	GetStation(ctx context.Context, category schema.Category, id int64, weights map[string]float64) (schema.StationDetail, error)

	// ListPrefectures returns prefectures with their station counts.
	ListPrefectures(ctx context.Context) ([]schema.Prefecture, error)

	// ListLines returns the distinct line names served by any station.
	ListLines(ctx context.Context) ([]string, error)

	// GetStatistics returns facility coverage counts across all stations.
	GetStatistics(ctx context.Context) (schema.Statistics, error)

	// GetProfile returns the read-only profile of a user.
	GetProfile(ctx context.Context, userID int64) (schema.Profile, error)
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetResponseStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// HistoryStore defines the interface for recording station lookups.
type HistoryStore interface {
	// RecordLookup stores a lookup with the scores it returned and yields the lookup ID.
	RecordLookup(lookup schema.LookupRecord, scores []schema.LookupScoreRecord) (int64, error)

	// GetAllLookups returns every recorded lookup, oldest first.
	GetAllLookups() ([]schema.LookupRecord, error)

	// GetAllLookupScores returns every recorded station score, oldest first.
	GetAllLookupScores() ([]schema.LookupScoreRecord, error)

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// Close closes the underlying connection
	Close() error
}
