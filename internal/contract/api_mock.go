package contract

import (
	"context"

	"github.com/huangsam/barriernavi/schema"
	"github.com/stretchr/testify/mock"
)

// MockStationAPI is a mock implementation of StationAPI for testing.
type MockStationAPI struct {
	mock.Mock
}

var _ StationAPI = &MockStationAPI{} // Compile-time check

// ListStations implements the StationAPI interface.
func (m *MockStationAPI) ListStations(ctx context.Context, query schema.StationQuery) (schema.StationPage, error) {
	ret := m.Called(ctx, query)
	page, _ := ret.Get(0).(schema.StationPage)
	return page, ret.Error(1)
}

// GetStation implements the StationAPI interface.
func (m *MockStationAPI) GetStation(ctx context.Context, category schema.Category, id int64, weights map[string]float64) (schema.StationDetail, error) {
	ret := m.Called(ctx, category, id, weights)
	detail, _ := ret.Get(0).(schema.StationDetail)
	return detail, ret.Error(1)
}

// ListPrefectures implements the StationAPI interface.
func (m *MockStationAPI) ListPrefectures(ctx context.Context) ([]schema.Prefecture, error) {
	ret := m.Called(ctx)
	prefectures, _ := ret.Get(0).([]schema.Prefecture)
	return prefectures, ret.Error(1)
}

// ListLines implements the StationAPI interface.
func (m *MockStationAPI) ListLines(ctx context.Context) ([]string, error) {
	ret := m.Called(ctx)
	lines, _ := ret.Get(0).([]string)
	return lines, ret.Error(1)
}

// GetStatistics implements the StationAPI interface.
func (m *MockStationAPI) GetStatistics(ctx context.Context) (schema.Statistics, error) {
	ret := m.Called(ctx)
	stats, _ := ret.Get(0).(schema.Statistics)
	return stats, ret.Error(1)
}

// GetProfile implements the StationAPI interface.
func (m *MockStationAPI) GetProfile(ctx context.Context, userID int64) (schema.Profile, error) {
	ret := m.Called(ctx, userID)
	profile, _ := ret.Get(0).(schema.Profile)
	return profile, ret.Error(1)
}
