package server

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/huangsam/barriernavi/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func known(v int64) sql.NullInt64 { return sql.NullInt64{Int64: v, Valid: true} }

func text(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

// fixtureStations covers a fully equipped station, a partly equipped one, one
// with nothing and one with no readings at all.
func fixtureStations() []StationRow {
	return []StationRow{
		{
			ID: 1, StationName: text("東京"), Prefecture: text("東京都"), City: text("千代田区"),
			RailwayOperator: text("JR東日本"), LineName: text("山手線・中央線"),
			StepResponseStatus: known(1), NumPlatforms: known(4), NumStepFreePlatforms: known(4),
			NumElevators: known(4), NumCompliantElevators: known(4),
			NumEscalators: known(2), NumCompliantEscalators: known(2),
			NumOtherLifts: known(0), NumSlopes: known(2), NumCompliantSlopes: known(2),
			HasTactilePaving: known(1), HasGuidanceSystem: known(1), HasAccessibleRestroom: known(1),
			HasAccessibleGate: known(1), HasAccessibleTicketMachine: known(1),
			NumWheelchairAccessiblePlatforms: known(6), HasFallPrevention: known(1),
		},
		{
			ID: 2, StationName: text("渋谷"), Prefecture: text("東京都"), City: text("渋谷区"),
			RailwayOperator: text("東急"), LineName: text("東横線"),
			StepResponseStatus: known(1), NumPlatforms: known(4), NumStepFreePlatforms: known(2),
			NumElevators: known(2), NumCompliantElevators: known(1),
			NumEscalators: known(0), NumCompliantEscalators: known(0),
			NumOtherLifts: known(0), NumSlopes: known(0), NumCompliantSlopes: known(0),
			HasTactilePaving: known(1), HasGuidanceSystem: known(1), HasAccessibleRestroom: known(1),
			HasAccessibleGate: known(0), HasAccessibleTicketMachine: known(0),
			NumWheelchairAccessiblePlatforms: known(2), HasFallPrevention: known(0),
		},
		{
			ID: 3, StationName: text("大阪"), Prefecture: text("大阪府"), City: text("大阪市"),
			RailwayOperator: text("JR西日本"), LineName: text("大阪環状線"),
			StepResponseStatus: known(0), NumPlatforms: known(2), NumStepFreePlatforms: known(0),
			NumElevators: known(0), NumCompliantElevators: known(0),
			NumEscalators: known(0), NumCompliantEscalators: known(0),
			NumOtherLifts: known(0), NumSlopes: known(0), NumCompliantSlopes: known(0),
			HasTactilePaving: known(0), HasGuidanceSystem: known(0), HasAccessibleRestroom: known(0),
			HasAccessibleGate: known(0), HasAccessibleTicketMachine: known(0),
			NumWheelchairAccessiblePlatforms: known(0), HasFallPrevention: known(0),
		},
		{
			ID: 4, StationName: text("新宿"), Prefecture: text("東京都"), City: text("新宿区"),
			RailwayOperator: text("JR東日本"), LineName: text("山手線"),
		},
	}
}

// newTestRepository opens a SQLite repository in a temp dir.
func newTestRepository(t *testing.T) *SQLRepository {
	t.Helper()
	repo, err := NewRepository(schema.SQLiteBackend, filepath.Join(t.TempDir(), "stations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// newSeededRepository opens a repository holding fixtureStations.
func newSeededRepository(t *testing.T) *SQLRepository {
	t.Helper()
	repo := newTestRepository(t)
	require.NoError(t, repo.ReplaceStations(context.Background(), fixtureStations()))
	return repo
}

func stationIDs(rows []StationRow) []int64 {
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids
}

func TestNewRepository_NoneBackend(t *testing.T) {
	_, err := NewRepository(schema.NoneBackend, "")
	assert.Error(t, err)
}

func TestFindStations(t *testing.T) {
	repo := newSeededRepository(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter StationFilter
		want   []int64
	}{
		{"all stations ordered by name", StationFilter{}, []int64{3, 4, 1, 2}},
		{"keyword substring", StationFilter{Keyword: "宿"}, []int64{4}},
		{"prefecture exact match", StationFilter{Prefecture: "東京都"}, []int64{4, 1, 2}},
		{"prefecture is not a substring match", StationFilter{Prefecture: "東京"}, []int64{}},
		{"line name ignores suffix", StationFilter{LineName: "山手線"}, []int64{4, 1}},
		{"line name without suffix", StationFilter{LineName: "山手"}, []int64{4, 1}},
		{"joined line names match each part", StationFilter{LineName: "中央線"}, []int64{1}},
		{"combined filters", StationFilter{Prefecture: "東京都", Keyword: "渋"}, []int64{2}},
		{"whitespace is trimmed", StationFilter{Keyword: "  大阪 "}, []int64{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := repo.FindStations(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stationIDs(rows))
		})
	}
}

func TestGetStation(t *testing.T) {
	repo := newSeededRepository(t)
	ctx := context.Background()

	row, err := repo.GetStation(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "渋谷", row.StationName.String)
	assert.Equal(t, known(1), row.NumCompliantElevators)

	row, err = repo.GetStation(ctx, 4)
	require.NoError(t, err)
	assert.False(t, row.HasTactilePaving.Valid, "missing readings stay NULL")

	_, err = repo.GetStation(ctx, 99)
	assert.ErrorIs(t, err, schema.ErrNotFound)
}

func TestReferenceQueries(t *testing.T) {
	repo := newSeededRepository(t)
	ctx := context.Background()

	count, err := repo.CountStations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	prefectures, err := repo.Prefectures(ctx)
	require.NoError(t, err)
	assert.Equal(t, []schema.Prefecture{{Name: "東京都", Count: 3}, {Name: "大阪府", Count: 1}}, prefectures)

	names, err := repo.LineNames(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"山手線・中央線", "東横線", "大阪環状線", "山手線"}, names)

	stats, err := repo.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, schema.Statistics{
		TotalStations:          4,
		WithTactilePaving:      2,
		WithGuidanceSystem:     2,
		WithAccessibleRestroom: 2,
		WithAccessibleGate:     1,
		WithElevators:          2,
	}, stats)
}

func TestStatistics_EmptyTable(t *testing.T) {
	repo := newTestRepository(t)

	stats, err := repo.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schema.Statistics{}, stats)
}

func TestReplaceStations(t *testing.T) {
	repo := newSeededRepository(t)
	ctx := context.Background()

	replacement := []StationRow{{ID: 10, StationName: text("京都"), Prefecture: text("京都府")}}
	require.NoError(t, repo.ReplaceStations(ctx, replacement))

	rows, err := repo.FindStations(ctx, StationFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, stationIDs(rows))

	t.Run("failed import keeps previous rows", func(t *testing.T) {
		duplicate := []StationRow{{ID: 20}, {ID: 20}}
		assert.Error(t, repo.ReplaceStations(ctx, duplicate))

		rows, err := repo.FindStations(ctx, StationFilter{})
		require.NoError(t, err)
		assert.Equal(t, []int64{10}, stationIDs(rows))
	})
}

func TestProfile(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Profile(ctx, 3)
	assert.ErrorIs(t, err, schema.ErrNotFound)

	profile := schema.Profile{
		ID:                3,
		Username:          "hanako",
		Email:             "hanako@example.com",
		DisabilityType:    []string{"vision"},
		FavoriteStations:  []int64{1, 2},
		PreferredFeatures: []string{"has_tactile_paving"},
	}
	require.NoError(t, repo.SaveProfile(ctx, profile))

	got, err := repo.Profile(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, profile, got)

	t.Run("saving again replaces the profile", func(t *testing.T) {
		profile.PreferredFeatures = nil
		require.NoError(t, repo.SaveProfile(ctx, profile))

		got, err := repo.Profile(ctx, 3)
		require.NoError(t, err)
		assert.Empty(t, got.PreferredFeatures)
		assert.Equal(t, []int64{1, 2}, got.FavoriteStations)
	})

	t.Run("user without preferences", func(t *testing.T) {
		_, err := repo.db.Exec("INSERT INTO users (id, username) VALUES (7, 'taro')")
		require.NoError(t, err)

		got, err := repo.Profile(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "taro", got.Username)
		assert.Empty(t, got.Email)
		assert.Equal(t, []string{}, got.DisabilityType)
		assert.Equal(t, []int64{}, got.FavoriteStations)
	})

	t.Run("malformed preference list is ignored", func(t *testing.T) {
		_, err := repo.db.Exec("INSERT INTO users (id, username) VALUES (8, 'jiro')")
		require.NoError(t, err)
		_, err = repo.db.Exec(`INSERT INTO users_preferences (user_id, disability_type, favorite_stations, preferred_features)
			VALUES (8, 'not json', '[5]', NULL)`)
		require.NoError(t, err)

		got, err := repo.Profile(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, []string{}, got.DisabilityType)
		assert.Equal(t, []int64{5}, got.FavoriteStations)
		assert.Equal(t, []string{}, got.PreferredFeatures)
	})
}

func TestCreateStationsQuery(t *testing.T) {
	sqlite := createStationsQuery(schema.SQLiteBackend)
	assert.Contains(t, sqlite, "station_name TEXT")
	assert.Contains(t, sqlite, "has_fall_prevention INTEGER NULL")

	mysql := createStationsQuery(schema.MySQLBackend)
	assert.Contains(t, mysql, "line_name VARCHAR(1024)")
	assert.Contains(t, mysql, "num_platforms INT NULL")
}
