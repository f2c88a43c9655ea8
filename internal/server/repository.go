package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/internal/iocache"
	"github.com/huangsam/barriernavi/schema"
	"github.com/jmoiron/sqlx"
)

// StationFilter narrows a station search before scoring.
type StationFilter struct {
	Keyword    string
	Prefecture string
	LineName   string
}

// Repository reads and writes the station and user tables.
type Repository interface {
	FindStations(ctx context.Context, filter StationFilter) ([]StationRow, error)
	GetStation(ctx context.Context, id int64) (StationRow, error)
	CountStations(ctx context.Context) (int, error)
	Prefectures(ctx context.Context) ([]schema.Prefecture, error)
	LineNames(ctx context.Context) ([]string, error)
	Statistics(ctx context.Context) (schema.Statistics, error)
	Profile(ctx context.Context, userID int64) (schema.Profile, error)
	ReplaceStations(ctx context.Context, rows []StationRow) error
	SaveProfile(ctx context.Context, profile schema.Profile) error
	Ping(ctx context.Context) error
	Close() error
}

// SQLRepository implements Repository on SQLite, MySQL or PostgreSQL.
type SQLRepository struct {
	db      *sqlx.DB
	backend schema.DatabaseBackend
}

var _ Repository = &SQLRepository{} // Compile-time check

// NewRepository opens the station database and creates missing tables.
// An empty SQLite connection string uses the default stations file.
func NewRepository(backend schema.DatabaseBackend, connStr string) (*SQLRepository, error) {
	if backend == schema.NoneBackend {
		return nil, fmt.Errorf("the reference server needs a station database, got backend %q", backend)
	}
	db, err := iocache.OpenSQLX(backend, connStr, contract.GetStationDBFilePath())
	if err != nil {
		return nil, err
	}
	repo := &SQLRepository{db: db, backend: backend}
	if err := repo.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create station tables: %w", err)
	}
	return repo, nil
}

func (r *SQLRepository) createTables() error {
	for _, query := range []string{
		createStationsQuery(r.backend),
		createUsersQuery(r.backend),
		createPreferencesQuery(r.backend),
	} {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// createStationsQuery returns the CREATE TABLE query for stations.
func createStationsQuery(backend schema.DatabaseBackend) string {
	textType, intType := "TEXT", "INTEGER"
	if backend == schema.MySQLBackend {
		textType, intType = "VARCHAR(255)", "INT"
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS stations (\n\tid BIGINT PRIMARY KEY")
	for _, col := range textColumns {
		colType := textType
		if col == "line_name" && backend == schema.MySQLBackend {
			colType = "VARCHAR(1024)"
		}
		fmt.Fprintf(&b, ",\n\t%s %s", col, colType)
	}
	for _, col := range intColumns {
		fmt.Fprintf(&b, ",\n\t%s %s NULL", col, intType)
	}
	b.WriteString("\n)")
	return b.String()
}

// createUsersQuery returns the CREATE TABLE query for users.
func createUsersQuery(backend schema.DatabaseBackend) string {
	textType := "TEXT"
	if backend == schema.MySQLBackend {
		textType = "VARCHAR(255)"
	}
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			username %[1]s NOT NULL,
			email %[1]s
		)`, textType)
}

// createPreferencesQuery returns the CREATE TABLE query for users_preferences.
// List columns hold JSON arrays.
func createPreferencesQuery(_ schema.DatabaseBackend) string {
	return `
		CREATE TABLE IF NOT EXISTS users_preferences (
			user_id BIGINT PRIMARY KEY,
			disability_type TEXT,
			favorite_stations TEXT,
			preferred_features TEXT
		)`
}

// FindStations returns matching stations ordered by name. The line name match
// ignores the 線 suffix so "山手" and "山手線" find the same rows.
func (r *SQLRepository) FindStations(ctx context.Context, filter StationFilter) ([]StationRow, error) {
	query := "SELECT " + strings.Join(stationColumns, ", ") + " FROM stations WHERE 1=1"
	var args []any

	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		query += " AND station_name LIKE ?"
		args = append(args, "%"+kw+"%")
	}
	if pref := strings.TrimSpace(filter.Prefecture); pref != "" {
		query += " AND prefecture = ?"
		args = append(args, pref)
	}
	if line := strings.ReplaceAll(strings.TrimSpace(filter.LineName), "線", ""); line != "" {
		query += " AND line_name LIKE ?"
		args = append(args, "%"+line+"%")
	}
	query += " ORDER BY station_name, id"

	rows := []StationRow{}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	return rows, nil
}

// GetStation returns one station or an error wrapping schema.ErrNotFound.
func (r *SQLRepository) GetStation(ctx context.Context, id int64) (StationRow, error) {
	query := r.db.Rebind("SELECT " + strings.Join(stationColumns, ", ") + " FROM stations WHERE id = ?")
	var row StationRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StationRow{}, fmt.Errorf("%w: station %d", schema.ErrNotFound, id)
		}
		return StationRow{}, fmt.Errorf("failed to get station %d: %w", id, err)
	}
	return row, nil
}

// CountStations returns the number of rows in the stations table.
func (r *SQLRepository) CountStations(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM stations"); err != nil {
		return 0, fmt.Errorf("failed to count stations: %w", err)
	}
	return count, nil
}

// Prefectures returns station counts per prefecture, largest first.
func (r *SQLRepository) Prefectures(ctx context.Context) ([]schema.Prefecture, error) {
	var rows []struct {
		Name  string `db:"prefecture"`
		Count int    `db:"station_count"`
	}
	query := `
		SELECT prefecture, COUNT(*) AS station_count
		FROM stations
		WHERE prefecture IS NOT NULL AND prefecture <> ''
		GROUP BY prefecture
		ORDER BY station_count DESC, prefecture`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to query prefectures: %w", err)
	}

	prefectures := make([]schema.Prefecture, len(rows))
	for i, row := range rows {
		prefectures[i] = schema.Prefecture{Name: row.Name, Count: row.Count}
	}
	return prefectures, nil
}

// LineNames returns the distinct raw line_name values, which may join
// several lines with ・.
func (r *SQLRepository) LineNames(ctx context.Context) ([]string, error) {
	names := []string{}
	query := "SELECT DISTINCT line_name FROM stations WHERE line_name IS NOT NULL AND line_name <> ''"
	if err := r.db.SelectContext(ctx, &names, query); err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	return names, nil
}

// Statistics counts the stations that have each headline facility.
func (r *SQLRepository) Statistics(ctx context.Context) (schema.Statistics, error) {
	var row struct {
		Total     int `db:"total_stations"`
		Tactile   int `db:"with_tactile_paving"`
		Guidance  int `db:"with_guidance_system"`
		Restroom  int `db:"with_accessible_restroom"`
		Gate      int `db:"with_accessible_gate"`
		Elevators int `db:"with_elevators"`
	}
	query := `
		SELECT
			COUNT(*) AS total_stations,
			COALESCE(SUM(CASE WHEN has_tactile_paving = 1 THEN 1 ELSE 0 END), 0) AS with_tactile_paving,
			COALESCE(SUM(CASE WHEN has_guidance_system = 1 THEN 1 ELSE 0 END), 0) AS with_guidance_system,
			COALESCE(SUM(CASE WHEN has_accessible_restroom = 1 THEN 1 ELSE 0 END), 0) AS with_accessible_restroom,
			COALESCE(SUM(CASE WHEN has_accessible_gate = 1 THEN 1 ELSE 0 END), 0) AS with_accessible_gate,
			COALESCE(SUM(CASE WHEN num_elevators > 0 THEN 1 ELSE 0 END), 0) AS with_elevators
		FROM stations`
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return schema.Statistics{}, fmt.Errorf("failed to query statistics: %w", err)
	}
	return schema.Statistics{
		TotalStations:          row.Total,
		WithTactilePaving:      row.Tactile,
		WithGuidanceSystem:     row.Guidance,
		WithAccessibleRestroom: row.Restroom,
		WithAccessibleGate:     row.Gate,
		WithElevators:          row.Elevators,
	}, nil
}

type userRow struct {
	ID       int64          `db:"id"`
	Username string         `db:"username"`
	Email    sql.NullString `db:"email"`
}

type preferencesRow struct {
	DisabilityType    sql.NullString `db:"disability_type"`
	FavoriteStations  sql.NullString `db:"favorite_stations"`
	PreferredFeatures sql.NullString `db:"preferred_features"`
}

// Profile returns a user with their preferences. A user without a
// preferences row gets empty lists.
func (r *SQLRepository) Profile(ctx context.Context, userID int64) (schema.Profile, error) {
	var user userRow
	err := r.db.GetContext(ctx, &user, r.db.Rebind("SELECT id, username, email FROM users WHERE id = ?"), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return schema.Profile{}, fmt.Errorf("%w: user %d", schema.ErrNotFound, userID)
		}
		return schema.Profile{}, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	profile := schema.Profile{
		ID:                user.ID,
		Username:          user.Username,
		Email:             user.Email.String,
		DisabilityType:    []string{},
		FavoriteStations:  []int64{},
		PreferredFeatures: []string{},
	}

	var prefs preferencesRow
	query := r.db.Rebind(`
		SELECT disability_type, favorite_stations, preferred_features
		FROM users_preferences WHERE user_id = ?`)
	if err := r.db.GetContext(ctx, &prefs, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return profile, nil
		}
		return schema.Profile{}, fmt.Errorf("failed to get preferences for user %d: %w", userID, err)
	}
	decodeList(prefs.DisabilityType, &profile.DisabilityType)
	decodeList(prefs.FavoriteStations, &profile.FavoriteStations)
	decodeList(prefs.PreferredFeatures, &profile.PreferredFeatures)
	return profile, nil
}

// decodeList leaves dest untouched when the column is NULL or not a JSON list.
func decodeList[T any](col sql.NullString, dest *[]T) {
	if !col.Valid || col.String == "" {
		return
	}
	var items []T
	if err := json.Unmarshal([]byte(col.String), &items); err != nil {
		contract.LogWarn("ignoring malformed preference list", err)
		return
	}
	if items != nil {
		*dest = items
	}
}

// ReplaceStations swaps the whole stations table for rows in one transaction.
func (r *SQLRepository) ReplaceStations(ctx context.Context, rows []StationRow) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM stations"); err != nil {
		return fmt.Errorf("failed to clear stations: %w", err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, insertStationQuery())
	if err != nil {
		return fmt.Errorf("failed to prepare station insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range rows {
		if _, err = stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("failed to insert station %d: %w", row.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

func insertStationQuery() string {
	params := make([]string, len(stationColumns))
	for i, col := range stationColumns {
		params[i] = ":" + col
	}
	return fmt.Sprintf("INSERT INTO stations (%s) VALUES (%s)",
		strings.Join(stationColumns, ", "), strings.Join(params, ", "))
}

// SaveProfile writes a user and their preferences, replacing existing rows.
func (r *SQLRepository) SaveProfile(ctx context.Context, profile schema.Profile) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin profile save: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, query := range []string{
		"DELETE FROM users_preferences WHERE user_id = ?",
		"DELETE FROM users WHERE id = ?",
	} {
		if _, err = tx.ExecContext(ctx, tx.Rebind(query), profile.ID); err != nil {
			return fmt.Errorf("failed to clear profile %d: %w", profile.ID, err)
		}
	}

	if _, err = tx.ExecContext(ctx, tx.Rebind("INSERT INTO users (id, username, email) VALUES (?, ?, ?)"),
		profile.ID, profile.Username, nullString(profile.Email)); err != nil {
		return fmt.Errorf("failed to insert user %d: %w", profile.ID, err)
	}

	disability, _ := json.Marshal(orEmpty(profile.DisabilityType))
	favorites, _ := json.Marshal(orEmpty(profile.FavoriteStations))
	features, _ := json.Marshal(orEmpty(profile.PreferredFeatures))
	query := tx.Rebind(`
		INSERT INTO users_preferences (user_id, disability_type, favorite_stations, preferred_features)
		VALUES (?, ?, ?, ?)`)
	if _, err = tx.ExecContext(ctx, query, profile.ID, string(disability), string(favorites), string(features)); err != nil {
		return fmt.Errorf("failed to insert preferences for user %d: %w", profile.ID, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profile %d: %w", profile.ID, err)
	}
	return nil
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// Ping checks that the database is reachable.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}
