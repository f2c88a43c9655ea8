package iocache

import (
	"database/sql"
	"fmt"

	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/schema"
	"github.com/jmoiron/sqlx"
)

// Table names for lookup history.
const (
	lookupsTable      = "barriernavi_lookups"
	lookupScoresTable = "barriernavi_lookup_scores"
)

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db         *sql.DB
	backend    schema.DatabaseBackend
	driverName string
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore creates a new HistoryStore with the specified backend.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled tracking
		return &HistoryStoreImpl{backend: backend}, nil
	}

	driverName, err := driverFor(backend)
	if err != nil {
		return nil, err
	}
	db, err := openDB(backend, connStr, GetHistoryDBFilePath())
	if err != nil {
		return nil, err
	}

	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}

	return &HistoryStoreImpl{db: db, backend: backend, driverName: driverName}, nil
}

// createHistoryTables creates the lookup history tables.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	tables := []struct {
		name  string
		query string
	}{
		{lookupsTable, getCreateLookupsQuery(backend)},
		{lookupScoresTable, getCreateLookupScoresQuery(backend)},
	}

	for _, table := range tables {
		if _, err := db.Exec(table.query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
	}
	return nil
}

// getCreateLookupsQuery returns the CREATE TABLE query for barriernavi_lookups.
func getCreateLookupsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(lookupsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				lookup_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				start_time DATETIME(6) NOT NULL,
				category VARCHAR(16) NOT NULL,
				lookup_kind VARCHAR(16) NOT NULL,
				query_params TEXT NOT NULL,
				result_count INT NOT NULL,
				duration_ms INT NOT NULL,
				username VARCHAR(100)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				lookup_id BIGSERIAL PRIMARY KEY,
				start_time TIMESTAMPTZ NOT NULL,
				category TEXT NOT NULL,
				lookup_kind TEXT NOT NULL,
				query_params TEXT NOT NULL,
				result_count INT NOT NULL,
				duration_ms INT NOT NULL,
				username TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				lookup_id INTEGER PRIMARY KEY AUTOINCREMENT,
				start_time TEXT NOT NULL,
				category TEXT NOT NULL,
				lookup_kind TEXT NOT NULL,
				query_params TEXT NOT NULL,
				result_count INTEGER NOT NULL,
				duration_ms INTEGER NOT NULL,
				username TEXT
			);
		`, quotedTableName)
	}
}

// getCreateLookupScoresQuery returns the CREATE TABLE query for barriernavi_lookup_scores.
func getCreateLookupScoresQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(lookupScoresTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				lookup_id BIGINT NOT NULL,
				station_id BIGINT NOT NULL,
				station_name VARCHAR(255) NOT NULL,
				lookup_time DATETIME(6) NOT NULL,
				met_items INT NOT NULL,
				total_items INT NOT NULL,
				percentage INT NOT NULL,
				score_label VARCHAR(50) NOT NULL,
				PRIMARY KEY (lookup_id, station_id)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				lookup_id BIGINT NOT NULL,
				station_id BIGINT NOT NULL,
				station_name TEXT NOT NULL,
				lookup_time TIMESTAMPTZ NOT NULL,
				met_items INT NOT NULL,
				total_items INT NOT NULL,
				percentage INT NOT NULL,
				score_label TEXT NOT NULL,
				PRIMARY KEY (lookup_id, station_id)
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				lookup_id INTEGER NOT NULL,
				station_id INTEGER NOT NULL,
				station_name TEXT NOT NULL,
				lookup_time TEXT NOT NULL,
				met_items INTEGER NOT NULL,
				total_items INTEGER NOT NULL,
				percentage INTEGER NOT NULL,
				score_label TEXT NOT NULL,
				PRIMARY KEY (lookup_id, station_id)
			);
		`, quotedTableName)
	}
}

// rebind converts ? placeholders to the backend's bind style.
func (hs *HistoryStoreImpl) rebind(query string) string {
	return sqlx.Rebind(sqlx.BindType(hs.driverName), query)
}

// RecordLookup stores a lookup and the station scores it returned in one transaction.
func (hs *HistoryStoreImpl) RecordLookup(lookup schema.LookupRecord, scores []schema.LookupScoreRecord) (int64, error) {
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return 0, nil
	}

	tx, err := hs.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin lookup transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertLookup := hs.rebind(fmt.Sprintf(`INSERT INTO %s (start_time, category, lookup_kind, query_params, result_count, duration_ms, username)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, quoteTableName(lookupsTable, hs.backend)))
	args := []any{
		formatTime(lookup.StartTime, hs.backend), lookup.Category, lookup.Kind, lookup.Query,
		lookup.ResultCount, lookup.DurationMs, lookup.Username,
	}

	var lookupID int64
	switch hs.backend {
	case schema.PostgreSQLBackend:
		err = tx.QueryRow(insertLookup+" RETURNING lookup_id", args...).Scan(&lookupID)
	default: // SQLite and MySQL
		var result sql.Result
		result, err = tx.Exec(insertLookup, args...)
		if err == nil {
			lookupID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert lookup: %w", err)
	}

	insertScore := hs.rebind(fmt.Sprintf(`INSERT INTO %s (lookup_id, station_id, station_name, lookup_time, met_items, total_items, percentage, score_label)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, quoteTableName(lookupScoresTable, hs.backend)))
	for _, score := range scores {
		if _, err := tx.Exec(insertScore,
			lookupID, score.StationID, score.StationName, formatTime(score.LookupTime, hs.backend),
			score.MetItems, score.TotalItems, score.Percentage, score.Label,
		); err != nil {
			return 0, fmt.Errorf("failed to insert score for station %d: %w", score.StationID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit lookup: %w", err)
	}
	return lookupID, nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return status, nil
	}

	quotedLookups := quoteTableName(lookupsTable, hs.backend)
	if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedLookups)).Scan(&status.TotalLookups); err != nil {
		return status, fmt.Errorf("failed to get total lookups: %w", err)
	}

	if status.TotalLookups > 0 {
		last := timeScanner{backend: hs.backend}
		row := hs.db.QueryRow(fmt.Sprintf("SELECT lookup_id, start_time FROM %s ORDER BY lookup_id DESC LIMIT 1", quotedLookups))
		if err := row.Scan(&status.LastLookupID, last.dest()); err != nil {
			return status, fmt.Errorf("failed to get last lookup: %w", err)
		}
		lastTime, err := last.value()
		if err != nil {
			return status, fmt.Errorf("failed to parse last lookup time: %w", err)
		}
		status.LastLookupTime = lastTime

		oldest := timeScanner{backend: hs.backend}
		row = hs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY lookup_id ASC LIMIT 1", quotedLookups))
		if err := row.Scan(oldest.dest()); err != nil {
			return status, fmt.Errorf("failed to get oldest lookup: %w", err)
		}
		oldestTime, err := oldest.value()
		if err != nil {
			return status, fmt.Errorf("failed to parse oldest lookup time: %w", err)
		}
		status.OldestLookupTime = oldestTime
	}

	for _, table := range []string{lookupsTable, lookupScoresTable} {
		var count int64
		if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, hs.backend))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TotalScores = int(status.TableSizes[lookupScoresTable])

	return status, nil
}

// GetAllLookups retrieves all lookups from the store.
func (hs *HistoryStoreImpl) GetAllLookups() ([]schema.LookupRecord, error) {
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT lookup_id, start_time, category, lookup_kind, query_params, result_count, duration_ms, username
		FROM %s ORDER BY lookup_id`, quoteTableName(lookupsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query lookups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.LookupRecord
	for rows.Next() {
		var record schema.LookupRecord
		var username sql.NullString
		start := timeScanner{backend: hs.backend}
		if err := rows.Scan(&record.LookupID, start.dest(), &record.Category, &record.Kind, &record.Query,
			&record.ResultCount, &record.DurationMs, &username); err != nil {
			return nil, fmt.Errorf("failed to scan lookup: %w", err)
		}
		if record.StartTime, err = start.value(); err != nil {
			return nil, fmt.Errorf("failed to parse start_time: %w", err)
		}
		if username.Valid {
			record.Username = &username.String
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lookups: %w", err)
	}
	return results, nil
}

// GetAllLookupScores retrieves all recorded station scores from the store.
func (hs *HistoryStoreImpl) GetAllLookupScores() ([]schema.LookupScoreRecord, error) {
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT lookup_id, station_id, station_name, lookup_time, met_items, total_items, percentage, score_label
		FROM %s ORDER BY lookup_id, station_id`, quoteTableName(lookupScoresTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query lookup scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.LookupScoreRecord
	for rows.Next() {
		var record schema.LookupScoreRecord
		lookupTime := timeScanner{backend: hs.backend}
		if err := rows.Scan(&record.LookupID, &record.StationID, &record.StationName, lookupTime.dest(),
			&record.MetItems, &record.TotalItems, &record.Percentage, &record.Label); err != nil {
			return nil, fmt.Errorf("failed to scan lookup score: %w", err)
		}
		if record.LookupTime, err = lookupTime.value(); err != nil {
			return nil, fmt.Errorf("failed to parse lookup_time: %w", err)
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lookup scores: %w", err)
	}
	return results, nil
}
