package iocache

import (
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/barriernavi/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"             // SQLite driver
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validateTableName validates that the table name is a safe SQL identifier.
// It ensures the name consists only of alphanumeric characters and underscores,
// starting with a letter or underscore, to prevent SQL injection.
func validateTableName(name string) error {
	if name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("invalid table name: %s (must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$)", name)
	}
	return nil
}

// quoteTableName returns the properly quoted table name for the given backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf("`%s`", name)
	default: // SQLite and PostgreSQL
		return fmt.Sprintf("\"%s\"", name)
	}
}

// driverFor returns the database/sql driver name registered for a backend.
func driverFor(backend schema.DatabaseBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "sqlite", nil
	case schema.MySQLBackend:
		return "mysql", nil
	case schema.PostgreSQLBackend:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported backend: %s", backend)
	}
}

// openDB opens and pings a database for backend. An empty SQLite connection
// string falls back to defaultPath.
func openDB(backend schema.DatabaseBackend, connStr, defaultPath string) (*sql.DB, error) {
	driverName, err := driverFor(backend)
	if err != nil {
		return nil, err
	}
	switch backend {
	case schema.SQLiteBackend:
		if connStr == "" {
			connStr = defaultPath
		}
	case schema.MySQLBackend:
		if connStr, err = normalizeMySQLDSN(connStr, false); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", backend, err)
	}
	if backend == schema.SQLiteBackend {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		var connDetail string
		switch backend {
		case schema.MySQLBackend:
			connDetail = "Check that MySQL is running. Connection format: user:password@tcp(host:port)/dbname"
		case schema.PostgreSQLBackend:
			connDetail = "Check that PostgreSQL is running. Connection format: host=localhost port=5432 user=postgres dbname=mydb"
		default:
			connDetail = "Ensure the directory is writable."
		}
		return nil, fmt.Errorf("failed to connect to %s database: %w. %s", backend, err, connDetail)
	}
	return db, nil
}

// OpenSQLX opens a database the same way the cache and history stores do and
// wraps it for struct scanning and placeholder rebinding.
func OpenSQLX(backend schema.DatabaseBackend, connStr, defaultPath string) (*sqlx.DB, error) {
	driverName, err := driverFor(backend)
	if err != nil {
		return nil, err
	}
	db, err := openDB(backend, connStr, defaultPath)
	if err != nil {
		return nil, err
	}
	return sqlx.NewDb(db, driverName), nil
}

// normalizeMySQLDSN enables time parsing, and multi-statement execution when
// migrations need it.
func normalizeMySQLDSN(connStr string, multiStatements bool) (string, error) {
	cfg, err := mysql.ParseDSN(connStr)
	if err != nil {
		return "", fmt.Errorf("invalid MySQL connection string: %w. Expected user:password@tcp(host:port)/dbname", err)
	}
	cfg.ParseTime = true
	cfg.MultiStatements = cfg.MultiStatements || multiStatements
	return cfg.FormatDSN(), nil
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	switch backend {
	case schema.SQLiteBackend:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return t
	}
}

// timeScanner scans a time column regardless of whether the backend stores it
// natively or as RFC 3339 text.
type timeScanner struct {
	backend schema.DatabaseBackend
	text    string
	native  time.Time
}

func (ts *timeScanner) dest() any {
	if ts.backend == schema.SQLiteBackend {
		return &ts.text
	}
	return &ts.native
}

func (ts *timeScanner) value() (time.Time, error) {
	if ts.backend != schema.SQLiteBackend {
		return ts.native, nil
	}
	return time.Parse(time.RFC3339Nano, ts.text)
}
