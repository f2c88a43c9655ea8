package iocache

import (
	"testing"
	"time"

	"github.com/huangsam/barriernavi/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValidateTableName tests the validateTableName function with various inputs.
func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name      string
		tableName string
		wantErr   bool
	}{
		{name: "valid simple name", tableName: "response_cache", wantErr: false},
		{name: "valid name with numbers", tableName: "cache_2024", wantErr: false},
		{name: "valid name starting with underscore", tableName: "_cache", wantErr: false},
		{name: "valid mixed case", tableName: "ResponseCache_1", wantErr: false},
		{name: "empty name", tableName: "", wantErr: true},
		{name: "starts with number", tableName: "1cache", wantErr: true},
		{name: "contains dash", tableName: "response-cache", wantErr: true},
		{name: "contains space", tableName: "response cache", wantErr: true},
		{name: "sql injection attempt", tableName: "cache'; DROP TABLE users; --", wantErr: true},
		{name: "contains dot", tableName: "main.cache", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTableName(tt.tableName)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestQuoteTableName tests the quoteTableName function for all backends.
func TestQuoteTableName(t *testing.T) {
	tests := []struct {
		backend schema.DatabaseBackend
		want    string
	}{
		{schema.SQLiteBackend, `"stations"`},
		{schema.MySQLBackend, "`stations`"},
		{schema.PostgreSQLBackend, `"stations"`},
		{schema.NoneBackend, `"stations"`},
	}

	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			assert.Equal(t, tt.want, quoteTableName("stations", tt.backend))
		})
	}
}

func TestDriverFor(t *testing.T) {
	for backend, want := range map[schema.DatabaseBackend]string{
		schema.SQLiteBackend:     "sqlite",
		schema.MySQLBackend:      "mysql",
		schema.PostgreSQLBackend: "pgx",
	} {
		got, err := driverFor(backend)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := driverFor(schema.NoneBackend)
	assert.Error(t, err)
}

func TestNormalizeMySQLDSN(t *testing.T) {
	dsn, err := normalizeMySQLDSN("user:pass@tcp(localhost:3306)/navi", true)
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "multiStatements=true")

	dsn, err = normalizeMySQLDSN("user:pass@tcp(localhost:3306)/navi", false)
	require.NoError(t, err)
	assert.NotContains(t, dsn, "multiStatements")

	_, err = normalizeMySQLDSN("not a dsn", false)
	assert.Error(t, err)
}

func TestTimeScanner(t *testing.T) {
	now := time.Date(2024, 4, 1, 9, 30, 0, 123, time.UTC)

	sqlite := timeScanner{backend: schema.SQLiteBackend}
	*(sqlite.dest().(*string)) = formatTime(now, schema.SQLiteBackend).(string)
	got, err := sqlite.value()
	require.NoError(t, err)
	assert.True(t, now.Equal(got))

	pg := timeScanner{backend: schema.PostgreSQLBackend}
	*(pg.dest().(*time.Time)) = now
	got, err = pg.value()
	require.NoError(t, err)
	assert.Equal(t, now, got)
}
