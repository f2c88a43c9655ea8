package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/internal/iocache"
	"github.com/huangsam/barriernavi/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyBackendConfig reads and validates the history store settings.
func historyBackendConfig() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}

	backendStr := viper.GetString("history-backend")
	connStr := viper.GetString("history-db-connect")

	// Handle empty backend as NoneBackend
	backend := schema.NoneBackend
	if backendStr != "" {
		backend = schema.DatabaseBackend(backendStr)
	}

	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// historySetup loads minimal configuration needed for history operations.
func historySetup() error {
	backend, connStr, err := historyBackendConfig()
	if err != nil {
		return err
	}

	// Initialize stores with the loaded config (no response caching for history commands)
	if err := iocache.InitCaching("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")

	return nil
}

// historySetupWrapper wraps historySetup to provide PreRunE for history commands.
func historySetupWrapper(_ *cobra.Command, _ []string) error {
	return historySetup()
}

// historyMigrateSetup loads the configuration needed for migrations.
// It does NOT open the store, so migrations can run on a fresh database.
func historyMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := historyBackendConfig()
	if err != nil {
		return err
	}

	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetHistoryDBFilePath()
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr

	return nil
}

// historyCmd focused on lookup history management.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage lookup history tracking and exports",
	Long: `Manage the history of station lookups.

When enabled with --history-backend, Barrier Navi records:
- Every lookup (category, query, result count, duration, user)
- The score of every station shown

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, default)

Subcommands:
  status  - Show history statistics
  export  - Export history to Parquet
  clear   - Remove all history
  migrate - Run database schema migrations

Examples:
  # Check history status
  barriernavi history status --history-backend sqlite

  # Export for analysis in pandas/DuckDB
  barriernavi history export --history-backend sqlite --output-file history`,
}

// historyClearCmd clears the lookup history.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded lookups",
	Long: `Delete all recorded lookups and station scores.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  barriernavi history export --output-file backup
  barriernavi history clear`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearHistory(cfg.HistoryBackend, contract.GetHistoryDBFilePath(), cfg.HistoryDBConnect); err != nil {
			contract.LogFatal("Failed to clear history", err)
		}
		fmt.Println("History cleared successfully.")
	},
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display history statistics and connection details",
	Long: `Show detailed information about lookup history tracking.

Displays:
- Backend type and connection status
- Total number of lookups and recorded scores
- Last and oldest lookup timestamps

Examples:
  barriernavi history status`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetHistoryStore()
		if store == nil {
			contract.LogFatal("Failed to get history status", fmt.Errorf("lookup history is disabled"))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get history status", err)
		}
		iocache.PrintHistoryStatus(os.Stdout, status)
	},
}

// historyExportCmd exports the lookup history to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export lookup history to Parquet",
	Long: `Export all recorded lookups to Parquet for analytics tools.

Exports two datasets:
- <output-file>.lookups.parquet - one row per lookup
- <output-file>.lookup_scores.parquet - one row per station shown in a lookup

Requires: --output-file parameter

Examples:
  barriernavi history export --output-file history
  duckdb -c "SELECT * FROM read_parquet('history.lookups.parquet') LIMIT 10"`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExecuteHistoryExport(os.Stdout, cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export history", err)
		}
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the lookup history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  barriernavi history migrate --history-backend postgresql --history-db-connect "..."

  # Rollback to the initial state
  barriernavi history migrate --target-version 0`,
	PreRunE: historyMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		summary, err := iocache.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion)
		if err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
		fmt.Println(summary)
	},
}
