// Package cmd defines the command-line interface for barriernavi.
package cmd

import (
	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(stationsCmd)
	rootCmd.AddCommand(stationCmd)
	rootCmd.AddCommand(prefecturesCmd)
	rootCmd.AddCommand(linesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("api-url", contract.DefaultAPIURL, "Base URL of the station accessibility API")
	rootCmd.PersistentFlags().String("api-timeout", contract.DefaultAPITimeout.String(), "Timeout for each API request")
	rootCmd.PersistentFlags().StringP("category", "c", string(schema.BodyCategory), "Accessibility category: body or hearing or vision")
	rootCmd.PersistentFlags().Int("page-size", contract.DefaultPageSize, "Number of stations per page")
	rootCmd.PersistentFlags().String("weights", "", "Per-metric weights (format: 'has_accessible_gate:3,num_slopes:1')")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or yaml or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Response cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("cache-ttl", contract.DefaultCacheTTL.String(), "How long cached responses stay fresh (0 disables caching)")
	rootCmd.PersistentFlags().String("history-backend", "", "Lookup history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for lookup history (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("username", "", "Name of the logged-in user")
	rootCmd.PersistentFlags().Int64("user-id", 0, "ID of the logged-in user, used to read profile preferences")
	rootCmd.PersistentFlags().Bool("guest", false, "Browse as a guest without profile preferences")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Search flags are bound when the command runs
	addSearchFlags(stationsCmd)
	stationsCmd.Flags().IntP("page", "p", 1, "Page number to show")
	addSearchFlags(browseCmd)

	// Flags of the reference server commands are bound when the command runs
	addStationStoreFlags(serveCmd)
	serveCmd.Flags().String("addr", contract.DefaultServerAddr, "Address the API server listens on")
	serveCmd.Flags().String("import-file", "", "Station CSV to load before serving")
	serveCmd.Flags().String("reload-schedule", "", "Cron schedule for re-importing --import-file (e.g., '@daily')")
	addStationStoreFlags(importCmd)

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}

// addSearchFlags defines the station search flags.
func addSearchFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("prefecture", "", "Only stations in this prefecture (exact name, e.g. 東京都)")
	flags.StringP("keyword", "k", "", "Only stations whose name contains this text")
	flags.String("line", "", "Only stations on this line")
	flags.StringP("filters", "f", "", "Comma-separated metric keys that must be met")
	flags.String("sort", string(schema.SortNone), "Sort order: none or score-desc or score-asc")
}

// addStationStoreFlags defines the flags that locate the reference station database.
func addStationStoreFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("station-backend", string(schema.SQLiteBackend), "Station database backend: sqlite or mysql or postgresql")
	flags.String("station-db-connect", "", "Station database connection string (default ~/.barriernavi_stations.db for sqlite)")
}
