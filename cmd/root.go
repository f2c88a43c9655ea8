package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/barriernavi/internal/apiclient"
	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/internal/iocache"
	"github.com/huangsam/barriernavi/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// cacheManager is the global persistence manager instance.
var cacheManager contract.CacheManager = iocache.Manager

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "barriernavi",
	Short:              "Look up the accessibility of train stations in Japan.",
	Long:               `Barrier Navi scores Japanese train stations against body, hearing and vision accessibility criteria.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Check if a specific config file is provided
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".barriernavi")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("BARRIERNAVI")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Set defaults in Viper
	viper.SetDefault("api-url", contract.DefaultAPIURL)
	viper.SetDefault("api-timeout", contract.DefaultAPITimeout.String())
	viper.SetDefault("category", schema.BodyCategory)
	viper.SetDefault("page", 1)
	viper.SetDefault("page-size", contract.DefaultPageSize)
	viper.SetDefault("sort", schema.SortNone)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("color", "yes")
	viper.SetDefault("cache-backend", schema.SQLiteBackend)
	viper.SetDefault("cache-db-connect", "")
	viper.SetDefault("cache-ttl", contract.DefaultCacheTTL.String())
	viper.SetDefault("history-backend", "")
	viper.SetDefault("history-db-connect", "")
	viper.SetDefault("addr", contract.DefaultServerAddr)
	viper.SetDefault("station-backend", schema.SQLiteBackend)
}

// loadConfigFile reads the config file if one exists.
func loadConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// resolveConfig merges every config source for cmd and validates the result into cfg.
func resolveConfig(cmd *cobra.Command) error {
	// 1. Bind the flags of the running command. Subcommands share flag
	// names such as --station-backend, so binding happens per run.
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	// 2. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 3. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 4. Run all validation and complex parsing.
	return contract.ProcessAndValidate(cfg, input)
}

// sharedSetup resolves config and opens the response cache and lookup history.
func sharedSetup(_ context.Context, cmd *cobra.Command, _ []string) error {
	if err := resolveConfig(cmd); err != nil {
		return err
	}

	cacheBackend := cfg.CacheBackend
	if cfg.CacheTTL == 0 {
		cacheBackend = ""
	}
	if err := iocache.InitCaching(cacheBackend, cfg.CacheDBConnect, cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// configSetupWrapper resolves config without opening any store.
func configSetupWrapper(cmd *cobra.Command, _ []string) error {
	return resolveConfig(cmd)
}

// newStationAPI returns the remote API client for the validated config.
func newStationAPI() contract.StationAPI {
	return apiclient.NewConfiguredClient(cfg)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetCacheManager sets the global cache manager.
func SetCacheManager(mgr contract.CacheManager) {
	cacheManager = mgr
}
