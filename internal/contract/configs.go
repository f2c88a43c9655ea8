package contract

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/barriernavi/schema"
)

// Default values for configuration.
const (
	DefaultAPIURL         = "http://localhost:5000/api"
	DefaultAPITimeout     = 5 * time.Second
	DefaultPageSize       = 10
	MaxPageSize           = 100
	DefaultCacheTTL       = time.Hour
	DefaultServerAddr     = ":5000"
	DefaultServerPageSize = 20
)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// Config holds the runtime configuration for the client and server.
// This struct remains the "final, validated" config.
type Config struct {
	APIURL     string
	APITimeout time.Duration
	Category   schema.Category
	Page       int
	PageSize   int
	Output     schema.OutputMode
	OutputFile string
	Width      int  // Terminal width override (0 = auto-detect)
	UseColors  bool // Enable colored labels in table output

	Prefecture string
	Keyword    string
	LineName   string
	Filters    []string
	Sort       schema.SortOrder

	// Weights maps metric key to weight; empty means unweighted scoring
	Weights map[string]float64

	Session schema.Session

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext
	CacheTTL       time.Duration

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	// Thresholds is a mapping of [Category][MetricKey] = Required value
	Thresholds map[schema.Category]map[string]float64

	ServerAddr       string
	StationBackend   schema.DatabaseBackend
	StationDBConnect string // Please use env var as this is plaintext
	ImportFile       string
	ReloadSchedule   string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	APIURL           string `mapstructure:"api-url"`
	APITimeout       string `mapstructure:"api-timeout"`
	Category         string `mapstructure:"category"`
	Output           string `mapstructure:"output"`
	OutputFile       string `mapstructure:"output-file"`
	Width            int    `mapstructure:"width"`
	Color            string `mapstructure:"color"`
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	CacheTTL         string `mapstructure:"cache-ttl"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`
	Username         string `mapstructure:"username"`
	UserID           int64  `mapstructure:"user-id"`
	Guest            bool   `mapstructure:"guest"`
	Weights          string `mapstructure:"weights"`

	// --- Fields from stationsCmd.Flags() ---
	Page       int    `mapstructure:"page"`
	PageSize   int    `mapstructure:"page-size"`
	Prefecture string `mapstructure:"prefecture"`
	Keyword    string `mapstructure:"keyword"`
	Line       string `mapstructure:"line"`
	Filters    string `mapstructure:"filters"`
	Sort       string `mapstructure:"sort"`

	// --- Fields from serveCmd.Flags() ---
	Addr             string `mapstructure:"addr"`
	StationBackend   string `mapstructure:"station-backend"`
	StationDBConnect string `mapstructure:"station-db-connect"`
	ImportFile       string `mapstructure:"import-file"`
	ReloadSchedule   string `mapstructure:"reload-schedule"`

	// --- Metric threshold overrides from config file ---
	Thresholds map[string]map[string]float64 `mapstructure:"thresholds"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Filters != nil {
		clone.Filters = slices.Clone(c.Filters)
	}
	if c.Weights != nil {
		clone.Weights = make(map[string]float64, len(c.Weights))
		maps.Copy(clone.Weights, c.Weights)
	}
	if c.Thresholds != nil {
		clone.Thresholds = make(map[schema.Category]map[string]float64, len(c.Thresholds))
		for category, overrides := range c.Thresholds {
			clone.Thresholds[category] = make(map[string]float64, len(overrides))
			maps.Copy(clone.Thresholds[category], overrides)
		}
	}
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processQueryInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processThresholds(cfg, input); err != nil {
		return err
	}
	processSession(cfg, input)
	return processServerInputs(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ParseWeightsString parses a string like "has_accessible_gate:3,num_slopes:1"
// into a weight map. Semantic checks against a catalog happen in core.
func ParseWeightsString(s string) (map[string]float64, error) {
	weights := make(map[string]float64)

	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, valueStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid weight format '%s', expected 'metric:value'", part)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("invalid weight format '%s', metric key is empty", part)
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(valueStr), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight value '%s' for metric %s: %w", valueStr, key, err)
		}
		weights[key] = value
	}

	return weights, nil
}

// ParseListString splits a comma-separated list, dropping blanks and duplicates.
func ParseListString(s string) []string {
	var items []string
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" && !slices.Contains(items, part) {
			items = append(items, part)
		}
	}
	return items
}

// validateSimpleInputs processes and validates the output and transport fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	cfg.APIURL = strings.TrimRight(strings.TrimSpace(input.APIURL), "/")
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	parsed, err := url.Parse(cfg.APIURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid api-url '%s'. must be an absolute http(s) URL", input.APIURL)
	}

	cfg.APITimeout = DefaultAPITimeout
	if input.APITimeout != "" {
		timeout, err := time.ParseDuration(input.APITimeout)
		if err != nil || timeout <= 0 {
			return fmt.Errorf("invalid api-timeout '%s'. must be a positive duration like 5s", input.APITimeout)
		}
		cfg.APITimeout = timeout
	}

	cfg.Category = schema.Category(strings.ToLower(input.Category))
	if _, ok := schema.ValidCategories[cfg.Category]; !ok {
		return fmt.Errorf("invalid category '%s'. must be body, hearing, vision", input.Category)
	}

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, yaml, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	return nil
}

// processQueryInputs handles the station list search fields.
func processQueryInputs(cfg *Config, input *ConfigRawInput) error {
	if input.PageSize <= 0 || input.PageSize > MaxPageSize {
		return fmt.Errorf("page-size must be greater than 0 and cannot exceed %d (received %d)", MaxPageSize, input.PageSize)
	}
	cfg.PageSize = input.PageSize

	if input.Page < 1 {
		return fmt.Errorf("page must be at least 1 (received %d)", input.Page)
	}
	cfg.Page = input.Page

	cfg.Prefecture = strings.TrimSpace(input.Prefecture)
	cfg.Keyword = strings.TrimSpace(input.Keyword)
	cfg.LineName = strings.TrimSpace(input.Line)
	cfg.Filters = ParseListString(input.Filters)

	cfg.Sort = schema.SortOrder(strings.ToLower(input.Sort))
	if cfg.Sort == "" {
		cfg.Sort = schema.SortNone
	}
	if _, ok := schema.ValidSortOrders[cfg.Sort]; !ok {
		return fmt.Errorf("invalid sort '%s'. must be none, score-asc, score-desc", input.Sort)
	}

	weights, err := ParseWeightsString(input.Weights)
	if err != nil {
		return fmt.Errorf("invalid --weights format: %w", err)
	}
	cfg.Weights = weights

	return nil
}

// validateBackendConfigs validates cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	cfg.CacheTTL = DefaultCacheTTL
	if input.CacheTTL != "" {
		ttl, err := time.ParseDuration(input.CacheTTL)
		if err != nil || ttl < 0 {
			return fmt.Errorf("invalid cache-ttl '%s'. must be a non-negative duration like 1h", input.CacheTTL)
		}
		cfg.CacheTTL = ttl
	}

	// --- History Backend Validation ---
	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if cfg.HistoryBackend == "" {
		return nil
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return err
	}

	// Cache and history must not share one SQLite file
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		historyDBPath := cfg.HistoryDBConnect
		if historyDBPath == "" {
			historyDBPath = GetHistoryDBFilePath()
		}
		if cacheDBPath == historyDBPath {
			return fmt.Errorf("cache and history storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}

	return nil
}

// processThresholds copies per-category threshold overrides from the config file.
// Keys are checked against the catalog by core when the catalog is built.
func processThresholds(cfg *Config, input *ConfigRawInput) error {
	cfg.Thresholds = make(map[schema.Category]map[string]float64)
	for name, overrides := range input.Thresholds {
		category := schema.Category(strings.ToLower(name))
		if _, ok := schema.ValidCategories[category]; !ok {
			return fmt.Errorf("invalid thresholds category '%s'. must be body, hearing, vision", name)
		}
		cfg.Thresholds[category] = make(map[string]float64, len(overrides))
		maps.Copy(cfg.Thresholds[category], overrides)
	}
	return nil
}

// processSession builds the session context from the login flags.
func processSession(cfg *Config, input *ConfigRawInput) {
	cfg.Session = schema.Session{
		Username: strings.TrimSpace(input.Username),
		UserID:   input.UserID,
		Guest:    input.Guest,
		LoggedIn: input.UserID > 0 || input.Guest,
	}
}

// processServerInputs validates the reference server fields.
func processServerInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.ServerAddr = input.Addr
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = DefaultServerAddr
	}
	cfg.ImportFile = input.ImportFile
	cfg.ReloadSchedule = strings.TrimSpace(input.ReloadSchedule)
	if cfg.ReloadSchedule != "" && cfg.ImportFile == "" {
		return fmt.Errorf("reload-schedule requires --import-file")
	}

	cfg.StationBackend = schema.DatabaseBackend(strings.ToLower(input.StationBackend))
	if cfg.StationBackend == "" {
		cfg.StationBackend = schema.SQLiteBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.StationBackend]; !ok || cfg.StationBackend == schema.NoneBackend {
		return fmt.Errorf("invalid station backend '%s'. must be sqlite, mysql, postgresql", input.StationBackend)
	}
	cfg.StationDBConnect = input.StationDBConnect
	return ValidateDatabaseConnectionString(cfg.StationBackend, cfg.StationDBConnect)
}
