package schema

// Custom string types for type safety.
type (
	// Category represents an accessibility category (body, hearing, vision).
	Category string

	// ValueKind represents how a metric value is measured.
	ValueKind string

	// SortOrder represents the ordering applied to a station list.
	SortOrder string

	// ViewState represents what a presenter screen is currently showing.
	ViewState string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for caching.
	DatabaseBackend string
)

// All accessibility categories supported.
const (
	BodyCategory    Category = "body" // default
	HearingCategory Category = "hearing"
	VisionCategory  Category = "vision"
)

// All metric value kinds supported.
const (
	FlagKind  ValueKind = "flag"
	CountKind ValueKind = "count"
	RatioKind ValueKind = "ratio"
)

// All sort orders supported.
const (
	SortNone      SortOrder = "none" // default
	SortScoreAsc  SortOrder = "score-asc"
	SortScoreDesc SortOrder = "score-desc"
)

// All view states a presenter can be in.
const (
	LoadingState ViewState = "loading"
	EmptyState   ViewState = "empty"
	ErrorState   ViewState = "error"
	ResultsState ViewState = "results"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	YAMLOut    OutputMode = "yaml"
	ParquetOut OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// AllCategories returns every category in display order.
var AllCategories = []Category{BodyCategory, HearingCategory, VisionCategory}

// ValidCategories lists all valid categories.
var ValidCategories = map[Category]struct{}{
	BodyCategory:    {},
	HearingCategory: {},
	VisionCategory:  {},
}

// ValidSortOrders lists all valid sort orders.
var ValidSortOrders = map[SortOrder]struct{}{
	SortNone:      {},
	SortScoreAsc:  {},
	SortScoreDesc: {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	YAMLOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}
