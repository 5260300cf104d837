package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of console summaries.
	OutputMode string

	// DatasetFormat represents the file format of written datasets.
	DatasetFormat string

	// DatabaseBackend represents the database backend for caching and storage.
	DatabaseBackend string

	// DiscardReason explains why a ticket was dropped during resolution.
	DiscardReason string
)

// All output modes supported.
const (
	TextOut OutputMode = "text" // default
	CSVOut  OutputMode = "csv"
	JSONOut OutputMode = "json"
)

// All dataset formats supported.
const (
	CSVFormat     DatasetFormat = "csv" // default
	ARFFFormat    DatasetFormat = "arff"
	JSONFormat    DatasetFormat = "json"
	ParquetFormat DatasetFormat = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All discard reasons.
const (
	DiscardNoRelease    DiscardReason = "no_release"    // opening or fixed release missing
	DiscardInconsistent DiscardReason = "inconsistent"  // still inconsistent after adjustment
	DiscardInvalidOrder DiscardReason = "invalid_order" // opening after fixed, or injected not before opening
	DiscardNoCommits    DiscardReason = "no_commits"    // no associated commit
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut: {},
	CSVOut:  {},
	JSONOut: {},
}

// ValidDatasetFormats lists all valid dataset formats.
var ValidDatasetFormats = map[DatasetFormat]struct{}{
	CSVFormat:     {},
	ARFFFormat:    {},
	JSONFormat:    {},
	ParquetFormat: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// AllDiscardReasons lists discard reasons in reporting order.
var AllDiscardReasons = []DiscardReason{DiscardNoRelease, DiscardInconsistent, DiscardInvalidOrder, DiscardNoCommits}

// Extension returns the file extension used for the format.
func (f DatasetFormat) Extension() string {
	return "." + string(f)
}
