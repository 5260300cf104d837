package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/internal/iocache"
	"github.com/huangsam/defectset/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// storeBackendFromConfig reads and validates the dataset store backend.
// An empty backend is treated as NoneBackend.
func storeBackendFromConfig() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}
	backend := schema.NoneBackend
	if b := viper.GetString("store-backend"); b != "" {
		backend = schema.DatabaseBackend(b)
	}
	connStr := viper.GetString("store-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// storeSetup loads minimal configuration needed for dataset store operations.
func storeSetup() error {
	backend, connStr, err := storeBackendFromConfig()
	if err != nil {
		return err
	}

	// No tracker cache for store commands
	if err := iocache.InitStores("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize dataset store: %w", err)
	}

	cfg.StoreBackend = backend
	cfg.StoreDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// storeSetupWrapper wraps storeSetup to provide PreRunE for store commands.
func storeSetupWrapper(_ *cobra.Command, _ []string) error {
	return storeSetup()
}

// storeMigrateSetupWrapper reads the store backend without opening the store,
// so migrations can run against a fresh database.
func storeMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	backend, connStr, err := storeBackendFromConfig()
	if err != nil {
		return err
	}
	cfg.StoreBackend = backend
	cfg.StoreDBConnect = connStr
	return nil
}

// storeCmd focused on dataset store management.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the dataset store of past builds",
	Long: `Manage the dataset store that records every build: its configuration,
per-release file metrics, resolved tickets and evaluation results.

The store is enabled with --store-backend (or DEFECTSET_STORE_BACKEND).

Subcommands:
  status  - Show store statistics and connection info
  clear   - Remove all stored runs
  export  - Write every table to Parquet files
  migrate - Upgrade or downgrade the store schema`,
}

// storeClearCmd clears the dataset store.
var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored build runs",
	Long: `Delete every stored build run from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the store tables

Examples:
  # Export before clearing
  defectset store export --output-file backup
  defectset store clear`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		iocache.CloseStores()
		if err := iocache.ClearStore(cfg.StoreBackend, contract.GetStoreDBFilePath(), cfg.StoreDBConnect); err != nil {
			contract.LogFatal("Failed to clear dataset store", err)
		}
		fmt.Println("Dataset store cleared successfully.")
	},
}

// storeStatusCmd shows dataset store status.
var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display dataset store statistics and connection details",
	Long: `Show detailed information about recorded builds.

Displays:
- Backend type and connection status
- Total number of runs stored
- Last and oldest run timestamps
- Total file rows and evaluations
- Row counts per table

Examples:
  defectset store status --store-backend sqlite`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetDatasetStore()
		if store == nil {
			contract.LogFatal("Failed to get store status", fmt.Errorf("store backend is not configured"))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get store status", err)
		}
		iocache.PrintStoreStatus(os.Stdout, status)
	},
}

// storeExportCmd exports the dataset store to Parquet files.
var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored builds to Parquet for analytics tools",
	Long: `Export all stored builds to Parquet files named <output-file>.<table>.parquet.

Exports four tables:
- runs - metadata about each build
- file_metrics - per-release file metrics and labels
- tickets - resolved tickets of each build
- evaluations - forwarded evaluation records

Requires: --output-file parameter

Examples:
  defectset store export --output-file defectset-data
  duckdb -c "SELECT * FROM read_parquet('defectset-data.file_metrics.parquet') LIMIT 10"`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExportStore(os.Stdout, iocache.Manager.GetDatasetStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export dataset store", err)
		}
	},
}

// storeMigrateCmd runs database migrations for the dataset store.
var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the dataset store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  defectset store migrate --store-backend sqlite

  # Rollback everything
  defectset store migrate --store-backend sqlite --target-version 0`,
	PreRunE: storeMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		result, err := iocache.MigrateStore(cfg.StoreBackend, cfg.StoreDBConnect, targetVersion)
		if err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
		if !result.Changed {
			fmt.Printf("Schema already at version %d.\n", result.To)
			return
		}
		fmt.Printf("Migrated schema from version %d to %d.\n", result.From, result.To)
	},
}
