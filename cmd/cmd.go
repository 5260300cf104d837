// Package cmd defines the command-line interface for defectset.
package cmd

import (
	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(releasesCmd)
	rootCmd.AddCommand(ticketsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(storeCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the store subcommands to the parent store command
	storeCmd.AddCommand(storeClearCmd)
	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeExportCmd)
	storeCmd.AddCommand(storeMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().StringP("project", "p", "", "JIRA project key (e.g. BOOKKEEPER)")
	rootCmd.PersistentFlags().String("tracker-url", contract.DefaultTrackerURL, "Base URL of the JIRA server")
	rootCmd.PersistentFlags().Int("page-size", contract.DefaultPageSize, "Tickets requested per search page")
	rootCmd.PersistentFlags().Int("retries", contract.DefaultRetries, "Attempts per tracker request before giving up")
	rootCmd.PersistentFlags().String("http-timeout", contract.DefaultHTTPTimeout.String(), "Timeout of a single tracker request")
	rootCmd.PersistentFlags().String("cold-start-projects", "", "Comma-separated reference projects used when local proportion samples are scarce")
	rootCmd.PersistentFlags().Int("proportion-threshold", contract.DefaultProportionThreshold, "Local samples required before the running proportion replaces cold start")
	rootCmd.PersistentFlags().String("source-ext", contract.DefaultSourceExt, "Comma-separated source file extensions")
	rootCmd.PersistentFlags().String("test-dirs", contract.DefaultTestDirs, "Comma-separated path markers of test directories to skip")
	rootCmd.PersistentFlags().String("exclude", "", "Comma-separated list of path prefixes or patterns to ignore")
	rootCmd.PersistentFlags().String("commit-window", "yes", "Only associate fix commits dated between the injected and fixed releases (yes/no)")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Tracker cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("store-backend", "", "Dataset store backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("store-db-connect", "", "Database connection string for the dataset store (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("emoji", "yes", "Prefix progress lines with emojis (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of buildCmd to Viper
	buildCmd.Flags().String("format", string(schema.CSVFormat), "Dataset file format: csv or arff or json or parquet")
	buildCmd.Flags().String("output-dir", contract.DefaultOutputDir, "Directory receiving the dataset files")
	buildCmd.Flags().String("evaluator-cmd", "", "External command evaluating each iteration (receives training and testing paths)")
	if err := viper.BindPFlags(buildCmd.Flags()); err != nil {
		contract.LogFatal("Error binding build flags", err)
	}

	// Bind all flags of storeMigrateCmd to Viper
	storeMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(storeMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding store migrate flags", err)
	}
}
