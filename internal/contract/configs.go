package contract

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/huangsam/defectset/schema"
)

// Default values for configuration.
const (
	DefaultTrackerURL          = "https://issues.apache.org/jira"
	DefaultPageSize            = 1000
	MaxPageSize                = 1000
	DefaultRetries             = 3
	DefaultHTTPTimeout         = 30 * time.Second
	DefaultProportionThreshold = 5
	DefaultSourceExt           = ".java"
	DefaultTestDirs            = "test/"
	DefaultOutputDir           = "dataset"
	DefaultPrecision           = 3
	MaxPrecision               = 6
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// DateFormat is the day-granular representation used for releases.
var DateFormat = time.DateOnly

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration for a dataset build.
// This struct remains the "final, validated" config.
type Config struct {
	RepoPath string
	Project  string

	TrackerURL        string
	PageSize          int
	Retries           int
	HTTPTimeout       time.Duration
	ColdStartProjects []string

	ProportionThreshold int
	SourceExts          []string
	TestDirs            []string
	Excludes            []string
	CommitWindow        bool
	Workers             int

	Format       schema.DatasetFormat
	OutputDir    string
	EvaluatorCmd string

	Output     schema.OutputMode
	OutputFile string
	Precision  int
	Width      int // Terminal width override (0 = auto-detect)

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	StoreBackend   schema.DatabaseBackend
	StoreDBConnect string // Please use env var as this is plaintext

	UseEmojis bool // Enable emojis in output headers
	UseColors bool // Enable colored labels in table output
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	RepoPathStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Project        string `mapstructure:"project"`
	TrackerURL     string `mapstructure:"tracker-url"`
	PageSize       int    `mapstructure:"page-size"`
	Retries        int    `mapstructure:"retries"`
	HTTPTimeout    string `mapstructure:"http-timeout"`
	Workers        int    `mapstructure:"workers"`
	Output         string `mapstructure:"output"`
	OutputFile     string `mapstructure:"output-file"`
	Precision      int    `mapstructure:"precision"`
	Width          int    `mapstructure:"width"`
	CacheBackend   string `mapstructure:"cache-backend"`
	CacheDBConnect string `mapstructure:"cache-db-connect"`
	StoreBackend   string `mapstructure:"store-backend"`
	StoreDBConnect string `mapstructure:"store-db-connect"`
	Emoji          string `mapstructure:"emoji"`
	Color          string `mapstructure:"color"`

	// --- Fields shared by buildCmd and ticketsCmd ---
	ColdStartProjects   string `mapstructure:"cold-start-projects"`
	ProportionThreshold int    `mapstructure:"proportion-threshold"`
	SourceExt           string `mapstructure:"source-ext"`
	TestDirs            string `mapstructure:"test-dirs"`
	Exclude             string `mapstructure:"exclude"`
	CommitWindow        string `mapstructure:"commit-window"`

	// --- Fields from buildCmd.Flags() ---
	Format       string `mapstructure:"format"`
	OutputDir    string `mapstructure:"output-dir"`
	EvaluatorCmd string `mapstructure:"evaluator-cmd"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.ColdStartProjects = cloneStrings(c.ColdStartProjects)
	clone.SourceExts = cloneStrings(c.SourceExts)
	clone.TestDirs = cloneStrings(c.TestDirs)
	clone.Excludes = cloneStrings(c.Excludes)
	return &clone
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct. The repository is resolved only when
// a GitClient is given, so tracker-only commands can pass nil.
func ProcessAndValidate(ctx context.Context, cfg *Config, client GitClient, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processTrackerInputs(cfg, input); err != nil {
		return err
	}
	if err := processDatasetInputs(cfg, input); err != nil {
		return err
	}
	if client == nil {
		return nil
	}
	return resolveGitPath(ctx, cfg, client, input)
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

// validateBackendConfigs validates cache and store backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	cfg.StoreBackend = schema.DatabaseBackend(strings.ToLower(input.StoreBackend))
	if cfg.StoreBackend == "" {
		return nil
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.StoreBackend]; !ok {
		return fmt.Errorf("invalid store backend '%s'. must be sqlite, mysql, postgresql, none", input.StoreBackend)
	}
	cfg.StoreDBConnect = input.StoreDBConnect
	if err := ValidateDatabaseConnectionString(cfg.StoreBackend, cfg.StoreDBConnect); err != nil {
		return err
	}

	// Two SQLite stores cannot share a file
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.StoreBackend == schema.SQLiteBackend {
		cachePath := cfg.CacheDBConnect
		if cachePath == "" {
			cachePath = GetCacheDBFilePath()
		}
		storePath := cfg.StoreDBConnect
		if storePath == "" {
			storePath = GetStoreDBFilePath()
		}
		if cachePath == storePath {
			return fmt.Errorf("cache and dataset storage must use different SQLite database files. Both resolve to %q", cachePath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates console and execution fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	emojis, err := ParseBoolString(input.Emoji)
	if err != nil {
		return fmt.Errorf("invalid --emoji value: %w", err)
	}
	cfg.UseEmojis = emojis

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.Precision < 1 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 1 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", cfg.Output)
	}

	return validateBackendConfigs(cfg, input)
}

// processTrackerInputs validates the issue tracker settings.
func processTrackerInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Project = strings.TrimSpace(input.Project)

	cfg.TrackerURL = strings.TrimRight(strings.TrimSpace(input.TrackerURL), "/")
	if cfg.TrackerURL == "" {
		cfg.TrackerURL = DefaultTrackerURL
	}
	u, err := url.Parse(cfg.TrackerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid tracker url '%s'. must be an absolute http(s) URL", input.TrackerURL)
	}

	if input.PageSize <= 0 || input.PageSize > MaxPageSize {
		return fmt.Errorf("page-size must be greater than 0 and cannot exceed %d (received %d)", MaxPageSize, input.PageSize)
	}
	cfg.PageSize = input.PageSize

	if input.Retries <= 0 {
		return fmt.Errorf("retries must be greater than 0 (received %d)", input.Retries)
	}
	cfg.Retries = input.Retries

	cfg.HTTPTimeout = DefaultHTTPTimeout
	if input.HTTPTimeout != "" {
		d, err := time.ParseDuration(input.HTTPTimeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid http-timeout '%s'. expected a positive duration like 30s", input.HTTPTimeout)
		}
		cfg.HTTPTimeout = d
	}

	cfg.ColdStartProjects = ParseCommaList(input.ColdStartProjects)
	return nil
}

// processDatasetInputs validates labeling and dataset settings.
func processDatasetInputs(cfg *Config, input *ConfigRawInput) error {
	if input.ProportionThreshold <= 0 {
		return fmt.Errorf("proportion-threshold must be greater than 0 (received %d)", input.ProportionThreshold)
	}
	cfg.ProportionThreshold = input.ProportionThreshold

	cfg.SourceExts = nil
	for _, ext := range ParseCommaList(input.SourceExt) {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.SourceExts = append(cfg.SourceExts, ext)
	}
	if len(cfg.SourceExts) == 0 {
		return fmt.Errorf("source-ext must name at least one extension")
	}
	cfg.TestDirs = ParseCommaList(input.TestDirs)
	cfg.Excludes = ParseCommaList(input.Exclude)

	window, err := ParseBoolString(input.CommitWindow)
	if err != nil {
		return fmt.Errorf("invalid --commit-window value: %w", err)
	}
	cfg.CommitWindow = window

	cfg.Format = schema.DatasetFormat(strings.ToLower(input.Format))
	if _, ok := schema.ValidDatasetFormats[cfg.Format]; !ok {
		return fmt.Errorf("invalid dataset format '%s'. must be csv, arff, json, parquet", input.Format)
	}
	cfg.OutputDir = input.OutputDir
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	cfg.EvaluatorCmd = strings.TrimSpace(input.EvaluatorCmd)
	return nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

// RequireProject returns an error when no tracker project was configured.
func (c *Config) RequireProject() error {
	if c.Project == "" {
		return fmt.Errorf("a project key is required (use --project or DEFECTSET_PROJECT)")
	}
	return nil
}

// resolveGitPath resolves the Git repository root from the positional argument.
func resolveGitPath(ctx context.Context, cfg *Config, client GitClient, input *ConfigRawInput) error {
	searchPath := input.RepoPathStr
	if searchPath == "" {
		searchPath = "."
	}
	absSearchPath, err := filepath.Abs(searchPath)
	if err != nil {
		return err
	}
	absSearchPath = filepath.Clean(absSearchPath)

	gitContextPath := absSearchPath
	if info, statErr := os.Stat(absSearchPath); statErr == nil && !info.IsDir() {
		gitContextPath = filepath.Dir(absSearchPath)
	}

	gitRoot, err := client.GetRepoRoot(ctx, gitContextPath)
	if err != nil {
		return err
	}
	cfg.RepoPath = gitRoot
	return nil
}
