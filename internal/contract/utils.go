package contract

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Label constants.
const (
	BuggyValue = "Buggy" // Buggy value
	CleanValue = "Clean" // Clean value

	DatasetYes = "yes" // buggy class value in dataset files
	DatasetNo  = "no"  // clean class value in dataset files
)

// Color variables for console output.
var (
	BuggyColor   = color.New(color.FgRed, color.Bold) // BuggyColor represents a defective file.
	CleanColor   = color.New(color.FgCyan)            // CleanColor represents a file without known defects.
	DiscardColor = color.New(color.FgYellow)          // DiscardColor highlights dropped tickets.
)

// GetPlainLabel returns a plain text label for a buggy flag.
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(buggy bool) string {
	if buggy {
		return BuggyValue
	}
	return CleanValue
}

// GetDatasetLabel returns the class value written to dataset files.
func GetDatasetLabel(buggy bool) string {
	if buggy {
		return DatasetYes
	}
	return DatasetNo
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(buggy bool) string {
	if buggy {
		return BuggyColor.Sprint(BuggyValue)
	}
	return CleanColor.Sprint(CleanValue)
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// ShouldIgnore returns true if the given path matches any of the exclude patterns.
// It supports simple glob patterns (using filepath.Match) when the pattern
// contains wildcard characters (*, ?, [ ]). Patterns ending with '/' are treated
// as prefixes. Patterns starting with '.' are treated as suffix (extension) matches.
func ShouldIgnore(path string, excludes []string) bool {
	for _, ex := range excludes {
		ex = strings.TrimSpace(ex)
		if ex == "" {
			continue
		}

		if strings.ContainsAny(ex, "*?[") {
			pat := strings.ReplaceAll(ex, "**", "*")
			if ok, err := filepath.Match(pat, path); err == nil && ok {
				return true
			}
			if ok, err := filepath.Match(pat, filepath.Base(path)); err == nil && ok {
				return true
			}
			continue
		}

		switch {
		case strings.HasSuffix(ex, "/"):
			if strings.HasPrefix(path, ex) {
				return true
			}
		case strings.HasPrefix(ex, "."):
			if strings.HasSuffix(path, ex) {
				return true
			}
		case strings.Contains(path, ex):
			return true
		}
	}
	return false
}

// InTestDir reports whether any directory of p matches a test directory marker.
// A marker like "test/" matches a directory named "test" at any depth.
func InTestDir(p string, markers []string) bool {
	dir := "/" + path.Dir(p) + "/"
	for _, m := range markers {
		m = strings.Trim(strings.TrimSpace(m), "/")
		if m == "" {
			continue
		}
		if strings.Contains(dir, "/"+m+"/") {
			return true
		}
	}
	return false
}

// IsSourceFile reports whether a repository path belongs in a release snapshot.
func IsSourceFile(p string, cfg *Config) bool {
	matched := false
	for _, ext := range cfg.SourceExts {
		if strings.HasSuffix(p, ext) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	if InTestDir(p, cfg.TestDirs) {
		return false
	}
	return !ShouldIgnore(p, cfg.Excludes)
}

// ParseCommaList splits a comma-separated value, trimming blanks.
func ParseCommaList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for tracker cache storage.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".defectset_cache.db"
	}
	return filepath.Join(homeDir, ".defectset_cache.db")
}

// GetStoreDBFilePath returns the path to the SQLite DB file for dataset storage.
func GetStoreDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".defectset_store.db"
	}
	return filepath.Join(homeDir, ".defectset_store.db")
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to leave room for the "..." prefix.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
