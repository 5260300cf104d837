package contract

import (
	"testing"
)

// FuzzIsSourceFile fuzzes the snapshot filter with random paths and patterns.
func FuzzIsSourceFile(f *testing.F) {
	seeds := []struct {
		path     string
		excludes string // comma-separated
		testDirs string
	}{
		{"src/Main.java", "*.log", "test/"},
		{"vendor/pkg/File.java", "vendor/", "test/"},
		{"src/test/ATest.java", "", "test/"},
		{"", "", ""},
		{"very/long/path/to/File.java", "**/temp/**", "/it/"},
	}
	for _, seed := range seeds {
		f.Add(seed.path, seed.excludes, seed.testDirs)
	}

	f.Fuzz(func(_ *testing.T, path string, excludesStr string, testDirsStr string) {
		cfg := &Config{
			SourceExts: []string{".java"},
			TestDirs:   ParseCommaList(testDirsStr),
			Excludes:   ParseCommaList(excludesStr),
		}
		_ = IsSourceFile(path, cfg)
	})
}
