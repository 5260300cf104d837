package contract

import (
	"fmt"
	"os"
	"path/filepath"
)

// LogBuildHeader prints a concise, 2-line header for a dataset build.
func LogBuildHeader(cfg *Config) {
	repoName := filepath.Base(cfg.RepoPath)
	if repoName == "" || repoName == "." {
		repoName = "current"
	}
	LogPhase(cfg, "🔎", "Project: %s (Repo: %s)", cfg.Project, repoName)
	LogPhase(cfg, "🧪", "Labels: threshold=%d, sources=%v, format=%s", cfg.ProportionThreshold, cfg.SourceExts, cfg.Format)
}

// LogPhase prints one progress line to stderr, prefixed by an emoji when enabled.
func LogPhase(cfg *Config, emoji string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if cfg.UseEmojis && emoji != "" {
		msg = emoji + " " + msg
	}
	_, _ = fmt.Fprintln(os.Stderr, msg)
}
