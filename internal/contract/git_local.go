package contract

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/huangsam/defectset/schema"
)

// Field and record separators used in the commit log format.
const (
	recordSep = "\x1e"
	fieldSep  = "\x1f"
)

// commitLogFormat prints hash, author, ISO committer date, parents and raw body per commit.
const commitLogFormat = "--format=%x1e%H%x1f%an%x1f%cI%x1f%P%x1f%B"

// LocalGitClient implements the GitClient interface by executing the
// local 'git' binary installed on the machine.
type LocalGitClient struct{}

var _ GitClient = &LocalGitClient{} // Compile-time check

// NewLocalGitClient creates a new instance of the local Git client.
func NewLocalGitClient() *LocalGitClient {
	return &LocalGitClient{}
}

// Run executes a git command and returns its stdout output.
func (c *LocalGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		return nil, fmt.Errorf("git command failed in %q: %s. If this is not a Git repository, verify the path or run 'git init'", repoPath, stderr)
	} else if err != nil {
		return nil, fmt.Errorf("git command failed: %w. Ensure Git is installed and available on your PATH", err)
	}
	return out, nil
}

// GetRepoRoot implements the GitClient interface.
func (c *LocalGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	out, err := c.Run(ctx, contextPath, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// ListCommits implements the GitClient interface.
func (c *LocalGitClient) ListCommits(ctx context.Context, repoPath string) ([]schema.Commit, error) {
	out, err := c.Run(ctx, repoPath, "log", "--reverse", "--date-order", commitLogFormat)
	if err != nil {
		return nil, err
	}
	return ParseCommitLog(out)
}

// ListFiles implements the GitClient interface.
func (c *LocalGitClient) ListFiles(ctx context.Context, repoPath string, commitID string) ([]string, error) {
	out, err := c.Run(ctx, repoPath, "ls-tree", "-r", "--name-only", commitID)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// ReadFile implements the GitClient interface.
func (c *LocalGitClient) ReadFile(ctx context.Context, repoPath string, commitID string, path string) (string, error) {
	out, err := c.Run(ctx, repoPath, "show", commitID+":"+path)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// DiffWithParent implements the GitClient interface.
func (c *LocalGitClient) DiffWithParent(ctx context.Context, repoPath string, commit schema.Commit) (schema.CommitChange, error) {
	if commit.IsRoot() {
		paths, err := c.ListFiles(ctx, repoPath, commit.ID)
		if err != nil {
			return nil, err
		}
		return schema.RootCommitChange{CommitID: commit.ID, Paths: paths}, nil
	}
	parent := commit.ParentIDs[0]
	out, err := c.Run(ctx, repoPath, "diff", "--numstat", "--no-renames", parent, commit.ID)
	if err != nil {
		return nil, err
	}
	files, err := ParseNumstat(out)
	if err != nil {
		return nil, fmt.Errorf("parse diff of %s: %w", commit.ID, err)
	}
	return schema.DiffChange{CommitID: commit.ID, ParentID: parent, Files: files}, nil
}

func splitLines(out []byte) []string {
	files := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(files) == 1 && files[0] == "" {
		return []string{}
	}
	return files
}
