// Package memgit is an in-memory implementation of contract.GitClient.
// It keeps a linear history of full trees and computes line deltas on demand.
package memgit

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/schema"
	"github.com/sergi/go-diff/diffmatchpatch"
)

var _ contract.GitClient = (*Repo)(nil)

// Repo is an in-memory repository with a single branch.
type Repo struct {
	root string

	mu      sync.RWMutex
	commits []schema.Commit
	byID    map[string]int
	trees   map[string]map[string]string

	diffCalls atomic.Int64
}

// New creates an empty repository rooted at root.
func New(root string) *Repo {
	return &Repo{
		root:  root,
		byID:  make(map[string]int),
		trees: make(map[string]map[string]string),
	}
}

// Commit records a commit on top of the current head and returns its ID.
// files are written with the given content; deleted paths are removed.
func (r *Repo) Commit(author string, when time.Time, message string, files map[string]string, deleted ...string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tree := make(map[string]string)
	var parents []string
	if n := len(r.commits); n > 0 {
		head := r.commits[n-1].ID
		parents = []string{head}
		for p, c := range r.trees[head] {
			tree[p] = c
		}
	}
	for p, c := range files {
		tree[p] = c
	}
	for _, p := range deleted {
		delete(tree, p)
	}

	sum := sha1.Sum(fmt.Appendf(nil, "%d\x00%s\x00%s\x00%s", len(r.commits), author, when.Format(time.RFC3339Nano), message))
	id := hex.EncodeToString(sum[:])

	r.byID[id] = len(r.commits)
	r.commits = append(r.commits, schema.Commit{
		ID:        id,
		Author:    author,
		Time:      when,
		Message:   message,
		ParentIDs: parents,
	})
	r.trees[id] = tree
	return id
}

// DiffCalls returns how many times DiffWithParent was invoked.
func (r *Repo) DiffCalls() int64 {
	return r.diffCalls.Load()
}

// GetRepoRoot implements contract.GitClient.
func (r *Repo) GetRepoRoot(_ context.Context, _ string) (string, error) {
	return r.root, nil
}

// ListCommits implements contract.GitClient.
func (r *Repo) ListCommits(ctx context.Context, _ string) ([]schema.Commit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]schema.Commit, len(r.commits))
	copy(out, r.commits)
	return out, nil
}

// ListFiles implements contract.GitClient.
func (r *Repo) ListFiles(ctx context.Context, _ string, commitID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tree, err := r.tree(commitID)
	if err != nil {
		return nil, err
	}
	return sortedPaths(tree), nil
}

// ReadFile implements contract.GitClient.
func (r *Repo) ReadFile(ctx context.Context, _ string, commitID string, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tree, err := r.tree(commitID)
	if err != nil {
		return "", err
	}
	content, ok := tree[path]
	if !ok {
		return "", fmt.Errorf("path %s does not exist in %s", path, commitID)
	}
	return content, nil
}

// DiffWithParent implements contract.GitClient.
func (r *Repo) DiffWithParent(ctx context.Context, _ string, commit schema.Commit) (schema.CommitChange, error) {
	r.diffCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tree, err := r.tree(commit.ID)
	if err != nil {
		return nil, err
	}
	if commit.IsRoot() {
		return schema.RootCommitChange{CommitID: commit.ID, Paths: sortedPaths(tree)}, nil
	}

	parentID := commit.ParentIDs[0]
	parent, err := r.tree(parentID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(tree))
	var files []schema.FileChange
	for p, content := range tree {
		seen[p] = true
		before, existed := parent[p]
		if existed && before == content {
			continue
		}
		added, removed := LineStats(before, content)
		files = append(files, schema.FileChange{Path: p, Added: added, Deleted: removed})
	}
	for p, before := range parent {
		if seen[p] {
			continue
		}
		files = append(files, schema.FileChange{Path: p, Deleted: countLines(before)})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	return schema.DiffChange{CommitID: commit.ID, ParentID: parentID, Files: files}, nil
}

func (r *Repo) tree(commitID string) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tree, ok := r.trees[commitID]
	if !ok {
		return nil, fmt.Errorf("unknown commit %s", commitID)
	}
	return tree, nil
}

// LineStats returns the number of lines added and deleted between two versions of a file.
func LineStats(before, after string) (added, deleted int) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			deleted += countLines(d.Text)
		}
	}
	return added, deleted
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

func sortedPaths(tree map[string]string) []string {
	paths := make([]string, 0, len(tree))
	for p := range tree {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
