package memgit

import (
	"context"
	"testing"
	"time"

	"github.com/huangsam/defectset/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineStats(t *testing.T) {
	tests := []struct {
		name           string
		before, after  string
		added, deleted int
	}{
		{"unchanged", "a\nb\n", "a\nb\n", 0, 0},
		{"new file", "", "a\nb\nc\n", 3, 0},
		{"removed file", "a\nb\n", "", 0, 2},
		{"replace line", "a\nb\nc\n", "a\nx\nc\n", 1, 1},
		{"append", "a\n", "a\nb\nc\n", 2, 0},
		{"no trailing newline", "a", "a\nb", 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			added, deleted := LineStats(tt.before, tt.after)
			assert.Equal(t, tt.added, added)
			assert.Equal(t, tt.deleted, deleted)
		})
	}
}

func TestRepoHistory(t *testing.T) {
	ctx := context.Background()
	r := New("/repo")
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	first := r.Commit("ada", t0, "init", map[string]string{"A.java": "a\n", "B.java": "b\n"})
	second := r.Commit("bob", t0.Add(time.Hour), "PROJ-1 fix", map[string]string{"A.java": "a\nb\n"}, "B.java")

	commits, err := r.ListCommits(ctx, "/repo")
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, first, commits[0].ID)
	assert.True(t, commits[0].IsRoot())
	assert.Equal(t, []string{first}, commits[1].ParentIDs)

	files, err := r.ListFiles(ctx, "/repo", second)
	require.NoError(t, err)
	assert.Equal(t, []string{"A.java"}, files)

	content, err := r.ReadFile(ctx, "/repo", first, "B.java")
	require.NoError(t, err)
	assert.Equal(t, "b\n", content)

	_, err = r.ReadFile(ctx, "/repo", second, "B.java")
	assert.Error(t, err)

	root, err := r.DiffWithParent(ctx, "/repo", commits[0])
	require.NoError(t, err)
	assert.Equal(t, schema.RootCommitChange{CommitID: first, Paths: []string{"A.java", "B.java"}}, root)

	change, err := r.DiffWithParent(ctx, "/repo", commits[1])
	require.NoError(t, err)
	diff, ok := change.(schema.DiffChange)
	require.True(t, ok)
	assert.Equal(t, first, diff.ParentID)
	assert.Equal(t, []schema.FileChange{
		{Path: "A.java", Added: 1},
		{Path: "B.java", Deleted: 1},
	}, diff.Files)
	assert.Equal(t, int64(2), r.DiffCalls())

	repoRoot, err := r.GetRepoRoot(ctx, ".")
	require.NoError(t, err)
	assert.Equal(t, "/repo", repoRoot)
}

func TestRepoUnknownCommit(t *testing.T) {
	r := New("/repo")
	_, err := r.ListFiles(context.Background(), "/repo", "missing")
	assert.Error(t, err)
}
