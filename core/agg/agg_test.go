package agg

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/defectset/core/catalog"
	"github.com/huangsam/defectset/internal/memgit"
	"github.com/huangsam/defectset/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2020, m, d, 0, 0, 0, 0, time.UTC)
}

func at(m time.Month, d int) time.Time {
	return time.Date(2020, m, d, 15, 30, 0, 0, time.UTC)
}

// fixture has four monthly releases and five commits spread over them.
type fixture struct {
	repo    *memgit.Repo
	cat     *catalog.Catalog
	commits []schema.Commit
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := memgit.New("/repo")
	repo.Commit("ada", at(1, 10), "initial import", map[string]string{
		"src/A.java":      "a\n",
		"src/B.java":      "b1\nb2\n",
		"test/ATest.java": "t\n",
		"README.md":       "r\n",
	})
	repo.Commit("bob", at(2, 5), "add feature", map[string]string{"src/A.java": "a\nx\ny\n"})
	repo.Commit("ada", at(2, 20), "PROJ-1 fix A", map[string]string{"src/A.java": "a\nz\ny\n"})
	repo.Commit("cy", at(3, 15), "PROJ-2 fix B", map[string]string{"src/B.java": "b1\n"})
	repo.Commit("ada", at(4, 10), "add C", map[string]string{"src/C.java": "c\n"})

	commits, err := repo.ListCommits(context.Background(), "/repo")
	require.NoError(t, err)

	cat := catalog.New([]schema.RawVersion{
		{ID: "10", Name: "1.0", Date: day(1, 31), HasDate: true},
		{ID: "11", Name: "1.1", Date: day(2, 29), HasDate: true},
		{ID: "12", Name: "1.2", Date: day(3, 31), HasDate: true},
		{ID: "13", Name: "1.3", Date: day(4, 30), HasDate: true},
		{ID: "14", Name: "1.4", Date: day(5, 31), HasDate: true},
	})
	return fixture{repo: repo, cat: cat, commits: commits}
}

func javaOutsideTests(p string) bool {
	return strings.HasSuffix(p, ".java") && !strings.HasPrefix(p, "test/")
}

func (f fixture) bind(t *testing.T, workers int) ([]*schema.ReleaseSnapshot, *ChangeIndex) {
	t.Helper()
	changes := NewChangeIndex(f.repo, "/repo", workers)
	snaps, err := NewBinder(f.repo, "/repo", javaOutsideTests, workers).Bind(context.Background(), f.cat, f.commits, changes)
	require.NoError(t, err)
	return snaps, changes
}

func paths(s *schema.ReleaseSnapshot) []string {
	var out []string
	for _, f := range s.Files {
		out = append(out, f.Path)
	}
	return out
}

func commitMessages(f *schema.SourceFile) []string {
	var out []string
	for _, fc := range f.Commits {
		out = append(out, fc.Commit.Message)
	}
	return out
}

func TestWindows(t *testing.T) {
	f := newFixture(t)
	late := schema.Commit{ID: "late", Time: at(12, 1)}
	windows := Windows(f.cat, append(append([]schema.Commit{}, f.commits...), late))

	require.Len(t, windows, 5)
	assert.Len(t, windows[0], 1)
	assert.Len(t, windows[1], 2)
	assert.Len(t, windows[2], 1)
	assert.Len(t, windows[3], 1)
	assert.Empty(t, windows[4])
}

func TestWindowsReleaseDayIsInclusive(t *testing.T) {
	cat := catalog.New([]schema.RawVersion{
		{ID: "1", Name: "1.0", Date: day(1, 31), HasDate: true},
		{ID: "2", Name: "2.0", Date: day(2, 29), HasDate: true},
	})
	commits := []schema.Commit{
		{ID: "on-release-day", Time: time.Date(2020, 1, 31, 23, 59, 0, 0, time.UTC)},
		{ID: "day-after", Time: time.Date(2020, 2, 1, 0, 1, 0, 0, time.UTC)},
	}
	windows := Windows(cat, commits)
	assert.Equal(t, "on-release-day", windows[0][0].ID)
	assert.Equal(t, "day-after", windows[1][0].ID)
}

func TestBind(t *testing.T) {
	f := newFixture(t)
	snaps, changes := f.bind(t, 4)

	require.Len(t, snaps, 4, "release without commits is dropped")
	for i, s := range snaps {
		assert.Equal(t, i, s.Release.Index)
		assert.Equal(t, s.Commits[len(s.Commits)-1].ID, s.LastCommit.ID)
	}

	assert.Equal(t, []string{"src/A.java", "src/B.java"}, paths(snaps[0]))
	assert.Equal(t, []string{"src/A.java", "src/B.java", "src/C.java"}, paths(snaps[3]))

	a1 := snaps[1].File("src/A.java")
	require.NotNil(t, a1)
	assert.Equal(t, "a\nz\ny\n", a1.Content)
	assert.Equal(t, []string{"add feature", "PROJ-1 fix A"}, commitMessages(a1))
	assert.Empty(t, snaps[1].File("src/B.java").Commits)

	a0 := snaps[0].File("src/A.java")
	require.Len(t, a0.Commits, 1)
	_, isRoot := a0.Commits[0].Change.(schema.RootCommitChange)
	assert.True(t, isRoot)

	assert.Equal(t, 5, changes.Len())
	assert.Equal(t, int64(5), f.repo.DiffCalls(), "each commit is diffed once")
}

func TestChangeIndexMemoizes(t *testing.T) {
	f := newFixture(t)
	idx := NewChangeIndex(f.repo, "/repo", 2)
	ctx := context.Background()

	require.NoError(t, idx.Prefetch(ctx, f.commits))
	require.NoError(t, idx.Prefetch(ctx, f.commits))
	_, err := idx.Get(ctx, f.commits[2])
	require.NoError(t, err)

	assert.Equal(t, len(f.commits), idx.Len())
	assert.Equal(t, int64(len(f.commits)), f.repo.DiffCalls())
}

func TestChangeIndexError(t *testing.T) {
	f := newFixture(t)
	idx := NewChangeIndex(f.repo, "/repo", 1)
	_, err := idx.Get(context.Background(), schema.Commit{ID: "missing", ParentIDs: []string{"x"}})
	assert.ErrorContains(t, err, "diff commit missing")
}

func TestComputeMetrics(t *testing.T) {
	f := newFixture(t)
	snaps, _ := f.bind(t, 2)
	snaps[1].File("src/A.java").Metrics.IsBuggy = true
	snaps[1].File("src/A.java").Metrics.FixedDefectCount = 2

	require.NoError(t, NewAggregator(3).Compute(context.Background(), snaps))

	tests := []struct {
		name    string
		release int
		path    string
		want    schema.FileMetrics
	}{
		{
			name: "two diff commits", release: 1, path: "src/A.java",
			want: schema.FileMetrics{
				Size:     3,
				LOCAdded: 3, MaxLOCAdded: 2, AvgLOCAdded: 1.5,
				LOCDeleted: 1, MaxLOCDeleted: 1, AvgLOCDeleted: 0.5,
				Churn: 2, MaxChurn: 2, AvgChurn: 1,
				AuthorCount: 2, FixedDefectCount: 2, IsBuggy: true,
			},
		},
		{
			name: "root commit only", release: 0, path: "src/B.java",
			want: schema.FileMetrics{Size: 2, AuthorCount: 1},
		},
		{
			name: "untouched in window", release: 1, path: "src/B.java",
			want: schema.FileMetrics{Size: 2},
		},
		{
			name: "deletion", release: 2, path: "src/B.java",
			want: schema.FileMetrics{
				Size:       1,
				LOCDeleted: 1, MaxLOCDeleted: 1, AvgLOCDeleted: 1,
				Churn: 1, MaxChurn: 1, AvgChurn: 1,
				AuthorCount: 1,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := snaps[tt.release].File(tt.path)
			require.NotNil(t, file)
			assert.Equal(t, tt.want, file.Metrics)
		})
	}
}

func TestRootCommitCountsInAverage(t *testing.T) {
	file := &schema.SourceFile{
		Path:    "A.java",
		Content: "a\nb\n",
		Commits: []schema.FileCommit{
			{Commit: schema.Commit{ID: "r", Author: "ada"}, Change: schema.RootCommitChange{CommitID: "r", Paths: []string{"A.java"}}},
			{Commit: schema.Commit{ID: "d", Author: "ada", ParentIDs: []string{"r"}}, Change: schema.DiffChange{
				CommitID: "d", ParentID: "r",
				Files: []schema.FileChange{{Path: "A.java", Added: 4, Deleted: 1}},
			}},
		},
	}
	m := NewFileMetricsBuilder(file).FetchSize().FetchLineSamples().FetchAuthors().Build(schema.FileMetrics{})
	assert.Equal(t, 2, m.Size)
	assert.Equal(t, 4, m.LOCAdded)
	assert.InDelta(t, 2.0, m.AvgLOCAdded, 1e-9)
	assert.InDelta(t, 0.5, m.AvgLOCDeleted, 1e-9)
	assert.InDelta(t, 1.5, m.AvgChurn, 1e-9)
	assert.Equal(t, 1, m.AuthorCount)
}

func TestComputeCanceled(t *testing.T) {
	f := newFixture(t)
	snaps, _ := f.bind(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewAggregator(1).Compute(ctx, snaps), context.Canceled)
}

func TestLineCount(t *testing.T) {
	assert.Equal(t, 0, LineCount(""))
	assert.Equal(t, 1, LineCount("a"))
	assert.Equal(t, 1, LineCount("a\n"))
	assert.Equal(t, 2, LineCount("a\nb"))
}
