package label

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/huangsam/defectset/core/catalog"
	"github.com/huangsam/defectset/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changeMap map[string]schema.CommitChange

func (m changeMap) Get(_ context.Context, c schema.Commit) (schema.CommitChange, error) {
	change, ok := m[c.ID]
	if !ok {
		return nil, errors.New("no change recorded")
	}
	return change, nil
}

func month(m time.Month) time.Time {
	return time.Date(2020, m, 1, 0, 0, 0, 0, time.UTC)
}

// setup returns releases at the first of Jan..Apr, one snapshot per release with
// files A and B, and commits: root (Jan), fixA (Feb), fixB (Mar).
func setup() (*catalog.Catalog, []*schema.ReleaseSnapshot, changeMap, map[string]schema.Commit) {
	cat := catalog.New([]schema.RawVersion{
		{ID: "0", Name: "0", Date: month(1), HasDate: true},
		{ID: "1", Name: "1", Date: month(2), HasDate: true},
		{ID: "2", Name: "2", Date: month(3), HasDate: true},
		{ID: "3", Name: "3", Date: month(4), HasDate: true},
	})
	var snaps []*schema.ReleaseSnapshot
	for _, r := range cat.Releases() {
		snaps = append(snaps, &schema.ReleaseSnapshot{
			Release: r,
			Files:   []*schema.SourceFile{{Path: "A.java"}, {Path: "B.java"}},
		})
	}
	commits := map[string]schema.Commit{
		"root": {ID: "root", Time: month(1).Add(-time.Hour)},
		"fixA": {ID: "fixA", Time: month(2).Add(-time.Hour), ParentIDs: []string{"root"}},
		"fixB": {ID: "fixB", Time: month(3).Add(-time.Hour), ParentIDs: []string{"fixA"}},
	}
	changes := changeMap{
		"root": schema.RootCommitChange{CommitID: "root", Paths: []string{"A.java", "B.java", "README.md"}},
		"fixA": schema.DiffChange{CommitID: "fixA", ParentID: "root", Files: []schema.FileChange{{Path: "A.java", Added: 1}}},
		"fixB": schema.DiffChange{CommitID: "fixB", ParentID: "fixA", Files: []schema.FileChange{{Path: "B.java", Deleted: 1}}},
	}
	return cat, snaps, changes, commits
}

func ticket(key string, iv, ov, fv int, commits ...schema.Commit) *schema.Ticket {
	t := &schema.Ticket{Key: key, Injected: schema.IntPtr(iv), Opening: ov, Fixed: fv, Commits: commits}
	if len(commits) > 0 {
		last := commits[len(commits)-1]
		t.LastCommit = &last
	}
	return t
}

type labels map[int][]string

func buggy(snaps []*schema.ReleaseSnapshot) labels {
	out := labels{}
	for _, s := range snaps {
		for _, f := range s.Files {
			if f.Metrics.IsBuggy {
				out[s.Release.Index] = append(out[s.Release.Index], f.Path)
			}
		}
	}
	return out
}

func TestLabelAffectedInterval(t *testing.T) {
	cat, snaps, changes, commits := setup()
	tickets := []*schema.Ticket{ticket("P-1", 0, 1, 2, commits["fixB"])}

	stats, err := NewLabeler(cat, changes).Label(context.Background(), tickets, snaps)
	require.NoError(t, err)

	assert.Equal(t, labels{0: {"B.java"}, 1: {"B.java"}}, buggy(snaps), "fixed release excluded")
	assert.Equal(t, 1, snaps[2].File("B.java").Metrics.FixedDefectCount)
	assert.Equal(t, Stats{Tickets: 1, Commits: 1, BuggyMarks: 2, FixedDefects: 1}, stats)
}

func TestLabelRootCommit(t *testing.T) {
	cat, snaps, changes, commits := setup()
	tickets := []*schema.Ticket{ticket("P-1", 0, 0, 2, commits["root"])}

	_, err := NewLabeler(cat, changes).Label(context.Background(), tickets, snaps)
	require.NoError(t, err)

	assert.Equal(t, labels{0: {"A.java", "B.java"}, 1: {"A.java", "B.java"}}, buggy(snaps))
	assert.Equal(t, 1, snaps[0].File("A.java").Metrics.FixedDefectCount)
	assert.Equal(t, 1, snaps[0].File("B.java").Metrics.FixedDefectCount)
}

func TestLabelSkipsCommitsOutsideSnapshots(t *testing.T) {
	cat, snaps, changes, commits := setup()
	tickets := []*schema.Ticket{
		ticket("P-1", 0, 1, 2, commits["fixB"]),
		ticket("P-2", 0, 1, 3, schema.Commit{ID: "future", Time: month(12)}),
	}

	stats, err := NewLabeler(cat, changes).Label(context.Background(), tickets, snaps[:2])
	require.NoError(t, err)

	assert.Empty(t, buggy(snaps))
	assert.Equal(t, 2, stats.SkippedCommits)
	assert.Zero(t, stats.FixedDefects)
}

func TestLabelMonotonic(t *testing.T) {
	cat, snaps, changes, commits := setup()
	l := NewLabeler(cat, changes)
	ctx := context.Background()

	_, err := l.Label(ctx, []*schema.Ticket{ticket("P-1", 0, 1, 2, commits["fixA"])}, snaps)
	require.NoError(t, err)
	before := buggy(snaps)

	_, err = l.Label(ctx, []*schema.Ticket{ticket("P-2", 1, 2, 3, commits["fixB"])}, snaps)
	require.NoError(t, err)
	after := buggy(snaps)

	for idx, files := range before {
		for _, p := range files {
			assert.Contains(t, after[idx], p)
		}
	}
	assert.Equal(t, labels{0: {"A.java"}, 1: {"A.java", "B.java"}, 2: {"B.java"}}, after)
}

func TestResetAndRelabelIsIdempotent(t *testing.T) {
	cat, snaps, changes, commits := setup()
	l := NewLabeler(cat, changes)
	ctx := context.Background()
	tickets := []*schema.Ticket{
		ticket("P-1", 0, 1, 2, commits["fixA"]),
		ticket("P-2", 1, 2, 3, commits["fixB"]),
	}

	_, err := l.Label(ctx, tickets, snaps)
	require.NoError(t, err)
	first := buggy(snaps)
	fixed := snaps[1].File("A.java").Metrics.FixedDefectCount

	Reset(snaps)
	assert.Empty(t, buggy(snaps))
	assert.Zero(t, snaps[1].File("A.java").Metrics.FixedDefectCount)

	_, err = l.Label(ctx, tickets, snaps)
	require.NoError(t, err)
	assert.Equal(t, first, buggy(snaps))
	assert.Equal(t, fixed, snaps[1].File("A.java").Metrics.FixedDefectCount)
}

func TestLabelChangeError(t *testing.T) {
	cat, snaps, _, commits := setup()
	_, err := NewLabeler(cat, changeMap{}).Label(context.Background(), []*schema.Ticket{ticket("P-1", 0, 1, 2, commits["fixA"])}, snaps)
	assert.ErrorContains(t, err, "changes of fixA")
}
