package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketIsConsistent(t *testing.T) {
	tests := []struct {
		name     string
		injected *int
		opening  int
		fixed    int
		want     bool
	}{
		{"unknown injected", nil, 1, 2, false},
		{"ordered", IntPtr(0), 1, 2, true},
		{"all equal", IntPtr(2), 2, 2, true},
		{"injected after opening", IntPtr(3), 2, 4, false},
		{"opening after fixed", IntPtr(0), 3, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := &Ticket{Injected: tt.injected, Opening: tt.opening, Fixed: tt.fixed}
			assert.Equal(t, tt.want, tk.IsConsistent())
		})
	}
}

func TestCommitChangeVariants(t *testing.T) {
	var root CommitChange = RootCommitChange{CommitID: "a", Paths: []string{"A.java", "B.java"}}
	var diff CommitChange = DiffChange{
		CommitID: "b",
		ParentID: "a",
		Files:    []FileChange{{Path: "A.java", Added: 3, Deleted: 1}},
	}

	assert.Equal(t, "a", root.Commit())
	assert.Equal(t, []string{"A.java", "B.java"}, root.ChangedPaths())
	assert.Equal(t, []string{"A.java"}, diff.ChangedPaths())

	fc, ok := diff.(DiffChange).Lookup("A.java")
	assert.True(t, ok)
	assert.Equal(t, 3, fc.Added)
	_, ok = diff.(DiffChange).Lookup("B.java")
	assert.False(t, ok)

	assert.True(t, Commit{}.IsRoot())
	assert.False(t, Commit{ParentIDs: []string{"a"}}.IsRoot())
}

func TestSnapshotCloneIsolatesLabels(t *testing.T) {
	orig := &ReleaseSnapshot{
		Release: Release{Index: 1},
		Files:   []*SourceFile{{Path: "A.java", Metrics: FileMetrics{IsBuggy: true, FixedDefectCount: 2}}},
	}
	cp := orig.Clone()
	cp.Files[0].Metrics.IsBuggy = false
	cp.Files[0].Metrics.FixedDefectCount = 0

	assert.True(t, orig.Files[0].Metrics.IsBuggy)
	assert.Equal(t, 2, orig.Files[0].Metrics.FixedDefectCount)
	assert.Equal(t, 1, orig.BuggyFileCount())
	assert.Equal(t, 0, cp.BuggyFileCount())
	assert.NotNil(t, orig.File("A.java"))
	assert.Nil(t, orig.File("B.java"))
}

func TestTrainingPercent(t *testing.T) {
	mk := func(n int) *ReleaseSnapshot {
		s := &ReleaseSnapshot{}
		for range n {
			s.Files = append(s.Files, &SourceFile{})
		}
		return s
	}
	it := WalkForwardIteration{Number: 1, Training: []*ReleaseSnapshot{mk(2), mk(1)}, Testing: mk(1)}
	assert.Equal(t, 3, it.TrainingRows())
	assert.InDelta(t, 75.0, it.TrainingPercent(), 1e-9)
	assert.Zero(t, WalkForwardIteration{}.TrainingPercent())
}

func TestDatasetFormatExtension(t *testing.T) {
	assert.Equal(t, ".arff", ARFFFormat.Extension())
	assert.Equal(t, ".parquet", ParquetFormat.Extension())
}
