// Package label propagates buggy labels from fix commits back to the releases a defect affected.
package label

import (
	"context"
	"fmt"

	"github.com/huangsam/defectset/core/catalog"
	"github.com/huangsam/defectset/schema"
)

// ChangeSource returns the change of a commit.
type ChangeSource interface {
	Get(ctx context.Context, commit schema.Commit) (schema.CommitChange, error)
}

// Stats summarizes one labeling run.
type Stats struct {
	Tickets        int // tickets processed
	Commits        int // fix commits applied
	SkippedCommits int // fix commits outside the given snapshots
	BuggyMarks     int // files newly marked buggy
	FixedDefects   int // fixed-defect increments
}

// Labeler marks files of release snapshots as buggy.
type Labeler struct {
	cat     *catalog.Catalog
	changes ChangeSource
}

// NewLabeler creates a labeler.
func NewLabeler(cat *catalog.Catalog, changes ChangeSource) *Labeler {
	return &Labeler{cat: cat, changes: changes}
}

// Label applies every ticket to the snapshots. Labels only ever turn on within a run,
// so call Reset first to relabel from scratch.
func (l *Labeler) Label(ctx context.Context, tickets []*schema.Ticket, snapshots []*schema.ReleaseSnapshot) (Stats, error) {
	var stats Stats
	byIndex := make(map[int]fileIndex, len(snapshots))
	for _, s := range snapshots {
		byIndex[s.Release.Index] = indexFiles(s)
	}

	for _, t := range tickets {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Tickets++
		for _, c := range t.Commits {
			rel, ok := l.cat.ReleaseAtOrAfter(c.Time)
			if !ok {
				stats.SkippedCommits++
				continue
			}
			if _, retained := byIndex[rel.Index]; !retained {
				stats.SkippedCommits++
				continue
			}
			paths, err := l.changedPaths(ctx, c)
			if err != nil {
				return stats, err
			}
			stats.Commits++
			for _, i := range l.cat.AffectedReleases(t.Injected, t.Fixed) {
				if s, ok := byIndex[i]; ok {
					stats.BuggyMarks += markBuggy(s, paths)
				}
			}
		}

		if t.LastCommit == nil {
			continue
		}
		rel, ok := l.cat.ReleaseAtOrAfter(t.LastCommit.Time)
		if !ok {
			continue
		}
		s, ok := byIndex[rel.Index]
		if !ok {
			continue
		}
		paths, err := l.changedPaths(ctx, *t.LastCommit)
		if err != nil {
			return stats, err
		}
		for _, p := range paths {
			if f, ok := s[p]; ok {
				f.Metrics.FixedDefectCount++
				stats.FixedDefects++
			}
		}
	}
	return stats, nil
}

func (l *Labeler) changedPaths(ctx context.Context, c schema.Commit) ([]string, error) {
	change, err := l.changes.Get(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("changes of %s: %w", c.ID, err)
	}
	return change.ChangedPaths(), nil
}

// fileIndex maps the paths of one snapshot to its files.
type fileIndex map[string]*schema.SourceFile

func indexFiles(s *schema.ReleaseSnapshot) fileIndex {
	idx := make(fileIndex, len(s.Files))
	for _, f := range s.Files {
		idx[f.Path] = f
	}
	return idx
}

func markBuggy(files fileIndex, paths []string) int {
	n := 0
	for _, p := range paths {
		f, ok := files[p]
		if !ok || f.Metrics.IsBuggy {
			continue
		}
		f.Metrics.IsBuggy = true
		n++
	}
	return n
}

// Reset clears the buggy labels and fixed-defect counts of every file.
func Reset(snapshots []*schema.ReleaseSnapshot) {
	for _, s := range snapshots {
		for _, f := range s.Files {
			f.Metrics.IsBuggy = false
			f.Metrics.FixedDefectCount = 0
		}
	}
}
