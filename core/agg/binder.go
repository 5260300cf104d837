// Package agg binds commit history to releases and aggregates per-file metrics.
package agg

import (
	"context"
	"fmt"
	"sort"

	"github.com/huangsam/defectset/core/catalog"
	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/schema"
	"golang.org/x/sync/errgroup"
)

// PathFilter decides whether a repository path belongs in a snapshot.
type PathFilter func(path string) bool

// Binder partitions commits into release windows and snapshots each release.
type Binder struct {
	client   contract.GitClient
	repoPath string
	filter   PathFilter
	workers  int
}

// NewBinder creates a binder. A nil filter keeps every path.
func NewBinder(client contract.GitClient, repoPath string, filter PathFilter, workers int) *Binder {
	if filter == nil {
		filter = func(string) bool { return true }
	}
	return &Binder{client: client, repoPath: repoPath, filter: filter, workers: max(workers, 1)}
}

// Bind returns one snapshot per release that received at least one commit, in index order.
func (b *Binder) Bind(ctx context.Context, cat *catalog.Catalog, commits []schema.Commit, changes *ChangeIndex) ([]*schema.ReleaseSnapshot, error) {
	sorted := make([]schema.Commit, len(commits))
	copy(sorted, commits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	var snapshots []*schema.ReleaseSnapshot
	for i, window := range Windows(cat, sorted) {
		if len(window) == 0 {
			continue
		}
		rel, _ := cat.ReleaseByIndex(i)
		snap, err := b.snapshot(ctx, rel, window, changes)
		if err != nil {
			return nil, fmt.Errorf("snapshot release %s: %w", rel.Name, err)
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// Windows splits time-sorted commits by release: commit c lands in release r
// when the day of c is after the previous release date and not after r's date.
// Commits after the last release belong to no window.
func Windows(cat *catalog.Catalog, sorted []schema.Commit) [][]schema.Commit {
	out := make([][]schema.Commit, cat.Len())
	pos := 0
	for i := range out {
		rel, _ := cat.ReleaseByIndex(i)
		lo := cat.WindowStart(i)
		for pos < len(sorted) {
			d := catalog.DayOf(sorted[pos].Time)
			if !d.After(lo) {
				pos++
				continue
			}
			if d.After(rel.Date) {
				break
			}
			out[i] = append(out[i], sorted[pos])
			pos++
		}
	}
	return out
}

func (b *Binder) snapshot(ctx context.Context, rel schema.Release, window []schema.Commit, changes *ChangeIndex) (*schema.ReleaseSnapshot, error) {
	last := window[len(window)-1]
	snap := &schema.ReleaseSnapshot{Release: rel, Commits: window, LastCommit: last}

	paths, err := b.client.ListFiles(ctx, b.repoPath, last.ID)
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if b.filter(p) {
			snap.Files = append(snap.Files, &schema.SourceFile{Path: p})
		}
	}
	if err := b.readContents(ctx, last.ID, snap.Files); err != nil {
		return nil, err
	}

	if err := changes.Prefetch(ctx, window); err != nil {
		return nil, err
	}
	byPath := make(map[string]*schema.SourceFile, len(snap.Files))
	for _, f := range snap.Files {
		byPath[f.Path] = f
	}
	for _, c := range window {
		change, err := changes.Get(ctx, c)
		if err != nil {
			return nil, err
		}
		for _, p := range change.ChangedPaths() {
			if f, ok := byPath[p]; ok {
				f.Commits = append(f.Commits, schema.FileCommit{Commit: c, Change: change})
			}
		}
	}
	return snap, nil
}

// readContents loads file contents concurrently. Each goroutine writes only its own file.
func (b *Binder) readContents(ctx context.Context, commitID string, files []*schema.SourceFile) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for _, f := range files {
		g.Go(func() error {
			content, err := b.client.ReadFile(gctx, b.repoPath, commitID, f.Path)
			if err != nil {
				return fmt.Errorf("read %s: %w", f.Path, err)
			}
			f.Content = content
			return nil
		})
	}
	return g.Wait()
}
