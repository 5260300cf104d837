package agg

import (
	"context"
	"strings"

	"github.com/huangsam/defectset/schema"
	"golang.org/x/sync/errgroup"
)

// Aggregator computes file metrics for release snapshots.
type Aggregator struct {
	workers int
}

// NewAggregator creates an aggregator running on at most workers goroutines.
func NewAggregator(workers int) *Aggregator {
	return &Aggregator{workers: max(workers, 1)}
}

// Compute fills the metrics of every file of every snapshot, leaving labels untouched.
// Releases are spread over the worker group; one goroutine owns each release.
func (a *Aggregator) Compute(ctx context.Context, snapshots []*schema.ReleaseSnapshot) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for _, snap := range snapshots {
		g.Go(func() error {
			for _, f := range snap.Files {
				if err := gctx.Err(); err != nil {
					return err
				}
				f.Metrics = NewFileMetricsBuilder(f).
					FetchSize().
					FetchLineSamples().
					FetchAuthors().
					Build(f.Metrics)
			}
			return nil
		})
	}
	return g.Wait()
}

// FileMetricsBuilder builds the metrics of one source file.
type FileMetricsBuilder struct {
	file    *schema.SourceFile
	metrics schema.FileMetrics
}

// NewFileMetricsBuilder is the starting point for building file metrics.
func NewFileMetricsBuilder(file *schema.SourceFile) *FileMetricsBuilder {
	return &FileMetricsBuilder{file: file}
}

// FetchSize counts the lines of the file content.
func (b *FileMetricsBuilder) FetchSize() *FileMetricsBuilder {
	b.metrics.Size = LineCount(b.file.Content)
	return b
}

// FetchLineSamples sums added, deleted and churned lines over the file commits.
// Root commits add no sample but still count in the averages.
func (b *FileMetricsBuilder) FetchLineSamples() *FileMetricsBuilder {
	m := &b.metrics
	for _, fc := range b.file.Commits {
		diff, ok := fc.Change.(schema.DiffChange)
		if !ok {
			continue
		}
		fch, ok := diff.Lookup(b.file.Path)
		if !ok {
			continue
		}
		churn := fch.Added - fch.Deleted
		if churn < 0 {
			churn = -churn
		}
		m.LOCAdded += fch.Added
		m.LOCDeleted += fch.Deleted
		m.Churn += churn
		m.MaxLOCAdded = max(m.MaxLOCAdded, fch.Added)
		m.MaxLOCDeleted = max(m.MaxLOCDeleted, fch.Deleted)
		m.MaxChurn = max(m.MaxChurn, churn)
	}
	if n := len(b.file.Commits); n > 0 {
		m.AvgLOCAdded = float64(m.LOCAdded) / float64(n)
		m.AvgLOCDeleted = float64(m.LOCDeleted) / float64(n)
		m.AvgChurn = float64(m.Churn) / float64(n)
	}
	return b
}

// FetchAuthors counts distinct commit authors.
func (b *FileMetricsBuilder) FetchAuthors() *FileMetricsBuilder {
	authors := make(map[string]struct{})
	for _, fc := range b.file.Commits {
		authors[fc.Commit.Author] = struct{}{}
	}
	b.metrics.AuthorCount = len(authors)
	return b
}

// Build returns the computed metrics, carrying over the labels of prev.
func (b *FileMetricsBuilder) Build(prev schema.FileMetrics) schema.FileMetrics {
	out := b.metrics
	out.IsBuggy = prev.IsBuggy
	out.FixedDefectCount = prev.FixedDefectCount
	return out
}

// LineCount returns the number of lines of content. A final line without newline counts.
func LineCount(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}
