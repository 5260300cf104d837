// Package outwriter renders console summaries and writes dataset files.
package outwriter

import (
	"time"

	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/schema"
)

// OutWriter provides a unified interface for all console output operations.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteReleases prints the release catalog using the configured output format.
func (ow *OutWriter) WriteReleases(project string, releases []schema.Release, cfg *contract.Config) error {
	return WriteReleaseResults(project, releases, cfg)
}

// WriteTickets prints resolved tickets using the configured output format.
func (ow *OutWriter) WriteTickets(report schema.TicketReport, cfg *contract.Config) error {
	return WriteTicketResults(report, cfg)
}

// WriteBuild prints a dataset build summary using the configured output format.
func (ow *OutWriter) WriteBuild(summary schema.BuildSummary, cfg *contract.Config, duration time.Duration) error {
	return WriteBuildResults(summary, cfg, duration)
}
