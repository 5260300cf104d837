// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/defectset/schema"
)

// GitClient defines the version-control operations needed to build a dataset.
// This allows the core pipeline to be tested without needing a real git executable.
type GitClient interface {
	// GetRepoRoot returns the absolute path to the root of the Git repository
	// containing the given context path.
	GetRepoRoot(ctx context.Context, contextPath string) (string, error)

	// ListCommits returns every commit reachable from HEAD, oldest first.
	ListCommits(ctx context.Context, repoPath string) ([]schema.Commit, error)

	// ListFiles returns all paths in the tree of a commit.
	ListFiles(ctx context.Context, repoPath string, commitID string) ([]string, error)

	// ReadFile returns the content of a path at a commit.
	ReadFile(ctx context.Context, repoPath string, commitID string, path string) (string, error)

	// DiffWithParent describes the paths a commit touched.
	// Commits without parent yield a schema.RootCommitChange.
	DiffWithParent(ctx context.Context, repoPath string, commit schema.Commit) (schema.CommitChange, error)
}

// TrackerClient defines the issue tracker operations needed to resolve tickets.
type TrackerClient interface {
	// FetchVersions returns every version of a project, dated or not.
	FetchVersions(ctx context.Context, project string) ([]schema.RawVersion, error)

	// FetchTickets returns every fixed bug of a project, fully drained across pages.
	FetchTickets(ctx context.Context, project string) ([]schema.RawTicket, error)
}

// CacheManager defines the interface for managing stores.
// This allows the storage layer to be mocked for testing.
type CacheManager interface {
	GetTrackerStore() CacheStore
	GetDatasetStore() DatasetStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// DatasetStore defines the interface for tracking build runs and storing their results.
type DatasetStore interface {
	// BeginRun creates a new build run and returns its unique ID
	BeginRun(project string, startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, totalReleases, totalTickets int) error

	// RecordSnapshot stores the metric rows of one release
	RecordSnapshot(runID int64, snapshot *schema.ReleaseSnapshot) error

	// RecordTickets stores the resolved tickets of a run
	RecordTickets(runID int64, tickets []*schema.Ticket) error

	// RecordEvaluations stores forwarded evaluation records
	RecordEvaluations(runID int64, records []schema.EvaluationRecord) error

	// GetStatus returns status information about the dataset store
	GetStatus() (schema.DatasetStatus, error)

	// GetAllRuns retrieves every recorded run
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllFileMetrics retrieves every recorded file metric row
	GetAllFileMetrics() ([]schema.FileMetricRecord, error)

	// GetAllTickets retrieves every recorded ticket
	GetAllTickets() ([]schema.TicketRecord, error)

	// GetAllEvaluations retrieves every forwarded evaluation record
	GetAllEvaluations() ([]schema.EvaluationRow, error)

	// Close closes the underlying connection
	Close() error
}

// DatasetWriter persists dataset files.
type DatasetWriter interface {
	// WriteRelease writes one row per file of every snapshot and returns the file path.
	WriteRelease(project string, snapshots []*schema.ReleaseSnapshot) (string, error)

	// WriteIteration writes the training and testing files of an iteration.
	WriteIteration(project string, iteration schema.WalkForwardIteration) (trainingPath, testingPath string, err error)

	// WriteEvaluations writes the evaluation report and returns the file path.
	WriteEvaluations(project string, records []schema.EvaluationRecord) (string, error)
}

// Evaluator is the external evaluation engine.
type Evaluator interface {
	Evaluate(ctx context.Context, req schema.EvaluationRequest) ([]schema.EvaluationRecord, error)
}
