package schema

import "time"

// RunRecord represents a row from the defectset_runs table.
type RunRecord struct {
	RunID         int64
	Project       string
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int32
	TotalReleases int32
	TotalTickets  int32
	ConfigParams  *string
}

// FileMetricRecord represents a row from the defectset_file_metrics table.
type FileMetricRecord struct {
	RunID        int64
	ReleaseIndex int32
	ReleaseName  string
	FilePath     string
	Metrics      FileMetrics
}

// TicketRecord represents a row from the defectset_tickets table.
type TicketRecord struct {
	RunID      int64
	TicketKey  string
	Injected   int32
	Opening    int32
	Fixed      int32
	Adjusted   bool
	Commits    int32
	LastCommit string
}

// EvaluationRow represents a row from the defectset_evaluations table.
type EvaluationRow struct {
	RunID int64
	EvaluationRecord
}
