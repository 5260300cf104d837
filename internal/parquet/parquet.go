// Package parquet provides row types and writers for exporting datasets and
// dataset store contents to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/schema"
	"github.com/parquet-go/parquet-go"
)

// DatasetRow is one file of one release in a dataset file.
type DatasetRow struct {
	ReleaseIndex     int32   `parquet:"release_index,snappy" json:"release_index"`
	ReleaseName      string  `parquet:"release_name,snappy,dict" json:"release_name"`
	FilePath         string  `parquet:"file_path,snappy" json:"file_path"`
	Size             int32   `parquet:"size,snappy" json:"size"`
	LOCAdded         int32   `parquet:"loc_added,snappy" json:"loc_added"`
	MaxLOCAdded      int32   `parquet:"max_loc_added,snappy" json:"max_loc_added"`
	AvgLOCAdded      float64 `parquet:"avg_loc_added,snappy" json:"avg_loc_added"`
	LOCDeleted       int32   `parquet:"loc_deleted,snappy" json:"loc_deleted"`
	MaxLOCDeleted    int32   `parquet:"max_loc_deleted,snappy" json:"max_loc_deleted"`
	AvgLOCDeleted    float64 `parquet:"avg_loc_deleted,snappy" json:"avg_loc_deleted"`
	Churn            int32   `parquet:"churn,snappy" json:"churn"`
	MaxChurn         int32   `parquet:"max_churn,snappy" json:"max_churn"`
	AvgChurn         float64 `parquet:"avg_churn,snappy" json:"avg_churn"`
	AuthorCount      int32   `parquet:"author_count,snappy" json:"author_count"`
	FixedDefectCount int32   `parquet:"fixed_defect_count,snappy" json:"fixed_defect_count"`

	// Buggy is "yes" or "no"
	Buggy string `parquet:"buggy,snappy,dict" json:"buggy"`
}

// Run maps to the defectset_runs table.
type Run struct {
	RunID         int64      `parquet:"run_id,snappy"`
	Project       string     `parquet:"project,snappy,dict"`
	StartTime     time.Time  `parquet:"start_time,snappy"`
	EndTime       *time.Time `parquet:"end_time,optional,snappy"`
	RunDurationMs *int32     `parquet:"run_duration_ms,optional,snappy"`
	TotalReleases int32      `parquet:"total_releases,snappy"`
	TotalTickets  int32      `parquet:"total_tickets,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// FileMetric maps to the defectset_file_metrics table.
type FileMetric struct {
	RunID            int64   `parquet:"run_id,snappy"`
	ReleaseIndex     int32   `parquet:"release_index,snappy"`
	ReleaseName      string  `parquet:"release_name,snappy,dict"`
	FilePath         string  `parquet:"file_path,snappy"`
	Size             int32   `parquet:"size,snappy"`
	LOCAdded         int32   `parquet:"loc_added,snappy"`
	MaxLOCAdded      int32   `parquet:"max_loc_added,snappy"`
	AvgLOCAdded      float64 `parquet:"avg_loc_added,snappy"`
	LOCDeleted       int32   `parquet:"loc_deleted,snappy"`
	MaxLOCDeleted    int32   `parquet:"max_loc_deleted,snappy"`
	AvgLOCDeleted    float64 `parquet:"avg_loc_deleted,snappy"`
	Churn            int32   `parquet:"churn,snappy"`
	MaxChurn         int32   `parquet:"max_churn,snappy"`
	AvgChurn         float64 `parquet:"avg_churn,snappy"`
	AuthorCount      int32   `parquet:"author_count,snappy"`
	FixedDefectCount int32   `parquet:"fixed_defect_count,snappy"`
	IsBuggy          bool    `parquet:"is_buggy,snappy"`
}

// Ticket maps to the defectset_tickets table.
type Ticket struct {
	RunID      int64  `parquet:"run_id,snappy"`
	TicketKey  string `parquet:"ticket_key,snappy"`
	Injected   int32  `parquet:"injected,snappy"`
	Opening    int32  `parquet:"opening,snappy"`
	Fixed      int32  `parquet:"fixed,snappy"`
	Adjusted   bool   `parquet:"adjusted,snappy"`
	Commits    int32  `parquet:"commit_count,snappy"`
	LastCommit string `parquet:"last_commit,snappy"`
}

// Evaluation maps to the defectset_evaluations table.
type Evaluation struct {
	RunID            int64   `parquet:"run_id,snappy"`
	Project          string  `parquet:"project,snappy,dict"`
	Iteration        int32   `parquet:"iteration,snappy"`
	TrainingPercent  float64 `parquet:"training_percent,snappy"`
	Classifier       string  `parquet:"classifier,snappy,dict"`
	FeatureSelection string  `parquet:"feature_selection,snappy,dict"`
	Sampling         string  `parquet:"sampling,snappy,dict"`
	CostSensitive    string  `parquet:"cost_sensitive,snappy,dict"`
	Precision        float64 `parquet:"precision,snappy"`
	Recall           float64 `parquet:"recall,snappy"`
	AUC              float64 `parquet:"auc,snappy"`
	Kappa            float64 `parquet:"kappa,snappy"`
	TP               int32   `parquet:"tp,snappy"`
	FP               int32   `parquet:"fp,snappy"`
	TN               int32   `parquet:"tn,snappy"`
	FN               int32   `parquet:"fn,snappy"`
}

// Write writes rows to a Parquet file, inferring the schema from the struct tags of T.
func Write[T any](rows []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return file.Close()
}

// Read loads every row of a Parquet file written by Write.
func Read[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet file %s: %w", path, err)
	}
	return rows, nil
}

// NewDatasetRow builds the dataset row of a file in a release.
func NewDatasetRow(release schema.Release, path string, m schema.FileMetrics) DatasetRow {
	return DatasetRow{
		ReleaseIndex:     int32(release.Index),
		ReleaseName:      release.Name,
		FilePath:         path,
		Size:             int32(m.Size),
		LOCAdded:         int32(m.LOCAdded),
		MaxLOCAdded:      int32(m.MaxLOCAdded),
		AvgLOCAdded:      m.AvgLOCAdded,
		LOCDeleted:       int32(m.LOCDeleted),
		MaxLOCDeleted:    int32(m.MaxLOCDeleted),
		AvgLOCDeleted:    m.AvgLOCDeleted,
		Churn:            int32(m.Churn),
		MaxChurn:         int32(m.MaxChurn),
		AvgChurn:         m.AvgChurn,
		AuthorCount:      int32(m.AuthorCount),
		FixedDefectCount: int32(m.FixedDefectCount),
		Buggy:            contract.GetDatasetLabel(m.IsBuggy),
	}
}

// ConvertSnapshots flattens snapshots into dataset rows, release by release.
func ConvertSnapshots(snapshots []*schema.ReleaseSnapshot) []DatasetRow {
	var result []DatasetRow
	for _, s := range snapshots {
		for _, f := range s.Files {
			result = append(result, NewDatasetRow(s.Release, f.Path, f.Metrics))
		}
	}
	return result
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, r := range records {
		result[i] = Run{
			RunID:         r.RunID,
			Project:       r.Project,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			RunDurationMs: r.RunDurationMs,
			TotalReleases: r.TotalReleases,
			TotalTickets:  r.TotalTickets,
			ConfigParams:  r.ConfigParams,
		}
	}
	return result
}

// ConvertFileMetricRecords converts schema.FileMetricRecord to FileMetric for Parquet export.
func ConvertFileMetricRecords(records []schema.FileMetricRecord) []FileMetric {
	result := make([]FileMetric, len(records))
	for i, r := range records {
		m := r.Metrics
		result[i] = FileMetric{
			RunID:            r.RunID,
			ReleaseIndex:     r.ReleaseIndex,
			ReleaseName:      r.ReleaseName,
			FilePath:         r.FilePath,
			Size:             int32(m.Size),
			LOCAdded:         int32(m.LOCAdded),
			MaxLOCAdded:      int32(m.MaxLOCAdded),
			AvgLOCAdded:      m.AvgLOCAdded,
			LOCDeleted:       int32(m.LOCDeleted),
			MaxLOCDeleted:    int32(m.MaxLOCDeleted),
			AvgLOCDeleted:    m.AvgLOCDeleted,
			Churn:            int32(m.Churn),
			MaxChurn:         int32(m.MaxChurn),
			AvgChurn:         m.AvgChurn,
			AuthorCount:      int32(m.AuthorCount),
			FixedDefectCount: int32(m.FixedDefectCount),
			IsBuggy:          m.IsBuggy,
		}
	}
	return result
}

// ConvertTicketRecords converts schema.TicketRecord to Ticket for Parquet export.
func ConvertTicketRecords(records []schema.TicketRecord) []Ticket {
	result := make([]Ticket, len(records))
	for i, r := range records {
		result[i] = Ticket(r)
	}
	return result
}

// ConvertEvaluationRows converts schema.EvaluationRow to Evaluation for Parquet export.
func ConvertEvaluationRows(rows []schema.EvaluationRow) []Evaluation {
	result := make([]Evaluation, len(rows))
	for i, r := range rows {
		result[i] = Evaluation{
			RunID:            r.RunID,
			Project:          r.Project,
			Iteration:        int32(r.Iteration),
			TrainingPercent:  r.TrainingPercent,
			Classifier:       r.Classifier,
			FeatureSelection: r.FeatureSelection,
			Sampling:         r.Sampling,
			CostSensitive:    r.CostSensitive,
			Precision:        r.Precision,
			Recall:           r.Recall,
			AUC:              r.AUC,
			Kappa:            r.Kappa,
			TP:               int32(r.TP),
			FP:               int32(r.FP),
			TN:               int32(r.TN),
			FN:               int32(r.FN),
		}
	}
	return result
}
