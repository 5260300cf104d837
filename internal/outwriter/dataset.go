package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/internal/parquet"
	"github.com/huangsam/defectset/schema"
)

// Dataset subdirectories.
const (
	TrainingDir = "training"
	TestingDir  = "testing"
)

// datasetHeader names the columns of csv dataset files, in row order.
var datasetHeader = []string{
	"release_index", "release_name", "file_path",
	"size", "loc_added", "max_loc_added", "avg_loc_added",
	"loc_deleted", "max_loc_deleted", "avg_loc_deleted",
	"churn", "max_churn", "avg_churn",
	"author_count", "fixed_defect_count", "buggy",
}

// evaluationHeader names the columns of the classifiers report.
var evaluationHeader = []string{
	"project", "iteration", "training_percent", "classifier", "feature_selection",
	"sampling", "cost_sensitive", "precision", "recall", "auc", "kappa",
	"tp", "fp", "tn", "fn",
}

// DatasetWriter writes dataset files under a directory in one format.
type DatasetWriter struct {
	dir    string
	format schema.DatasetFormat
}

var _ contract.DatasetWriter = &DatasetWriter{} // Compile-time check

// NewDatasetWriter creates a writer rooted at dir.
func NewDatasetWriter(dir string, format schema.DatasetFormat) *DatasetWriter {
	if format == "" {
		format = schema.CSVFormat
	}
	return &DatasetWriter{dir: dir, format: format}
}

// MetricsPath returns the path of the file holding every retained release.
func (dw *DatasetWriter) MetricsPath(project string) string {
	return filepath.Join(dw.dir, project+"_metrics"+dw.format.Extension())
}

// TrainingPath returns the training file path of an iteration.
func (dw *DatasetWriter) TrainingPath(project string, iteration int) string {
	return filepath.Join(dw.dir, TrainingDir, fmt.Sprintf("%s_TRAINING_%d%s", project, iteration, dw.format.Extension()))
}

// TestingPath returns the testing file path of an iteration.
func (dw *DatasetWriter) TestingPath(project string, iteration int) string {
	return filepath.Join(dw.dir, TestingDir, fmt.Sprintf("%s_TESTING_%d%s", project, iteration, dw.format.Extension()))
}

// ReportPath returns the path of the classifiers report.
func (dw *DatasetWriter) ReportPath(project string) string {
	return filepath.Join(dw.dir, project+"_classifiers_report.csv")
}

// WriteRelease writes one row per file of every snapshot.
func (dw *DatasetWriter) WriteRelease(project string, snapshots []*schema.ReleaseSnapshot) (string, error) {
	path := dw.MetricsPath(project)
	if err := dw.writeRows(path, project+"_metrics", parquet.ConvertSnapshots(snapshots)); err != nil {
		return "", err
	}
	return path, nil
}

// WriteIteration writes the training and testing files of a walk-forward iteration.
func (dw *DatasetWriter) WriteIteration(project string, it schema.WalkForwardIteration) (string, string, error) {
	trainingPath := dw.TrainingPath(project, it.Number)
	relation := fmt.Sprintf("%s_TRAINING_%d", project, it.Number)
	if err := dw.writeRows(trainingPath, relation, parquet.ConvertSnapshots(it.Training)); err != nil {
		return "", "", err
	}

	testingPath := dw.TestingPath(project, it.Number)
	var testing []*schema.ReleaseSnapshot
	if it.Testing != nil {
		testing = append(testing, it.Testing)
	}
	relation = fmt.Sprintf("%s_TESTING_%d", project, it.Number)
	if err := dw.writeRows(testingPath, relation, parquet.ConvertSnapshots(testing)); err != nil {
		return "", "", err
	}
	return trainingPath, testingPath, nil
}

// WriteEvaluations writes forwarded evaluation records as csv.
func (dw *DatasetWriter) WriteEvaluations(project string, records []schema.EvaluationRecord) (string, error) {
	path := dw.ReportPath(project)
	err := createWith(path, func(w io.Writer) error {
		return writeCSVWithHeader(w, evaluationHeader, func(cw *csv.Writer) error {
			for _, r := range records {
				if err := cw.Write(evaluationRecord(r)); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func (dw *DatasetWriter) writeRows(path, relation string, rows []parquet.DatasetRow) error {
	switch dw.format {
	case schema.ParquetFormat:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create dataset directory: %w", err)
		}
		if rows == nil {
			rows = []parquet.DatasetRow{}
		}
		return parquet.Write(rows, path)
	case schema.JSONFormat:
		if rows == nil {
			rows = []parquet.DatasetRow{}
		}
		return createWith(path, func(w io.Writer) error { return writeJSON(w, rows) })
	case schema.ARFFFormat:
		return createWith(path, func(w io.Writer) error { return writeARFF(w, relation, rows) })
	case schema.CSVFormat:
		return createWith(path, func(w io.Writer) error {
			return writeCSVWithHeader(w, datasetHeader, func(cw *csv.Writer) error {
				for _, r := range rows {
					if err := cw.Write(datasetRecord(r)); err != nil {
						return err
					}
				}
				return nil
			})
		})
	default:
		return fmt.Errorf("unsupported dataset format: %s", dw.format)
	}
}

// createWith creates path and its parent directories and hands the file to write.
func createWith(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create dataset directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func itoa(v int32) string {
	return strconv.FormatInt(int64(v), 10)
}

// metricValues returns the numeric columns of a row, in header order.
func metricValues(r parquet.DatasetRow) []string {
	return []string{
		itoa(r.Size), itoa(r.LOCAdded), itoa(r.MaxLOCAdded), formatFloat(r.AvgLOCAdded),
		itoa(r.LOCDeleted), itoa(r.MaxLOCDeleted), formatFloat(r.AvgLOCDeleted),
		itoa(r.Churn), itoa(r.MaxChurn), formatFloat(r.AvgChurn),
		itoa(r.AuthorCount), itoa(r.FixedDefectCount),
	}
}

func datasetRecord(r parquet.DatasetRow) []string {
	rec := []string{itoa(r.ReleaseIndex), r.ReleaseName, r.FilePath}
	rec = append(rec, metricValues(r)...)
	return append(rec, r.Buggy)
}

func evaluationRecord(r schema.EvaluationRecord) []string {
	return []string{
		r.Project, strconv.Itoa(r.Iteration), formatFloat(r.TrainingPercent),
		r.Classifier, r.FeatureSelection, r.Sampling, r.CostSensitive,
		formatFloat(r.Precision), formatFloat(r.Recall), formatFloat(r.AUC), formatFloat(r.Kappa),
		strconv.Itoa(r.TP), strconv.Itoa(r.FP), strconv.Itoa(r.TN), strconv.Itoa(r.FN),
	}
}

// writeARFF writes the numeric metrics and the nominal class as the last attribute.
// Release and path identifiers are left out so classifiers see only features.
func writeARFF(w io.Writer, relation string, rows []parquet.DatasetRow) error {
	var b strings.Builder
	fmt.Fprintf(&b, "@relation %s\n\n", relation)
	for _, name := range datasetHeader[3 : len(datasetHeader)-1] {
		fmt.Fprintf(&b, "@attribute %s numeric\n", name)
	}
	fmt.Fprintf(&b, "@attribute buggy {%s,%s}\n\n@data\n", contract.DatasetYes, contract.DatasetNo)
	for _, r := range rows {
		b.WriteString(strings.Join(append(metricValues(r), r.Buggy), ","))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
