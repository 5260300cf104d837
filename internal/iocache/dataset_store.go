package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/schema"
)

// Table names of the dataset store.
const (
	runsTable        = "defectset_runs"
	fileMetricsTable = "defectset_file_metrics"
	ticketsTable     = "defectset_tickets"
	evaluationsTable = "defectset_evaluations"
)

// datasetTables lists every table created by the dataset store migrations.
var datasetTables = []string{runsTable, fileMetricsTable, ticketsTable, evaluationsTable}

var fileMetricColumns = []string{
	"run_id", "release_index", "release_name", "file_path",
	"size", "loc_added", "max_loc_added", "avg_loc_added",
	"loc_deleted", "max_loc_deleted", "avg_loc_deleted",
	"churn", "max_churn", "avg_churn",
	"author_count", "fixed_defect_count", "is_buggy",
}

var ticketColumns = []string{
	"run_id", "ticket_key", "injected", "opening", "fixed", "adjusted", "commit_count", "last_commit",
}

var evaluationColumns = []string{
	"run_id", "project", "iteration", "training_percent", "classifier", "feature_selection",
	"sampling", "cost_sensitive", "precision_score", "recall_score", "auc_score", "kappa_score",
	"tp", "fp", "tn", "fn",
}

// DatasetStoreImpl implements the DatasetStore interface.
type DatasetStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.DatasetStore = &DatasetStoreImpl{} // Compile-time check

// NewDatasetStore opens the dataset store and migrates it to the latest schema.
func NewDatasetStore(backend schema.DatabaseBackend, connStr string) (contract.DatasetStore, error) {
	if backend == schema.NoneBackend {
		return &DatasetStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, GetStoreDBFilePath())
	if err != nil {
		return nil, err
	}
	m, err := newMigrator(db, backend)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := applyMigrations(m, -1); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create dataset tables: %w", err)
	}
	return &DatasetStoreImpl{db: db, backend: backend}, nil
}

func (ds *DatasetStoreImpl) disabled() bool {
	return ds.backend == schema.NoneBackend || ds.db == nil
}

func (ds *DatasetStoreImpl) table(name string) string {
	return quoteTableName(name, ds.backend)
}

func (ds *DatasetStoreImpl) insertQuery(table string, columns []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ds.table(table), strings.Join(columns, ", "), placeholders(ds.backend, len(columns)))
}

// BeginRun creates a new build run and returns its unique ID.
func (ds *DatasetStoreImpl) BeginRun(project string, startTime time.Time, configParams map[string]any) (int64, error) {
	if ds.disabled() {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	var runID int64
	switch ds.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (project, start_time, config_params) VALUES ($1, $2, $3) RETURNING run_id`, ds.table(runsTable))
		err = ds.db.QueryRow(query, project, startTime, string(configJSON)).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (project, start_time, config_params) VALUES (?, ?, ?)`, ds.table(runsTable))
		var result sql.Result
		result, err = ds.db.Exec(query, project, formatTime(startTime, ds.backend), string(configJSON))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

// EndRun updates the run with completion data.
func (ds *DatasetStoreImpl) EndRun(runID int64, endTime time.Time, totalReleases, totalTickets int) error {
	if ds.disabled() {
		return nil
	}

	start := timeScanner{backend: ds.backend}
	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, ds.table(runsTable), placeholders(ds.backend, 1))
	if err := ds.db.QueryRow(query, runID).Scan(start.dest()); err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	startTime, err := start.value()
	if err != nil || startTime == nil {
		return fmt.Errorf("failed to read start_time for run %d: %w", runID, err)
	}

	durationMs := endTime.Sub(*startTime).Milliseconds()
	var update string
	if ds.backend == schema.PostgreSQLBackend {
		update = fmt.Sprintf(`UPDATE %s SET end_time = $1, run_duration_ms = $2, total_releases = $3, total_tickets = $4 WHERE run_id = $5`, ds.table(runsTable))
	} else {
		update = fmt.Sprintf(`UPDATE %s SET end_time = ?, run_duration_ms = ?, total_releases = ?, total_tickets = ? WHERE run_id = ?`, ds.table(runsTable))
	}
	if _, err := ds.db.Exec(update, formatTime(endTime, ds.backend), durationMs, totalReleases, totalTickets, runID); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// RecordSnapshot stores one metric row per file of a release.
func (ds *DatasetStoreImpl) RecordSnapshot(runID int64, snapshot *schema.ReleaseSnapshot) error {
	if ds.disabled() {
		return nil
	}
	return ds.inTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(ds.insertQuery(fileMetricsTable, fileMetricColumns))
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for _, f := range snapshot.Files {
			m := f.Metrics
			if _, err := stmt.Exec(
				runID, snapshot.Release.Index, snapshot.Release.Name, f.Path,
				m.Size, m.LOCAdded, m.MaxLOCAdded, m.AvgLOCAdded,
				m.LOCDeleted, m.MaxLOCDeleted, m.AvgLOCDeleted,
				m.Churn, m.MaxChurn, m.AvgChurn,
				m.AuthorCount, m.FixedDefectCount, m.IsBuggy,
			); err != nil {
				return fmt.Errorf("failed to insert metrics of %s: %w", f.Path, err)
			}
		}
		return nil
	})
}

// RecordTickets stores the resolved tickets of a run.
func (ds *DatasetStoreImpl) RecordTickets(runID int64, tickets []*schema.Ticket) error {
	if ds.disabled() {
		return nil
	}
	return ds.inTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(ds.insertQuery(ticketsTable, ticketColumns))
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for _, t := range tickets {
			last := ""
			if t.LastCommit != nil {
				last = t.LastCommit.ID
			}
			if _, err := stmt.Exec(runID, t.Key, t.InjectedIndex(), t.Opening, t.Fixed, t.Adjusted, len(t.Commits), last); err != nil {
				return fmt.Errorf("failed to insert ticket %s: %w", t.Key, err)
			}
		}
		return nil
	})
}

// RecordEvaluations stores forwarded evaluation records.
func (ds *DatasetStoreImpl) RecordEvaluations(runID int64, records []schema.EvaluationRecord) error {
	if ds.disabled() || len(records) == 0 {
		return nil
	}
	return ds.inTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(ds.insertQuery(evaluationsTable, evaluationColumns))
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for _, r := range records {
			if _, err := stmt.Exec(
				runID, r.Project, r.Iteration, r.TrainingPercent, r.Classifier, r.FeatureSelection,
				r.Sampling, r.CostSensitive, r.Precision, r.Recall, r.AUC, r.Kappa,
				r.TP, r.FP, r.TN, r.FN,
			); err != nil {
				return fmt.Errorf("failed to insert evaluation record: %w", err)
			}
		}
		return nil
	})
}

func (ds *DatasetStoreImpl) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := ds.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close closes the underlying connection.
func (ds *DatasetStoreImpl) Close() error {
	if ds.db != nil {
		return ds.db.Close()
	}
	return nil
}

// GetStatus returns status information about the dataset store.
func (ds *DatasetStoreImpl) GetStatus() (schema.DatasetStatus, error) {
	status := schema.DatasetStatus{
		Backend:    string(ds.backend),
		Connected:  ds.db != nil,
		TableSizes: make(map[string]int64),
	}
	if ds.disabled() {
		return status, nil
	}

	for _, table := range datasetTables {
		var count int64
		if err := ds.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", ds.table(table))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TotalRuns = int(status.TableSizes[runsTable])
	status.TotalFileRows = int(status.TableSizes[fileMetricsTable])
	status.TotalEvaluations = int(status.TableSizes[evaluationsTable])
	if status.TotalRuns == 0 {
		return status, nil
	}

	last := timeScanner{backend: ds.backend}
	row := ds.db.QueryRow(fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", ds.table(runsTable)))
	if err := row.Scan(&status.LastRunID, last.dest()); err != nil {
		return status, fmt.Errorf("failed to get last run info: %w", err)
	}
	if t, err := last.value(); err != nil {
		return status, err
	} else if t != nil {
		status.LastRunTime = *t
	}

	oldest := timeScanner{backend: ds.backend}
	row = ds.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", ds.table(runsTable)))
	if err := row.Scan(oldest.dest()); err != nil {
		return status, fmt.Errorf("failed to get oldest run time: %w", err)
	}
	if t, err := oldest.value(); err != nil {
		return status, err
	} else if t != nil {
		status.OldestRunTime = *t
	}
	return status, nil
}

// GetAllRuns retrieves all runs from the store.
func (ds *DatasetStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	if ds.disabled() {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT run_id, project, start_time, end_time, run_duration_ms, total_releases, total_tickets, config_params
		FROM %s ORDER BY run_id`, ds.table(runsTable))
	rows, err := ds.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var r schema.RunRecord
		start := timeScanner{backend: ds.backend}
		end := timeScanner{backend: ds.backend}
		var releases, tickets sql.NullInt32
		if err := rows.Scan(&r.RunID, &r.Project, start.dest(), end.dest(), &r.RunDurationMs, &releases, &tickets, &r.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		startTime, err := start.value()
		if err != nil {
			return nil, err
		}
		if startTime != nil {
			r.StartTime = *startTime
		}
		if r.EndTime, err = end.value(); err != nil {
			return nil, err
		}
		r.TotalReleases = releases.Int32
		r.TotalTickets = tickets.Int32
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// GetAllFileMetrics retrieves all file metric rows from the store.
func (ds *DatasetStoreImpl) GetAllFileMetrics() ([]schema.FileMetricRecord, error) {
	if ds.disabled() {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY run_id, release_index, file_path",
		strings.Join(fileMetricColumns, ", "), ds.table(fileMetricsTable))
	rows, err := ds.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query file metrics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.FileMetricRecord
	for rows.Next() {
		var r schema.FileMetricRecord
		m := &r.Metrics
		if err := rows.Scan(
			&r.RunID, &r.ReleaseIndex, &r.ReleaseName, &r.FilePath,
			&m.Size, &m.LOCAdded, &m.MaxLOCAdded, &m.AvgLOCAdded,
			&m.LOCDeleted, &m.MaxLOCDeleted, &m.AvgLOCDeleted,
			&m.Churn, &m.MaxChurn, &m.AvgChurn,
			&m.AuthorCount, &m.FixedDefectCount, &m.IsBuggy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan file metrics: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating file metrics: %w", err)
	}
	return results, nil
}

// GetAllTickets retrieves all ticket rows from the store.
func (ds *DatasetStoreImpl) GetAllTickets() ([]schema.TicketRecord, error) {
	if ds.disabled() {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY run_id, ticket_key",
		strings.Join(ticketColumns, ", "), ds.table(ticketsTable))
	rows, err := ds.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.TicketRecord
	for rows.Next() {
		var r schema.TicketRecord
		if err := rows.Scan(&r.RunID, &r.TicketKey, &r.Injected, &r.Opening, &r.Fixed, &r.Adjusted, &r.Commits, &r.LastCommit); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}
	return results, nil
}

// GetAllEvaluations retrieves all evaluation rows from the store.
func (ds *DatasetStoreImpl) GetAllEvaluations() ([]schema.EvaluationRow, error) {
	if ds.disabled() {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY run_id, evaluation_id",
		strings.Join(evaluationColumns, ", "), ds.table(evaluationsTable))
	rows, err := ds.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.EvaluationRow
	for rows.Next() {
		var r schema.EvaluationRow
		if err := rows.Scan(
			&r.RunID, &r.Project, &r.Iteration, &r.TrainingPercent, &r.Classifier, &r.FeatureSelection,
			&r.Sampling, &r.CostSensitive, &r.Precision, &r.Recall, &r.AUC, &r.Kappa,
			&r.TP, &r.FP, &r.TN, &r.FN,
		); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evaluations: %w", err)
	}
	return results, nil
}
