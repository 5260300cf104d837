package core

import (
	"context"
	"time"

	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/schema"
)

// beginRun registers a build in the dataset store and returns a context carrying its ID.
// Store failures never abort the build.
func beginRun(ctx context.Context, cfg *contract.Config, store contract.DatasetStore) context.Context {
	if store == nil {
		return ctx
	}
	configParams := map[string]any{
		"project":              cfg.Project,
		"repo_path":            cfg.RepoPath,
		"tracker_url":          cfg.TrackerURL,
		"proportion_threshold": cfg.ProportionThreshold,
		"cold_start_projects":  cfg.ColdStartProjects,
		"source_exts":          cfg.SourceExts,
		"test_dirs":            cfg.TestDirs,
		"commit_window":        cfg.CommitWindow,
		"format":               string(cfg.Format),
		"workers":              cfg.Workers,
	}
	runID, err := store.BeginRun(cfg.Project, time.Now(), configParams)
	if err != nil {
		contract.LogWarn("Run tracking initialization failed", err)
		return ctx
	}
	return withRunID(ctx, runID)
}

// recordResults stores the snapshots and tickets of the tracked run.
func recordResults(ctx context.Context, store contract.DatasetStore, snapshots []*schema.ReleaseSnapshot, tickets []*schema.Ticket) {
	runID, ok := getRunID(ctx)
	if store == nil || !ok {
		return
	}
	for _, s := range snapshots {
		if err := store.RecordSnapshot(runID, s); err != nil {
			contract.LogWarn("Failed to record release "+s.Release.Name, err)
		}
	}
	if err := store.RecordTickets(runID, tickets); err != nil {
		contract.LogWarn("Failed to record tickets", err)
	}
}

// recordEvaluations stores the forwarded evaluation records of the tracked run.
func recordEvaluations(ctx context.Context, store contract.DatasetStore, records []schema.EvaluationRecord) {
	runID, ok := getRunID(ctx)
	if store == nil || !ok || len(records) == 0 {
		return
	}
	if err := store.RecordEvaluations(runID, records); err != nil {
		contract.LogWarn("Failed to record evaluations", err)
	}
}

// endRun finalizes the tracked run.
func endRun(ctx context.Context, store contract.DatasetStore, releases, tickets int) {
	runID, ok := getRunID(ctx)
	if store == nil || !ok {
		return
	}
	if err := store.EndRun(runID, time.Now(), releases, tickets); err != nil {
		contract.LogWarn("Failed to finalize run tracking", err)
	}
}

// abortRun closes a tracked run that failed before its results were recorded.
// The run keeps zero totals.
func abortRun(ctx context.Context, store contract.DatasetStore) {
	endRun(ctx, store, 0, 0)
}
