package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/huangsam/defectset/core/agg"
	"github.com/huangsam/defectset/core/label"
	"github.com/huangsam/defectset/core/walk"
	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/schema"
)

// RunReleases returns the dated release catalog of the project.
func RunReleases(ctx context.Context, cfg *contract.Config, clients Clients) ([]schema.Release, error) {
	if err := cfg.RequireProject(); err != nil {
		return nil, err
	}
	cat, err := loadCatalog(ctx, clients.Tracker, cfg.Project)
	if err != nil {
		return nil, err
	}
	logPhase(ctx, cfg, "📦", "Releases: %d dated", cat.Len())
	return cat.Releases(), nil
}

// RunTickets resolves the fixed bugs of the project. Tickets are associated with
// fix commits when a repository is configured.
func RunTickets(ctx context.Context, cfg *contract.Config, clients Clients) (schema.TicketReport, error) {
	if err := cfg.RequireProject(); err != nil {
		return schema.TicketReport{}, err
	}
	cat, err := loadCatalog(ctx, clients.Tracker, cfg.Project)
	if err != nil {
		return schema.TicketReport{}, err
	}
	logPhase(ctx, cfg, "📦", "Releases: %d dated", cat.Len())

	var commits []schema.Commit
	if cfg.RepoPath != "" {
		if commits, err = listCommits(ctx, cfg, clients.Git); err != nil {
			return schema.TicketReport{}, err
		}
	}
	res, err := resolveTickets(ctx, cfg, clients, cat, commits)
	if err != nil {
		return schema.TicketReport{}, err
	}
	return ticketReport(cfg.Project, cat, res), nil
}

// RunBuild runs the full pipeline: catalog, tickets, snapshots, labels, metrics,
// walk-forward partitions, dataset files and evaluation. Nothing is written
// until every labeling phase has completed.
func RunBuild(ctx context.Context, cfg *contract.Config, clients Clients) (schema.BuildSummary, error) {
	if err := cfg.RequireProject(); err != nil {
		return schema.BuildSummary{}, err
	}
	if !shouldSuppressHeader(ctx) {
		contract.LogBuildHeader(cfg)
	}

	store := datasetStore(clients.Manager)
	ctx = beginRun(ctx, cfg, store)

	summary, err := buildDataset(ctx, cfg, clients, store)
	if err != nil {
		abortRun(ctx, store)
		return schema.BuildSummary{}, err
	}
	return summary, nil
}

// buildDataset runs every phase of RunBuild after run tracking has started.
func buildDataset(ctx context.Context, cfg *contract.Config, clients Clients, store contract.DatasetStore) (schema.BuildSummary, error) {
	cat, err := loadCatalog(ctx, clients.Tracker, cfg.Project)
	if err != nil {
		return schema.BuildSummary{}, err
	}
	logPhase(ctx, cfg, "📦", "Releases: %d dated", cat.Len())

	commits, err := listCommits(ctx, cfg, clients.Git)
	if err != nil {
		return schema.BuildSummary{}, err
	}
	res, err := resolveTickets(ctx, cfg, clients, cat, commits)
	if err != nil {
		return schema.BuildSummary{}, err
	}

	changes := agg.NewChangeIndex(clients.Git, cfg.RepoPath, cfg.Workers)
	filter := func(p string) bool { return contract.IsSourceFile(p, cfg) }
	snapshots, err := agg.NewBinder(clients.Git, cfg.RepoPath, filter, cfg.Workers).Bind(ctx, cat, commits, changes)
	if err != nil {
		return schema.BuildSummary{}, err
	}
	if len(snapshots) == 0 {
		return schema.BuildSummary{}, errors.New("no release received any commit")
	}
	logPhase(ctx, cfg, "🧱", "Snapshots: %d releases with commits, %d diffs", len(snapshots), changes.Len())

	labeler := label.NewLabeler(cat, changes)
	stats, err := labeler.Label(ctx, res.Tickets, snapshots)
	if err != nil {
		return schema.BuildSummary{}, fmt.Errorf("failed to label releases: %w", err)
	}
	logPhase(ctx, cfg, "🐞", "Labels: %d buggy marks from %d fix commits", stats.BuggyMarks, stats.Commits)

	if err := agg.NewAggregator(cfg.Workers).Compute(ctx, snapshots); err != nil {
		return schema.BuildSummary{}, fmt.Errorf("failed to compute metrics: %w", err)
	}

	iterations, err := walk.NewSplitter(labeler).Split(ctx, snapshots, res.Tickets)
	if err != nil {
		return schema.BuildSummary{}, err
	}
	retained := walk.Retain(snapshots)
	logPhase(ctx, cfg, "🪜", "Walk-forward: %d retained releases, %d iterations", len(retained), len(iterations))

	files, records, err := writeDataset(ctx, cfg, clients, retained, iterations)
	if err != nil {
		return schema.BuildSummary{}, err
	}

	recordResults(ctx, store, retained, res.Tickets)
	recordEvaluations(ctx, store, records)
	endRun(ctx, store, len(retained), len(res.Tickets))

	return schema.BuildSummary{
		Project:          cfg.Project,
		Releases:         cat.Len(),
		RetainedReleases: len(retained),
		Tickets:          len(res.Tickets),
		AdjustedTickets:  countAdjusted(res.Tickets),
		Discarded:        res.Discarded,
		Proportion:       res.Proportion,
		ProportionSource: string(res.Source),
		Iterations:       len(iterations),
		Evaluations:      len(records),
		Files:            files,
		PerRelease:       releaseSummaries(snapshots, retained),
	}, nil
}

// writeDataset writes the metrics file, every iteration, and the evaluation report,
// forwarding each iteration to the evaluator as soon as its files exist.
// On failure every file written so far is removed.
func writeDataset(ctx context.Context, cfg *contract.Config, clients Clients, retained []*schema.ReleaseSnapshot, iterations []schema.WalkForwardIteration) ([]string, []schema.EvaluationRecord, error) {
	var files []string
	records, err := writeDatasetFiles(ctx, cfg, clients, retained, iterations, &files)
	if err != nil {
		discardFiles(cfg.OutputDir, files)
		return nil, nil, err
	}
	return files, records, nil
}

func writeDatasetFiles(ctx context.Context, cfg *contract.Config, clients Clients, retained []*schema.ReleaseSnapshot, iterations []schema.WalkForwardIteration, files *[]string) ([]schema.EvaluationRecord, error) {
	metricsPath, err := clients.Writer.WriteRelease(cfg.Project, retained)
	if err != nil {
		return nil, fmt.Errorf("failed to write release metrics: %w", err)
	}
	*files = append(*files, metricsPath)

	var records []schema.EvaluationRecord
	for _, it := range iterations {
		trainingPath, testingPath, err := clients.Writer.WriteIteration(cfg.Project, it)
		if err != nil {
			return nil, fmt.Errorf("failed to write iteration %d: %w", it.Number, err)
		}
		*files = append(*files, trainingPath, testingPath)

		if clients.Evaluator == nil {
			continue
		}
		got, err := clients.Evaluator.Evaluate(ctx, schema.EvaluationRequest{
			Project:         cfg.Project,
			Iteration:       it.Number,
			TrainingPath:    trainingPath,
			TestingPath:     testingPath,
			TrainingPercent: it.TrainingPercent(),
		})
		if err != nil {
			return nil, fmt.Errorf("evaluation of iteration %d failed: %w", it.Number, err)
		}
		records = append(records, got...)
	}

	if len(records) > 0 {
		reportPath, err := clients.Writer.WriteEvaluations(cfg.Project, records)
		if err != nil {
			return nil, fmt.Errorf("failed to write evaluation report: %w", err)
		}
		*files = append(*files, reportPath)
		logPhase(ctx, cfg, "📊", "Evaluation: %d records", len(records))
	}
	return records, nil
}

// discardFiles removes partially written dataset files and any subdirectory
// of outputDir they leave empty.
func discardFiles(outputDir string, files []string) {
	dirs := make(map[string]struct{})
	for _, f := range files {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			contract.LogWarn("Failed to remove partial dataset file "+f, err)
		}
		if dir := filepath.Dir(f); filepath.Clean(dir) != filepath.Clean(outputDir) {
			dirs[dir] = struct{}{}
		}
	}
	for dir := range dirs {
		_ = os.Remove(dir) // fails while other files remain
	}
}

func listCommits(ctx context.Context, cfg *contract.Config, git contract.GitClient) ([]schema.Commit, error) {
	commits, err := git.ListCommits(ctx, cfg.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list commits: %w", err)
	}
	if commits == nil {
		commits = []schema.Commit{}
	}
	return commits, nil
}

// releaseSummaries describes every snapshot, flagging those kept for the dataset.
func releaseSummaries(snapshots, retained []*schema.ReleaseSnapshot) []schema.ReleaseSummary {
	kept := make(map[int]bool, len(retained))
	for _, s := range retained {
		kept[s.Release.Index] = true
	}
	out := make([]schema.ReleaseSummary, len(snapshots))
	for i, s := range snapshots {
		out[i] = schema.ReleaseSummary{
			Index:      s.Release.Index,
			Name:       s.Release.Name,
			Commits:    len(s.Commits),
			Files:      len(s.Files),
			BuggyFiles: s.BuggyFileCount(),
			Retained:   kept[s.Release.Index],
		}
	}
	return out
}

