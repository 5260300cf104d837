package core

import (
	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/internal/evaluate"
	"github.com/huangsam/defectset/internal/jira"
	"github.com/huangsam/defectset/internal/outwriter"
)

// Clients bundles the collaborators of a pipeline run.
// Manager may be nil, which disables caching and run tracking.
type Clients struct {
	Git       contract.GitClient
	Tracker   contract.TrackerClient
	Writer    contract.DatasetWriter
	Evaluator contract.Evaluator
	Manager   contract.CacheManager
}

// NewClients wires the production collaborators for cfg.
func NewClients(cfg *contract.Config, mgr contract.CacheManager) (Clients, error) {
	ev, err := evaluate.New(cfg.EvaluatorCmd)
	if err != nil {
		return Clients{}, err
	}
	return Clients{
		Git: contract.NewLocalGitClient(),
		Tracker: jira.NewClient(jira.Options{
			BaseURL:  cfg.TrackerURL,
			PageSize: cfg.PageSize,
			Retries:  cfg.Retries,
			Timeout:  cfg.HTTPTimeout,
			Cache:    trackerStore(mgr),
		}),
		Writer:    outwriter.NewDatasetWriter(cfg.OutputDir, cfg.Format),
		Evaluator: ev,
		Manager:   mgr,
	}, nil
}

func trackerStore(mgr contract.CacheManager) contract.CacheStore {
	if mgr == nil {
		return nil
	}
	return mgr.GetTrackerStore()
}

func datasetStore(mgr contract.CacheManager) contract.DatasetStore {
	if mgr == nil {
		return nil
	}
	return mgr.GetDatasetStore()
}
