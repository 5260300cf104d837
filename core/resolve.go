package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/defectset/core/catalog"
	"github.com/huangsam/defectset/core/proportion"
	"github.com/huangsam/defectset/core/tickets"
	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/internal/jira"
	"github.com/huangsam/defectset/schema"
)

// loadCatalog fetches the versions of a project and indexes the dated ones.
func loadCatalog(ctx context.Context, tracker contract.TrackerClient, project string) (*catalog.Catalog, error) {
	versions, err := tracker.FetchVersions(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch versions of %s: %w", project, err)
	}
	cat := catalog.New(versions)
	if cat.Len() == 0 {
		return nil, fmt.Errorf("project %s has no dated releases", project)
	}
	return cat, nil
}

// resolveTickets fetches and resolves the fixed bugs of the project. When commits
// are given, tickets are associated with their fix commits and those without any are dropped.
func resolveTickets(ctx context.Context, cfg *contract.Config, clients Clients, cat *catalog.Catalog, commits []schema.Commit) (*tickets.Resolution, error) {
	raw, err := clients.Tracker.FetchTickets(ctx, cfg.Project)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tickets of %s: %w", cfg.Project, err)
	}

	est := proportion.NewEstimator(cfg.ProportionThreshold, coldStartPool(ctx, cfg, clients))
	res, err := tickets.NewResolver(cat, est).Resolve(raw)
	if err != nil {
		return nil, err
	}
	if commits != nil {
		tickets.Associate(res, commits, cat, cfg.CommitWindow)
	}

	logPhase(ctx, cfg, "🎫", "Tickets: %d fetched, %d resolved, %d adjusted, %d discarded",
		len(raw), len(res.Tickets), countAdjusted(res.Tickets), res.TotalDiscarded())
	return res, nil
}

// coldStartPool returns the loader of reference samples. Reference projects are
// only contacted when the estimator runs short of local samples.
func coldStartPool(ctx context.Context, cfg *contract.Config, clients Clients) proportion.ColdStartFunc {
	return func() ([]float64, error) {
		var pool []float64
		for _, project := range cfg.ColdStartProjects {
			samples, err := cachedColdStartSamples(ctx, cfg, clients, project)
			if errors.Is(err, jira.ErrProjectNotFound) {
				contract.LogWarn("Skipping cold-start project "+project, err)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("cold-start project %s: %w", project, err)
			}
			pool = append(pool, samples...)
		}
		logPhase(ctx, cfg, "🧊", "Cold start: %d samples from %d reference projects", len(pool), len(cfg.ColdStartProjects))
		return pool, nil
	}
}

// coldStartSamples resolves a reference project without adjustment and
// returns the proportion of each of its consistent tickets.
func coldStartSamples(ctx context.Context, tracker contract.TrackerClient, project string) ([]float64, error) {
	cat, err := loadCatalog(ctx, tracker, project)
	if err != nil {
		return nil, err
	}
	raw, err := tracker.FetchTickets(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tickets of %s: %w", project, err)
	}
	res, err := tickets.NewResolver(cat, nil).Resolve(raw)
	if err != nil {
		return nil, err
	}
	return proportion.SamplesOf(res.Tickets), nil
}

func countAdjusted(ts []*schema.Ticket) int {
	n := 0
	for _, t := range ts {
		if t.Adjusted {
			n++
		}
	}
	return n
}

// ticketReport builds the report of a resolution.
func ticketReport(project string, cat *catalog.Catalog, res *tickets.Resolution) schema.TicketReport {
	return schema.TicketReport{
		Project:          project,
		Releases:         cat.Releases(),
		Tickets:          res.Tickets,
		Adjusted:         countAdjusted(res.Tickets),
		Discarded:        res.Discarded,
		Proportion:       res.Proportion,
		ProportionSource: string(res.Source),
	}
}
