// Package core orchestrates the dataset pipeline: tracker retrieval, ticket
// resolution, release snapshots, labeling, metrics and walk-forward output.
package core

import (
	"context"
	"time"

	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/internal/outwriter"
	"github.com/huangsam/defectset/schema"
)

// ExecutorFunc defines the function signature for executing the different commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// ExecuteBuild builds the dataset and prints a summary.
// It serves as the main entry point for the 'build' command.
func ExecuteBuild(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	summary, duration, err := GetBuildResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteBuild(summary, cfg, duration)
}

// ExecuteReleases prints the dated release catalog of the project.
func ExecuteReleases(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	releases, _, err := GetReleaseResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteReleases(cfg.Project, releases, cfg)
}

// ExecuteTickets prints the resolved tickets of the project.
func ExecuteTickets(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	report, _, err := GetTicketResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteTickets(report, cfg)
}

// GetBuildResults runs a build with the production clients.
func GetBuildResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (schema.BuildSummary, time.Duration, error) {
	start := time.Now()
	clients, err := NewClients(cfg, mgr)
	if err != nil {
		return schema.BuildSummary{}, 0, err
	}
	summary, err := RunBuild(ctx, cfg, clients)
	return summary, time.Since(start), err
}

// GetReleaseResults lists releases with the production clients.
func GetReleaseResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) ([]schema.Release, time.Duration, error) {
	start := time.Now()
	clients, err := NewClients(cfg, mgr)
	if err != nil {
		return nil, 0, err
	}
	releases, err := RunReleases(ctx, cfg, clients)
	return releases, time.Since(start), err
}

// GetTicketResults resolves tickets with the production clients.
func GetTicketResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (schema.TicketReport, time.Duration, error) {
	start := time.Now()
	clients, err := NewClients(cfg, mgr)
	if err != nil {
		return schema.TicketReport{}, 0, err
	}
	report, err := RunTickets(ctx, cfg, clients)
	return report, time.Since(start), err
}
