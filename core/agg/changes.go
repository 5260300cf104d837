package agg

import (
	"context"
	"fmt"
	"sync"

	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/schema"
	"golang.org/x/sync/errgroup"
)

// ChangeIndex memoizes the change of every commit so each diff runs once per build.
type ChangeIndex struct {
	client   contract.GitClient
	repoPath string
	workers  int

	mu   sync.Mutex
	byID map[string]schema.CommitChange
}

// NewChangeIndex creates an empty change index.
func NewChangeIndex(client contract.GitClient, repoPath string, workers int) *ChangeIndex {
	return &ChangeIndex{
		client:   client,
		repoPath: repoPath,
		workers:  max(workers, 1),
		byID:     make(map[string]schema.CommitChange),
	}
}

// Get returns the change of a commit, diffing it on first use.
func (x *ChangeIndex) Get(ctx context.Context, commit schema.Commit) (schema.CommitChange, error) {
	x.mu.Lock()
	change, ok := x.byID[commit.ID]
	x.mu.Unlock()
	if ok {
		return change, nil
	}

	change, err := x.client.DiffWithParent(ctx, x.repoPath, commit)
	if err != nil {
		return nil, fmt.Errorf("diff commit %s: %w", commit.ID, err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if existing, ok := x.byID[commit.ID]; ok {
		return existing, nil
	}
	x.byID[commit.ID] = change
	return change, nil
}

// Prefetch diffs the given commits on a bounded worker group.
func (x *ChangeIndex) Prefetch(ctx context.Context, commits []schema.Commit) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.workers)
	for _, c := range commits {
		g.Go(func() error {
			_, err := x.Get(gctx, c)
			return err
		})
	}
	return g.Wait()
}

// Len returns the number of memoized changes.
func (x *ChangeIndex) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.byID)
}
