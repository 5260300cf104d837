// Package walk builds chronological training and testing partitions.
package walk

import (
	"context"
	"fmt"
	"sort"

	"github.com/huangsam/defectset/core/label"
	"github.com/huangsam/defectset/schema"
)

// Labeler relabels snapshots with a subset of tickets.
type Labeler interface {
	Label(ctx context.Context, tickets []*schema.Ticket, snapshots []*schema.ReleaseSnapshot) (label.Stats, error)
}

// Splitter produces walk-forward iterations.
type Splitter struct {
	labeler Labeler
}

// NewSplitter creates a splitter relabeling training data with labeler.
func NewSplitter(labeler Labeler) *Splitter {
	return &Splitter{labeler: labeler}
}

// Retain returns the first floor(N/2)+1 snapshots by release index.
// Later releases are dropped because their defects are mostly still undiscovered.
func Retain(snapshots []*schema.ReleaseSnapshot) []*schema.ReleaseSnapshot {
	if len(snapshots) == 0 {
		return nil
	}
	sorted := make([]*schema.ReleaseSnapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Release.Index < sorted[j].Release.Index })
	return sorted[:len(sorted)/2+1]
}

// Split returns one iteration per retained release after the first. Iteration i trains on
// the first i retained releases and tests on release i. Training snapshots are copies
// labeled only with tickets opened no later than the testing release; the testing
// snapshot keeps the labels it already carries.
func (s *Splitter) Split(ctx context.Context, snapshots []*schema.ReleaseSnapshot, tickets []*schema.Ticket) ([]schema.WalkForwardIteration, error) {
	retained := Retain(snapshots)
	var out []schema.WalkForwardIteration
	for i := 1; i < len(retained); i++ {
		testing := retained[i]

		training := make([]*schema.ReleaseSnapshot, i)
		for j, snap := range retained[:i] {
			training[j] = snap.Clone()
		}
		label.Reset(training)

		if _, err := s.labeler.Label(ctx, VisibleTickets(tickets, testing.Release.Index), training); err != nil {
			return nil, fmt.Errorf("label iteration %d: %w", i, err)
		}
		out = append(out, schema.WalkForwardIteration{Number: i, Training: training, Testing: testing})
	}
	return out, nil
}

// VisibleTickets returns the tickets whose opening release index is at most bound.
func VisibleTickets(tickets []*schema.Ticket, bound int) []*schema.Ticket {
	var out []*schema.Ticket
	for _, t := range tickets {
		if t.Opening <= bound {
			out = append(out, t)
		}
	}
	return out
}
