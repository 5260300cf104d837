// Package tickets resolves tracker bug reports into injected, opening and fixed releases.
package tickets

import (
	"fmt"
	"sort"

	"github.com/huangsam/defectset/core/catalog"
	"github.com/huangsam/defectset/core/proportion"
	"github.com/huangsam/defectset/schema"
)

// Resolution is the outcome of resolving a batch of tickets.
type Resolution struct {
	Tickets    []*schema.Ticket // accepted, ascending resolution date
	Discarded  map[schema.DiscardReason]int
	Adjusted   int
	Proportion float64           // last estimate applied
	Source     proportion.Source // where the last estimate came from
}

// Discard counts a dropped ticket.
func (r *Resolution) Discard(reason schema.DiscardReason) {
	r.Discarded[reason]++
}

// TotalDiscarded returns the number of dropped tickets.
func (r *Resolution) TotalDiscarded() int {
	n := 0
	for _, v := range r.Discarded {
		n += v
	}
	return n
}

// Resolver maps raw tickets onto a catalog.
type Resolver struct {
	cat *catalog.Catalog
	est *proportion.Estimator
}

// NewResolver creates a resolver. est may be nil to resolve without adjustment.
func NewResolver(cat *catalog.Catalog, est *proportion.Estimator) *Resolver {
	return &Resolver{cat: cat, est: est}
}

// Resolve assigns release indices, adjusts inconsistent tickets with the proportion
// estimate, and drops tickets that stay invalid.
func (r *Resolver) Resolve(raw []schema.RawTicket) (*Resolution, error) {
	res := &Resolution{Discarded: make(map[schema.DiscardReason]int)}

	var pending []*schema.Ticket
	for _, rt := range raw {
		t, ok := r.direct(rt)
		if !ok {
			res.Discard(schema.DiscardNoRelease)
			continue
		}
		pending = append(pending, t)
	}

	sort.SliceStable(pending, func(i, j int) bool {
		if !pending[i].Resolved.Equal(pending[j].Resolved) {
			return pending[i].Resolved.Before(pending[j].Resolved)
		}
		return pending[i].Key < pending[j].Key
	})

	for _, t := range pending {
		if t.IsConsistent() {
			if r.est != nil {
				r.est.Observe(*t.Injected, t.Opening, t.Fixed)
			}
		} else if r.est != nil && t.Opening <= t.Fixed {
			p, src, err := r.est.Current()
			if err != nil {
				return nil, fmt.Errorf("estimate injected release of %s: %w", t.Key, err)
			}
			t.Injected = schema.IntPtr(proportion.Apply(t.Opening, t.Fixed, p))
			t.Adjusted = true
			res.Adjusted++
			res.Proportion, res.Source = p, src
		}

		if reason, drop := validate(t); drop {
			res.Discard(reason)
			continue
		}
		res.Tickets = append(res.Tickets, t)
	}
	return res, nil
}

// direct resolves the releases reported or implied by the tracker.
func (r *Resolver) direct(rt schema.RawTicket) (*schema.Ticket, bool) {
	opening, ok := r.cat.ReleaseAtOrAfter(rt.Created)
	if !ok {
		return nil, false
	}
	fixed, ok := r.cat.ReleaseAtOrAfter(rt.Resolved)
	if !ok {
		return nil, false
	}
	t := &schema.Ticket{
		Key:      rt.Key,
		Created:  rt.Created,
		Resolved: rt.Resolved,
		Opening:  opening.Index,
		Fixed:    fixed.Index,
	}
	for _, id := range rt.AffectedVersions {
		i, ok := r.cat.IndexOfID(id)
		if !ok {
			continue
		}
		if t.Injected == nil || i < *t.Injected {
			t.Injected = schema.IntPtr(i)
		}
	}
	return t, true
}

// validate applies the final discard rules.
func validate(t *schema.Ticket) (schema.DiscardReason, bool) {
	switch {
	case t.Opening > t.Fixed:
		return schema.DiscardInvalidOrder, true
	case t.Injected != nil && *t.Injected >= t.Opening:
		return schema.DiscardInvalidOrder, true
	case !t.IsConsistent():
		return schema.DiscardInconsistent, true
	}
	return "", false
}
