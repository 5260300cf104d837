// Package catalog holds the ordered, indexed release list of a project.
package catalog

import (
	"sort"
	"time"

	"github.com/huangsam/defectset/schema"
)

// Floor is the lower bound of the first release window.
var Floor = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// Catalog is an immutable list of releases sorted by date with dense indices.
type Catalog struct {
	releases []schema.Release
	byID     map[string]int
}

// New builds a catalog from tracker versions. Versions without a date are dropped.
// Releases are sorted by day, ties broken by name, and indexed from 0.
func New(raw []schema.RawVersion) *Catalog {
	var dated []schema.RawVersion
	for _, v := range raw {
		if v.HasDate {
			dated = append(dated, v)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		di, dj := DayOf(dated[i].Date), DayOf(dated[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return dated[i].Name < dated[j].Name
	})
	return &Catalog{releases: assignIndices(dated), byID: indexByID(dated)}
}

// assignIndices turns sorted versions into indexed releases.
func assignIndices(sorted []schema.RawVersion) []schema.Release {
	out := make([]schema.Release, len(sorted))
	for i, v := range sorted {
		out[i] = schema.Release{ID: v.ID, Name: v.Name, Index: i, Date: DayOf(v.Date)}
	}
	return out
}

func indexByID(sorted []schema.RawVersion) map[string]int {
	m := make(map[string]int, len(sorted))
	for i, v := range sorted {
		if _, dup := m[v.ID]; !dup {
			m[v.ID] = i
		}
	}
	return m
}

// DayOf truncates a time to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Len returns the number of releases.
func (c *Catalog) Len() int {
	return len(c.releases)
}

// Releases returns a copy of the ordered release list.
func (c *Catalog) Releases() []schema.Release {
	out := make([]schema.Release, len(c.releases))
	copy(out, c.releases)
	return out
}

// ReleaseByIndex returns the release at index i.
func (c *Catalog) ReleaseByIndex(i int) (schema.Release, bool) {
	if i < 0 || i >= len(c.releases) {
		return schema.Release{}, false
	}
	return c.releases[i], true
}

// IndexOfID returns the index of a tracker version ID.
func (c *Catalog) IndexOfID(id string) (int, bool) {
	i, ok := c.byID[id]
	return i, ok
}

// ReleaseAtOrAfter returns the first release whose date is not before the day of t.
func (c *Catalog) ReleaseAtOrAfter(t time.Time) (schema.Release, bool) {
	day := DayOf(t)
	i := sort.Search(len(c.releases), func(i int) bool {
		return !c.releases[i].Date.Before(day)
	})
	if i == len(c.releases) {
		return schema.Release{}, false
	}
	return c.releases[i], true
}

// AffectedReleases returns the indices of the half-open interval [injected, fixed).
// It is empty when injected is unknown or not before fixed.
func (c *Catalog) AffectedReleases(injected *int, fixed int) []int {
	if injected == nil || *injected >= fixed {
		return nil
	}
	lo := max(*injected, 0)
	hi := min(fixed, len(c.releases))
	var out []int
	for i := lo; i < hi; i++ {
		out = append(out, i)
	}
	return out
}

// IsAffected reports whether release index i lies in [injected, fixed).
func IsAffected(injected *int, fixed, i int) bool {
	return injected != nil && *injected <= i && i < fixed
}

// WindowStart returns the exclusive lower date bound of release i's commit window.
func (c *Catalog) WindowStart(i int) time.Time {
	if i <= 0 || i > len(c.releases) {
		return Floor
	}
	return c.releases[i-1].Date
}
