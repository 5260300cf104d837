// Package schema has models, enums and status types shared by all parts of defectset.
package schema

import "time"

// RawVersion is a release as reported by the issue tracker, before indexing.
type RawVersion struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Date     time.Time `json:"date"`
	Released bool      `json:"released"`
	HasDate  bool      `json:"has_date"` // false when the tracker reported no release date
}

// Release is an indexed, dated version of the project.
// Index is dense from 0 and strictly increasing in Date order.
type Release struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Index int       `json:"index"`
	Date  time.Time `json:"date"`
}

// RawTicket is a fixed bug report as returned by the issue tracker.
type RawTicket struct {
	Key              string    `json:"key"`
	Created          time.Time `json:"created"`
	Resolved         time.Time `json:"resolved"`
	AffectedVersions []string  `json:"affected_versions"` // tracker version IDs
}

// Ticket is a resolved bug report. Release positions are catalog indices.
type Ticket struct {
	Key      string    `json:"key"`
	Created  time.Time `json:"created"`
	Resolved time.Time `json:"resolved"`

	Injected *int `json:"injected"` // nil until reported or estimated
	Opening  int  `json:"opening"`
	Fixed    int  `json:"fixed"`
	Adjusted bool `json:"adjusted"` // Injected was estimated by proportion

	Commits    []Commit `json:"-"`
	LastCommit *Commit  `json:"-"`
}

// IsConsistent reports whether injected <= opening <= fixed holds with a known injected release.
func (t *Ticket) IsConsistent() bool {
	return t.Injected != nil && *t.Injected <= t.Opening && t.Opening <= t.Fixed
}

// InjectedIndex returns the injected index, or -1 when unknown.
func (t *Ticket) InjectedIndex() int {
	if t.Injected == nil {
		return -1
	}
	return *t.Injected
}

// IntPtr returns a pointer to a copy of v.
func IntPtr(v int) *int {
	return &v
}
