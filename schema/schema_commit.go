package schema

import "time"

// Commit is a single version-control commit.
type Commit struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Time      time.Time `json:"time"`
	Message   string    `json:"message"`
	ParentIDs []string  `json:"parent_ids"`
}

// IsRoot reports whether the commit has no parent.
func (c Commit) IsRoot() bool {
	return len(c.ParentIDs) == 0
}

// FileChange is the line delta of one path in a commit against its first parent.
type FileChange struct {
	Path    string `json:"path"`
	Added   int    `json:"added"`
	Deleted int    `json:"deleted"`
}

// CommitChange is the set of paths touched by a commit.
// It is either a RootCommitChange or a DiffChange.
type CommitChange interface {
	// Commit returns the ID of the commit described.
	Commit() string
	// ChangedPaths returns every path considered changed by the commit.
	ChangedPaths() []string
	isCommitChange()
}

// RootCommitChange describes a commit without parent: every file of its tree counts as changed
// and no line samples exist.
type RootCommitChange struct {
	CommitID string
	Paths    []string
}

// DiffChange describes a commit diffed against its first parent.
type DiffChange struct {
	CommitID string
	ParentID string
	Files    []FileChange
}

// Commit implements CommitChange.
func (r RootCommitChange) Commit() string { return r.CommitID }

// ChangedPaths implements CommitChange.
func (r RootCommitChange) ChangedPaths() []string { return r.Paths }

func (RootCommitChange) isCommitChange() {}

// Commit implements CommitChange.
func (d DiffChange) Commit() string { return d.CommitID }

// ChangedPaths implements CommitChange.
func (d DiffChange) ChangedPaths() []string {
	paths := make([]string, len(d.Files))
	for i, f := range d.Files {
		paths[i] = f.Path
	}
	return paths
}

// Lookup returns the change recorded for path.
func (d DiffChange) Lookup(path string) (FileChange, bool) {
	for _, f := range d.Files {
		if f.Path == path {
			return f, true
		}
	}
	return FileChange{}, false
}

func (DiffChange) isCommitChange() {}
