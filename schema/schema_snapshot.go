package schema

// FileMetrics holds the per-release metrics and labels of one source file.
type FileMetrics struct {
	Size             int     `json:"size"`
	LOCAdded         int     `json:"loc_added"`
	MaxLOCAdded      int     `json:"max_loc_added"`
	AvgLOCAdded      float64 `json:"avg_loc_added"`
	LOCDeleted       int     `json:"loc_deleted"`
	MaxLOCDeleted    int     `json:"max_loc_deleted"`
	AvgLOCDeleted    float64 `json:"avg_loc_deleted"`
	Churn            int     `json:"churn"`
	MaxChurn         int     `json:"max_churn"`
	AvgChurn         float64 `json:"avg_churn"`
	AuthorCount      int     `json:"author_count"`
	FixedDefectCount int     `json:"fixed_defect_count"`
	IsBuggy          bool    `json:"is_buggy"`
}

// FileCommit is a commit of a release window that touched a file.
type FileCommit struct {
	Commit Commit
	Change CommitChange
}

// SourceFile is a source file present in a release snapshot.
type SourceFile struct {
	Path    string       `json:"path"`
	Content string       `json:"-"`
	Commits []FileCommit `json:"-"`
	Metrics FileMetrics  `json:"metrics"`
}

// ReleaseSnapshot is the state of the source tree at the last commit of a release window.
type ReleaseSnapshot struct {
	Release    Release       `json:"release"`
	Commits    []Commit      `json:"-"`
	LastCommit Commit        `json:"last_commit"`
	Files      []*SourceFile `json:"files"`
}

// BuggyFileCount returns the number of files labeled buggy.
func (s *ReleaseSnapshot) BuggyFileCount() int {
	n := 0
	for _, f := range s.Files {
		if f.Metrics.IsBuggy {
			n++
		}
	}
	return n
}

// File returns the file at path, or nil.
func (s *ReleaseSnapshot) File(path string) *SourceFile {
	for _, f := range s.Files {
		if f.Path == path {
			return f
		}
	}
	return nil
}

// Clone returns a copy whose files can be relabeled without touching s.
// Content and commit history are shared.
func (s *ReleaseSnapshot) Clone() *ReleaseSnapshot {
	out := &ReleaseSnapshot{
		Release:    s.Release,
		Commits:    s.Commits,
		LastCommit: s.LastCommit,
		Files:      make([]*SourceFile, len(s.Files)),
	}
	for i, f := range s.Files {
		cp := *f
		out.Files[i] = &cp
	}
	return out
}
