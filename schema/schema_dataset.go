package schema

// WalkForwardIteration is one chronological training/testing partition.
type WalkForwardIteration struct {
	Number   int                // 1-based iteration number
	Training []*ReleaseSnapshot // relabeled with information available at the testing release
	Testing  *ReleaseSnapshot   // globally labeled
}

// TrainingRows returns the number of file rows in the training set.
func (w WalkForwardIteration) TrainingRows() int {
	n := 0
	for _, s := range w.Training {
		n += len(s.Files)
	}
	return n
}

// TrainingPercent returns the share of training rows over all rows of the iteration.
func (w WalkForwardIteration) TrainingPercent() float64 {
	train := w.TrainingRows()
	total := train
	if w.Testing != nil {
		total += len(w.Testing.Files)
	}
	if total == 0 {
		return 0
	}
	return float64(train) / float64(total) * 100
}

// EvaluationRequest is what the external evaluation engine receives for one iteration.
type EvaluationRequest struct {
	Project         string  `json:"project"`
	Iteration       int     `json:"iteration"`
	TrainingPath    string  `json:"training_path"`
	TestingPath     string  `json:"testing_path"`
	TrainingPercent float64 `json:"training_percent"`
}

// EvaluationRecord is one result row produced by the external evaluation engine.
// Its fields are forwarded, never interpreted.
type EvaluationRecord struct {
	Project          string  `json:"project"`
	Iteration        int     `json:"iteration"`
	TrainingPercent  float64 `json:"training_percent"`
	Classifier       string  `json:"classifier"`
	FeatureSelection string  `json:"feature_selection"`
	Sampling         string  `json:"sampling"`
	CostSensitive    string  `json:"cost_sensitive"`
	Precision        float64 `json:"precision"`
	Recall           float64 `json:"recall"`
	AUC              float64 `json:"auc"`
	Kappa            float64 `json:"kappa"`
	TP               int     `json:"tp"`
	FP               int     `json:"fp"`
	TN               int     `json:"tn"`
	FN               int     `json:"fn"`
}

// BuildSummary describes the outcome of a full dataset build.
type BuildSummary struct {
	Project          string                `json:"project"`
	Releases         int                   `json:"releases"`
	RetainedReleases int                   `json:"retained_releases"`
	Tickets          int                   `json:"tickets"`
	AdjustedTickets  int                   `json:"adjusted_tickets"`
	Discarded        map[DiscardReason]int `json:"discarded"`
	Proportion       float64               `json:"proportion"`
	ProportionSource string                `json:"proportion_source"`
	Iterations       int                   `json:"iterations"`
	Evaluations      int                   `json:"evaluations"`
	Files            []string              `json:"files"`
	PerRelease       []ReleaseSummary      `json:"per_release"`
}

// ReleaseSummary describes one retained release of a build.
type ReleaseSummary struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Commits    int    `json:"commits"`
	Files      int    `json:"files"`
	BuggyFiles int    `json:"buggy_files"`
	Retained   bool   `json:"retained"`
}

// TicketReport is the outcome of resolving the tickets of a project.
type TicketReport struct {
	Project          string                `json:"project"`
	Releases         []Release             `json:"releases"`
	Tickets          []*Ticket             `json:"tickets"`
	Adjusted         int                   `json:"adjusted"`
	Discarded        map[DiscardReason]int `json:"discarded"`
	Proportion       float64               `json:"proportion"`
	ProportionSource string                `json:"proportion_source"`
}

// ReleaseName returns the name of the release at index i, or "-" when absent.
func (r TicketReport) ReleaseName(i int) string {
	if i < 0 || i >= len(r.Releases) {
		return "-"
	}
	return r.Releases[i].Name
}
