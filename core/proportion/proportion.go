// Package proportion estimates missing injected releases with the proportion technique.
//
// For a ticket with injected (IV), opening (OV) and fixed (FV) release indices,
// the proportion is P = (FV - IV) / (FV - OV). The running mean of P over
// previously resolved tickets predicts IV = FV - (FV - OV) * P for tickets
// whose injected release is unknown or inconsistent.
package proportion

import (
	"errors"
	"fmt"
	"math"

	"github.com/huangsam/defectset/schema"
)

// DefaultThreshold is the number of local samples needed before the local mean is trusted.
const DefaultThreshold = 5

// ErrEmptyColdStart is returned when the cold-start estimate is needed but no reference sample exists.
var ErrEmptyColdStart = errors.New("cold-start pool has no qualifying tickets")

// Source names where an estimate came from.
type Source string

// Estimate sources.
const (
	SourceLocal     Source = "local"
	SourceColdStart Source = "cold_start"
)

// ColdStartFunc loads proportion samples from reference projects.
// It is called at most once, and only when the local samples are insufficient.
type ColdStartFunc func() ([]float64, error)

// Estimator keeps a running mean of local proportion samples.
type Estimator struct {
	threshold int
	sum       float64
	count     int

	coldStart  ColdStartFunc
	coldLoaded bool
	coldMean   float64
	coldErr    error
}

// NewEstimator creates an estimator. A threshold below 1 falls back to DefaultThreshold.
func NewEstimator(threshold int, coldStart ColdStartFunc) *Estimator {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return &Estimator{threshold: threshold, coldStart: coldStart}
}

// Sample computes the proportion of a triple.
// A triple qualifies only when fv != ov and ov != iv.
func Sample(iv, ov, fv int) (float64, bool) {
	if fv == ov || ov == iv {
		return 0, false
	}
	return float64(fv-iv) / float64(fv-ov), true
}

// Observe records the proportion of a consistent ticket and reports whether it qualified.
func (e *Estimator) Observe(iv, ov, fv int) bool {
	p, ok := Sample(iv, ov, fv)
	if !ok {
		return false
	}
	e.sum += p
	e.count++
	return true
}

// Samples returns the number of local samples recorded.
func (e *Estimator) Samples() int {
	return e.count
}

// UseColdStart reports whether the next estimate comes from the cold-start pool.
func (e *Estimator) UseColdStart() bool {
	return e.count < e.threshold
}

// Current returns the proportion to apply now.
func (e *Estimator) Current() (float64, Source, error) {
	if !e.UseColdStart() {
		return e.sum / float64(e.count), SourceLocal, nil
	}
	if !e.coldLoaded {
		e.coldLoaded = true
		e.coldMean, e.coldErr = e.loadColdStart()
	}
	return e.coldMean, SourceColdStart, e.coldErr
}

func (e *Estimator) loadColdStart() (float64, error) {
	if e.coldStart == nil {
		return 0, ErrEmptyColdStart
	}
	samples, err := e.coldStart()
	if err != nil {
		return 0, fmt.Errorf("load cold-start pool: %w", err)
	}
	return MeanOf(samples)
}

// MeanOf returns the mean of samples, or ErrEmptyColdStart when there are none.
func MeanOf(samples []float64) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrEmptyColdStart
	}
	sum := 0.0
	for _, p := range samples {
		sum += p
	}
	return sum / float64(len(samples)), nil
}

// SamplesOf extracts qualifying samples from consistent tickets.
func SamplesOf(tickets []*schema.Ticket) []float64 {
	var out []float64
	for _, t := range tickets {
		if !t.IsConsistent() {
			continue
		}
		if p, ok := Sample(*t.Injected, t.Opening, t.Fixed); ok {
			out = append(out, p)
		}
	}
	return out
}

// Apply predicts the injected index from opening, fixed and a proportion.
// The result is never negative.
func Apply(ov, fv int, p float64) int {
	var iv float64
	if fv == ov {
		iv = math.Floor(float64(fv) - p)
	} else {
		iv = math.Floor(float64(fv) - float64(fv-ov)*p)
	}
	return max(int(iv), 0)
}
