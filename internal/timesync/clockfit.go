package timesync

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// ClockMap is an affine mapping from one clock's time to another's.
type ClockMap struct {
	Offset float64 // intercept, seconds in the target clock
	Slope  float64 // rate ratio, unitless (1 + drift)
}

// Apply maps a time in the source clock to the target clock.
func (m ClockMap) Apply(t float64) float64 { return m.Offset + m.Slope*t }

// ApplyAll maps a whole series, preserving strict monotonicity (the slope is
// validated positive at fit time).
func (m ClockMap) ApplyAll(ts []float64) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = m.Apply(t)
	}
	return out
}

// DriftPPM reports the relative rate mismatch between the two clocks in
// parts per million.
func (m ClockMap) DriftPPM() float64 { return (m.Slope - 1) * 1e6 }

// FitClock fits an affine model b ≈ offset + slope·a by least squares over
// two paired series expressed in different clocks, and returns the mapping
// together with the measured drift in ppm.
//
// The series must be the same length (≥ 2) and strictly increasing. A
// non-positive fitted slope would reverse event ordering and wraps
// ErrAlignment.
func FitClock(timesA, timesB []float64) (ClockMap, float64, error) {
	if len(timesA) != len(timesB) {
		return ClockMap{}, 0, fmt.Errorf("%w: series lengths differ (%d vs %d)",
			ErrInvalidInput, len(timesA), len(timesB))
	}
	if len(timesA) < 2 {
		return ClockMap{}, 0, fmt.Errorf("%w: need at least 2 paired times, got %d",
			ErrInvalidInput, len(timesA))
	}
	if !strictlyIncreasing(timesA) {
		return ClockMap{}, 0, fmt.Errorf("%w: source clock times not strictly increasing",
			ErrInvalidInput)
	}
	if !strictlyIncreasing(timesB) {
		return ClockMap{}, 0, fmt.Errorf("%w: target clock times not strictly increasing",
			ErrInvalidInput)
	}

	alpha, beta := stat.LinearRegression(timesA, timesB, nil, false)
	if beta <= 0 {
		return ClockMap{}, 0, fmt.Errorf("%w: fitted clock slope %g not positive",
			ErrAlignment, beta)
	}
	m := ClockMap{Offset: alpha, Slope: beta}
	return m, m.DriftPPM(), nil
}

func strictlyIncreasing(ts []float64) bool {
	for i := 1; i < len(ts); i++ {
		if ts[i] <= ts[i-1] {
			return false
		}
	}
	return true
}
