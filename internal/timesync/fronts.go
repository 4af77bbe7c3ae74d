// Package timesync implements multi-clock temporal alignment of digital
// event streams: edge (front) detection on sampled two-level signals,
// duration-based front classification, time-series correspondence matching,
// and affine clock fitting. Everything here is a pure function over
// immutable input slices.
package timesync

import "fmt"

// Fronts is an ordered set of signal transitions. Polarities are +1 for a
// rising edge and -1 for a falling edge. Indices, when present, point into
// the parent sample array that each front was detected in.
type Fronts struct {
	Times      []float64
	Polarities []int8
	Indices    []int
}

// Len returns the number of fronts.
func (f Fronts) Len() int { return len(f.Times) }

// Rising returns the times of the rising fronts only.
func (f Fronts) Rising() []float64 {
	out := make([]float64, 0, len(f.Times)/2+1)
	for i, p := range f.Polarities {
		if p > 0 {
			out = append(out, f.Times[i])
		}
	}
	return out
}

// Falling returns the times of the falling fronts only.
func (f Fronts) Falling() []float64 {
	out := make([]float64, 0, len(f.Times)/2)
	for i, p := range f.Polarities {
		if p < 0 {
			out = append(out, f.Times[i])
		}
	}
	return out
}

// Validate checks the Fronts invariants: times strictly increasing,
// polarities in {+1,-1} and strictly alternating, and matching slice
// lengths. Violations wrap ErrInvalidInput.
func (f Fronts) Validate() error {
	if len(f.Times) != len(f.Polarities) {
		return fmt.Errorf("%w: %d front times but %d polarities",
			ErrInvalidInput, len(f.Times), len(f.Polarities))
	}
	if len(f.Indices) > 0 && len(f.Indices) != len(f.Times) {
		return fmt.Errorf("%w: %d front times but %d indices",
			ErrInvalidInput, len(f.Times), len(f.Indices))
	}
	for i, p := range f.Polarities {
		if p != 1 && p != -1 {
			return fmt.Errorf("%w: polarity %d at front %d", ErrInvalidInput, p, i)
		}
		if i > 0 {
			if f.Polarities[i-1] == p {
				return fmt.Errorf("%w: consecutive fronts %d and %d share polarity %d",
					ErrInvalidInput, i-1, i, p)
			}
			if f.Times[i] <= f.Times[i-1] {
				return fmt.Errorf("%w: front times not strictly increasing at %d",
					ErrInvalidInput, i)
			}
		}
	}
	return nil
}

// ValidateLeadingHigh runs Validate and additionally requires the first
// front to be rising, i.e. the signal starts from the low level.
func (f Fronts) ValidateLeadingHigh() error {
	if err := f.Validate(); err != nil {
		return err
	}
	if len(f.Polarities) > 0 && f.Polarities[0] != 1 {
		return fmt.Errorf("%w: first front is not rising", ErrInvalidInput)
	}
	return nil
}

// DetectFronts scans a sampled two-level signal and returns its
// transitions. times[i] is the sample time of levels[i]. The first sample
// establishes the initial level and produces no front.
func DetectFronts(times []float64, levels []bool) (Fronts, error) {
	if len(times) != len(levels) {
		return Fronts{}, fmt.Errorf("%w: %d sample times but %d levels",
			ErrInvalidInput, len(times), len(levels))
	}
	var f Fronts
	for i := 1; i < len(levels); i++ {
		if times[i] <= times[i-1] {
			return Fronts{}, fmt.Errorf("%w: sample times not strictly increasing at %d",
				ErrInvalidInput, i)
		}
		if levels[i] == levels[i-1] {
			continue
		}
		pol := int8(-1)
		if levels[i] {
			pol = 1
		}
		f.Times = append(f.Times, times[i])
		f.Polarities = append(f.Polarities, pol)
		f.Indices = append(f.Indices, i)
	}
	return f, nil
}
