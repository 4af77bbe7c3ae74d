package timesync

import (
	"fmt"
	"math"
)

// FindSpacers locates occurrences of a known spacer waveform inside a TTL
// front-time series. template holds the spacer's front times relative to
// its first front. A run of fronts matches when every front lands within
// jitter of its template position and the run is isolated by at least quiet
// seconds of silence on both sides, so stimulus fronts adjacent to a spacer
// cannot produce a partial match.
//
// Returns one (first front, last front) interval per occurrence, in order.
func FindSpacers(ttl []float64, template []float64, jitter, quiet float64) ([]Interval, error) {
	if len(template) < 2 {
		return nil, fmt.Errorf("%w: spacer template needs at least 2 fronts, got %d",
			ErrInvalidInput, len(template))
	}
	if !strictlyIncreasing(ttl) {
		return nil, fmt.Errorf("%w: TTL times not strictly increasing", ErrInvalidInput)
	}

	n := len(template)
	var found []Interval
	for i := 0; i+n <= len(ttl); i++ {
		if !matchesTemplate(ttl[i:i+n], template, jitter) {
			continue
		}
		// Quiet guard on both sides.
		if i > 0 && ttl[i]-ttl[i-1] < quiet {
			continue
		}
		if i+n < len(ttl) && ttl[i+n]-ttl[i+n-1] < quiet {
			continue
		}
		found = append(found, Interval{Start: ttl[i], Stop: ttl[i+n-1]})
		i += n - 1 // skip past this occurrence
	}
	return found, nil
}

func matchesTemplate(run, template []float64, jitter float64) bool {
	t0 := run[0] - template[0]
	for k := 1; k < len(template); k++ {
		if math.Abs(run[k]-(t0+template[k])) > jitter {
			return false
		}
	}
	return true
}
