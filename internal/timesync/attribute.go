package timesync

import (
	"fmt"
	"math"
)

// Policy selects the tie-break rule used by AttributeTimes when more than
// one reference value lies within tolerance of a candidate.
type Policy string

const (
	// PolicyFirst assigns the lowest-index reference value within tolerance.
	PolicyFirst Policy = "first"
	// PolicyNearest assigns the reference value with the smallest absolute
	// difference.
	PolicyNearest Policy = "nearest"
)

// Unassigned is the sentinel recorded for a candidate with no reference
// value within tolerance.
const Unassigned = -1

// AttributeTimes attributes each event in events to an entry of ref, the
// reference time series it is assumed to be a noisy subset or superset of.
//
// For each event in input order the absolute difference to every available
// reference value is considered. If the minimum is below tol the chosen
// reference index is recorded, otherwise Unassigned. Under PolicyFirst the
// lowest-index reference within tolerance wins; under PolicyNearest the
// globally closest. With injective set, an assigned reference value is
// permanently consumed and cannot be assigned to a later event.
//
// Non-finite reference entries (NaN, ±Inf) are treated as already consumed.
// The result has one entry per event and depends only on the input values
// and order.
func AttributeTimes(ref, events []float64, tol float64, injective bool, policy Policy) ([]int, error) {
	if policy != PolicyFirst && policy != PolicyNearest {
		return nil, fmt.Errorf("%w: matching policy %q (want %q or %q)",
			ErrInvalidArgument, policy, PolicyFirst, PolicyNearest)
	}

	avail := make([]bool, len(ref))
	for i, r := range ref {
		avail[i] = !math.IsNaN(r) && !math.IsInf(r, 0)
	}

	assigned := make([]int, len(events))
	for i, x := range events {
		best := Unassigned
		bestDiff := math.Inf(1)
		for j, r := range ref {
			if !avail[j] {
				continue
			}
			d := math.Abs(r - x)
			if d >= tol {
				continue
			}
			if policy == PolicyFirst {
				best = j
				break
			}
			if d < bestDiff {
				best, bestDiff = j, d
			}
		}
		assigned[i] = best
		if best != Unassigned && injective {
			avail[best] = false
		}
	}
	return assigned, nil
}

// CountUnassigned returns how many entries of an AttributeTimes result hold
// the Unassigned sentinel.
func CountUnassigned(assigned []int) int {
	n := 0
	for _, a := range assigned {
		if a == Unassigned {
			n++
		}
	}
	return n
}

// UnassignedRefs returns the reference indices of a series of length refLen
// that no entry of assigned points to.
func UnassignedRefs(assigned []int, refLen int) []int {
	used := make([]bool, refLen)
	for _, a := range assigned {
		if a >= 0 && a < refLen {
			used[a] = true
		}
	}
	var out []int
	for i, u := range used {
		if !u {
			out = append(out, i)
		}
	}
	return out
}
