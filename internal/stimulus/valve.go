package stimulus

import (
	"fmt"

	"github.com/neurodata-tools/framesync/internal/timesync"
)

// ValveIntervals reconstructs the reward valve open/close intervals of the
// replay window. The protocol opens the valve a fixed number of times for a
// fixed duration, so both the count and the width spread are hard checks:
// uneven widths mean the valve channel was cross-wired or the recording
// truncated.
func ValveIntervals(f timesync.Fronts, expected int, equalTol float64) ([]timesync.Interval, error) {
	if err := f.ValidateLeadingHigh(); err != nil {
		return nil, err
	}
	intervals, err := timesync.PairIntervals(f.Rising(), f.Falling())
	if err != nil {
		return nil, err
	}
	if len(intervals) != expected {
		return nil, fmt.Errorf("%w: %d valve openings, protocol expects %d",
			timesync.ErrInvalidInput, len(intervals), expected)
	}

	mn, mx := intervals[0].Duration(), intervals[0].Duration()
	for _, iv := range intervals[1:] {
		if d := iv.Duration(); d < mn {
			mn = d
		} else if d > mx {
			mx = d
		}
	}
	if mx-mn > equalTol {
		return nil, fmt.Errorf("%w: valve opening widths spread %.6fs, tolerance %.6fs",
			timesync.ErrInvalidInput, mx-mn, equalTol)
	}
	return intervals, nil
}
