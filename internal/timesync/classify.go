package timesync

import (
	"fmt"
	"math"
)

// Interval is a (start, stop) pair of event times.
type Interval struct {
	Start float64
	Stop  float64
}

// Duration returns the interval length.
func (iv Interval) Duration() float64 { return iv.Stop - iv.Start }

// PairIntervals zips onset and offset times into intervals. Offsets are
// truncated to the onset count; each offset must follow its onset.
func PairIntervals(on, off []float64) ([]Interval, error) {
	if len(off) > len(on) {
		off = off[:len(on)]
	}
	if len(on) != len(off) {
		return nil, fmt.Errorf("%w: %d onsets but %d offsets",
			ErrInvalidInput, len(on), len(off))
	}
	out := make([]Interval, len(on))
	for i := range on {
		if off[i] <= on[i] {
			return nil, fmt.Errorf("%w: offset %d precedes its onset", ErrInvalidInput, i)
		}
		out[i] = Interval{Start: on[i], Stop: off[i]}
	}
	return out, nil
}

// SplitByDuration partitions intervals into those shorter and longer than
// cutoff. Used to separate e.g. ~100ms tones from ~500ms noise bursts at a
// 300ms cutoff.
func SplitByDuration(intervals []Interval, cutoff float64) (short, long []Interval) {
	for _, iv := range intervals {
		if iv.Duration() < cutoff {
			short = append(short, iv)
		} else {
			long = append(long, iv)
		}
	}
	return short, long
}

// PulseThreshold recovers the duration boundary separating pulses from the
// intervals between them, given the gaps of a strictly alternating
// pulse/interval signal. The even- and odd-indexed gap subsequences are
// examined (trimming the first and last gap, which may be clipped); the
// subsequence containing the overall maximum is the intervals, and its
// minimum is returned: anything shorter is a pulse.
//
// The heuristic is sensitive to hardware timing drift; callers should treat
// the returned threshold as a starting point and allow configuration to
// override it.
func PulseThreshold(gaps []float64) (float64, error) {
	if len(gaps) < 6 {
		return 0, fmt.Errorf("%w: need at least 6 gaps to classify, got %d",
			ErrInvalidInput, len(gaps))
	}
	evenMin, evenMax := minMaxStride(gaps, 2, len(gaps)-2)
	oddMin, oddMax := minMaxStride(gaps, 3, len(gaps)-1)
	if evenMax >= oddMax {
		return evenMin, nil
	}
	return oddMin, nil
}

func minMaxStride(v []float64, start, end int) (mn, mx float64) {
	mn, mx = math.Inf(1), math.Inf(-1)
	for i := start; i < end && i < len(v); i += 2 {
		if v[i] < mn {
			mn = v[i]
		}
		if v[i] > mx {
			mx = v[i]
		}
	}
	return mn, mx
}

// Diffs returns the consecutive differences of a time series.
func Diffs(ts []float64) []float64 {
	if len(ts) < 2 {
		return nil
	}
	out := make([]float64, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		out[i-1] = ts[i] - ts[i-1]
	}
	return out
}
