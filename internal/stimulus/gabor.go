package stimulus

import (
	"fmt"

	"github.com/neurodata-tools/framesync/internal/monitoring"
	"github.com/neurodata-tools/framesync/internal/timesync"
)

// GaborIntervals reconstructs the visual stimulus on/off intervals from the
// frame2ttl fronts of the receptive-field mapping window.
//
// The screen already shows a stimulus when the window opens, so the first
// recorded front is typically the falling edge of a pulse whose onset was
// swallowed by the preceding spacer; that onset is recovered at
// nominalWidth before the fall. Pulses separated by less than minPulse are
// photodiode flicker and get merged. Every reconstructed pulse must sit
// within nominalWidth±widthTol or the raw trace is not a Gabor sequence.
func GaborIntervals(f timesync.Fronts, nominalWidth, widthTol, minPulse float64) ([]timesync.Interval, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if f.Len() == 0 {
		return nil, fmt.Errorf("%w: no fronts in the stimulus window", timesync.ErrInvalidInput)
	}

	rising := f.Rising()
	falling := f.Falling()
	if f.Polarities[0] == -1 {
		monitoring.Debugf("recovering stimulus onset clipped by the spacer")
		rising = append([]float64{falling[0] - nominalWidth}, rising...)
	}
	if len(rising) > len(falling) {
		// Pulse still high at the window edge; close it at nominal width.
		falling = append(falling, rising[len(rising)-1]+nominalWidth)
	}
	intervals, err := timesync.PairIntervals(rising, falling)
	if err != nil {
		return nil, err
	}

	merged := intervals[:1]
	for _, iv := range intervals[1:] {
		prev := &merged[len(merged)-1]
		if iv.Start-prev.Stop < minPulse {
			prev.Stop = iv.Stop
			continue
		}
		merged = append(merged, iv)
	}
	if n := len(intervals) - len(merged); n > 0 {
		monitoring.Debugf("merged %d flicker pulses into their neighbors", n)
	}

	for i, iv := range merged {
		if d := iv.Duration(); d < nominalWidth-widthTol || d > nominalWidth+widthTol {
			return nil, fmt.Errorf("%w: stimulus pulse %d is %.3fs wide, want %.3f±%.3f",
				timesync.ErrInvalidInput, i, d, nominalWidth, widthTol)
		}
	}
	return merged, nil
}
