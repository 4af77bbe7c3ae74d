package stimulus

import (
	"fmt"

	"github.com/neurodata-tools/framesync/internal/timesync"
)

// AudioIntervals splits the replay window's audio pulses into short go
// tones and long error noises at the injected duration cutoff and checks
// both counts against the protocol.
func AudioIntervals(f timesync.Fronts, cutoff float64, expectedTones, expectedNoises int) (tones, noises []timesync.Interval, err error) {
	if err := f.ValidateLeadingHigh(); err != nil {
		return nil, nil, err
	}
	intervals, err := timesync.PairIntervals(f.Rising(), f.Falling())
	if err != nil {
		return nil, nil, err
	}
	tones, noises = timesync.SplitByDuration(intervals, cutoff)
	if len(tones) != expectedTones {
		return nil, nil, fmt.Errorf("%w: %d go tones, protocol expects %d",
			timesync.ErrInvalidInput, len(tones), expectedTones)
	}
	if len(noises) != expectedNoises {
		return nil, nil, fmt.Errorf("%w: %d error noises, protocol expects %d",
			timesync.ErrInvalidInput, len(noises), expectedNoises)
	}
	return tones, noises, nil
}
