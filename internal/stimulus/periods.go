// Package stimulus derives passive-protocol stimulus interval tables from
// classified TTL fronts. These tables describe what the animal was shown;
// they never feed back into clock alignment, so a failure here is reported
// per session without blocking the timestamp extraction.
package stimulus

import (
	"fmt"

	"github.com/neurodata-tools/framesync/internal/timesync"
)

// Periods are the spacer-delimited windows of a passive session, in
// reference-clock seconds.
type Periods struct {
	// Spontaneous is the no-stimulus baseline window.
	Spontaneous timesync.Interval
	// RFMapping is the receptive-field mapping window.
	RFMapping timesync.Interval
	// Replay is the task-stimulus replay window.
	Replay timesync.Interval
}

// FindPeriods segments a passive session by locating the spacer waveform in
// the frame2ttl front times. The protocol emits one spacer before each of
// the three periods; the last period runs to end (the recording's final
// sync time).
//
// ttl holds the frame2ttl front times, template the spacer's front times
// relative to its first front. A spacer count other than expected means the
// raw recording does not hold a complete passive protocol.
func FindPeriods(ttl, template []float64, jitter, quiet float64, expected int, end float64) (Periods, error) {
	spacers, err := timesync.FindSpacers(ttl, template, jitter, quiet)
	if err != nil {
		return Periods{}, err
	}
	if len(spacers) != expected {
		return Periods{}, fmt.Errorf("%w: found %d spacers, protocol expects %d",
			timesync.ErrInvalidInput, len(spacers), expected)
	}
	if expected != 3 {
		return Periods{}, fmt.Errorf("%w: %d-period protocols are not supported",
			timesync.ErrInvalidArgument, expected)
	}
	if end <= spacers[2].Stop {
		return Periods{}, fmt.Errorf("%w: recording ends at %g, before the last spacer",
			timesync.ErrInvalidInput, end)
	}
	return Periods{
		Spontaneous: timesync.Interval{Start: spacers[0].Stop, Stop: spacers[1].Start},
		RFMapping:   timesync.Interval{Start: spacers[1].Stop, Stop: spacers[2].Start},
		Replay:      timesync.Interval{Start: spacers[2].Stop, Stop: end},
	}, nil
}

// Clip returns the fronts of f whose times fall inside iv.
func Clip(f timesync.Fronts, iv timesync.Interval) timesync.Fronts {
	var out timesync.Fronts
	for i, t := range f.Times {
		if t < iv.Start || t > iv.Stop {
			continue
		}
		out.Times = append(out.Times, t)
		out.Polarities = append(out.Polarities, f.Polarities[i])
		out.Indices = append(out.Indices, f.Indices[i])
	}
	return out
}
