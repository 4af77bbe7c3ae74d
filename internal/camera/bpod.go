package camera

import (
	"fmt"
	"math"

	"github.com/neurodata-tools/framesync/internal/monitoring"
	"github.com/neurodata-tools/framesync/internal/session"
	"github.com/neurodata-tools/framesync/internal/timesync"
)

// BpodOptions tunes the behavioral-controller fallback reconciler.
type BpodOptions struct {
	// RisingEvent and FallingEvent name the trial-log channels carrying the
	// frame-sync line's edges.
	RisingEvent  string
	FallingEvent string
	// WidthRelTol is the allowed relative deviation of a pulse's width from
	// the trial median before the trial counts as out of sync.
	WidthRelTol float64
	// PeriodAbsTol is the allowed absolute deviation between successive
	// pulse periods, bounded below by the controller's refresh interval.
	PeriodAbsTol float64
}

// DefaultBpodOptions mirror the standard rig: a 100µs controller refresh
// and 10% pulse-width tolerance.
func DefaultBpodOptions() BpodOptions {
	return BpodOptions{
		RisingEvent:  "Port1In",
		FallingEvent: "Port1Out",
		WidthRelTol:  0.1,
		PeriodAbsTol: 0.00011,
	}
}

// BpodDiagnostics summarizes the non-fatal anomalies of a fallback run.
type BpodDiagnostics struct {
	DiscardedTrials  int // trials with no frame-sync pulses
	OutOfSyncTrials  int // trials failing the width or period test
	GapFrames        int // synthetic frames interpolated between trials
	ExtrapolatedTail int // synthetic frames appended after the last trial
}

// TimesFromTrials reconstructs per-frame timestamps purely from the
// behavioral controller's per-trial frame-sync pulse trains.
//
// The camera pulses are logged only while a trial runs, so the inter-trial
// gaps are filled by interpolating round(gap·rate)−1 synthetic timestamps
// at the global frame rate (the reciprocal of the median of per-trial
// median periods), and the tail is extrapolated to videoFrames because the
// controller stops before the video workflow does. A trial whose pulse
// widths or periods drift beyond tolerance is counted, not rejected.
//
// The result is strictly increasing; a violation wraps
// timesync.ErrAlignment since it indicates inconsistent source logs.
func TimesFromTrials(trials []session.Trial, videoFrames int, opts BpodOptions) ([]float64, BpodDiagnostics, error) {
	var diag BpodDiagnostics
	var trialTimes [][]float64
	var periods []float64

	for _, tr := range trials {
		rises := tr.Events[opts.RisingEvent]
		falls := tr.Events[opts.FallingEvent]
		// Trials at startup may not have the camera running yet.
		if len(rises) == 0 {
			diag.DiscardedTrials++
			continue
		}
		// A trial that starts mid-pulse logs the tail of the previous
		// pulse as a stray leading fall.
		if len(falls) > 0 && falls[0] < rises[0] {
			falls = falls[1:]
		}
		if len(falls) > len(rises) {
			falls = falls[:len(rises)]
		}

		period := timesync.MedianDiff(rises)
		if outOfSync(rises, falls, period, opts) {
			diag.OutOfSyncTrials++
		}
		trialTimes = append(trialTimes, rises)
		if !math.IsNaN(period) {
			periods = append(periods, period)
		}
	}
	if diag.OutOfSyncTrials > 0 {
		monitoring.Logf("camera: %d trials with frame times outside the expected sampling rate",
			diag.OutOfSyncTrials)
	}
	if len(trialTimes) == 0 {
		return nil, diag, fmt.Errorf("%w: no frame-sync pulses in any trial",
			timesync.ErrInvalidInput)
	}

	rate := 1 / timesync.Median(periods)
	if math.IsNaN(rate) || rate <= 0 {
		return nil, diag, fmt.Errorf("%w: cannot estimate global frame rate",
			timesync.ErrInvalidInput)
	}

	var out []float64
	for i, ts := range trialTimes {
		out = append(out, ts...)
		if i == len(trialTimes)-1 {
			break
		}
		last := ts[len(ts)-1]
		gap := trialTimes[i+1][0] - last
		missed := int(math.Round(gap*rate)) - 1
		for k := 0; k < missed; k++ {
			out = append(out, last+gap/float64(missed+1)*float64(k+1))
		}
		if missed > 0 {
			diag.GapFrames += missed
		}
	}

	// The video keeps rolling after the controller's last trial.
	if videoFrames > len(out) {
		missing := videoFrames - len(out)
		last := out[len(out)-1]
		for k := 0; k < missing; k++ {
			out = append(out, last+float64(k+1)/rate)
		}
		diag.ExtrapolatedTail = missing
	}

	for i := 1; i < len(out); i++ {
		if out[i] <= out[i-1] {
			return nil, diag, fmt.Errorf("%w: reconstructed frame times not strictly increasing at %d",
				timesync.ErrAlignment, i)
		}
	}
	return out, diag, nil
}

func outOfSync(rises, falls []float64, period float64, opts BpodOptions) bool {
	n := len(falls)
	if n > len(rises) {
		n = len(rises)
	}
	if n >= 2 {
		widths := make([]float64, n)
		for i := 0; i < n; i++ {
			widths[i] = falls[i] - rises[i]
		}
		med := timesync.Median(widths)
		for _, w := range widths {
			if math.Abs(1-w/med) >= opts.WidthRelTol {
				return true
			}
		}
	}
	for _, d := range timesync.Diffs(rises) {
		if math.Abs(d-period) > opts.PeriodAbsTol {
			return true
		}
	}
	return false
}
