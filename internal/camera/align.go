// Package camera reconciles per-frame video timestamps against the
// authoritative hardware clock. The hardware path grooms the camera's
// embedded pin state against the reference TTLs, fits the inter-clock
// mapping and collapses dropped frames; the fallback path reconstructs
// frame times purely from behavioral-controller pulse trains.
package camera

import (
	"fmt"
	"math"

	"github.com/neurodata-tools/framesync/internal/monitoring"
	"github.com/neurodata-tools/framesync/internal/session"
	"github.com/neurodata-tools/framesync/internal/timesync"
)

// AlignWithTTL grooms raw hardware camera timestamps using the frame
// embedded TTL fronts and the frame counter, producing exactly one
// timestamp per saved video frame.
//
// camTimes are the hardware clock's raw camera frame times, ttl the
// reference TTL front times as seen by the hardware (groomed to match the
// pin state, see GroomPinState), pin the camera-embedded fronts and count
// the camera's frame counter. The alignment runs in three stages:
//
//  1. Trim leading timestamps that precede frame 0 of the counter. The
//     discard count is the distance between the first reference TTL's
//     position in camTimes and the first pin-state front, corrected for
//     frames captured but not saved before that front.
//  2. Extrapolate (or NaN-fill, with extrapolate=false) trailing
//     timestamps when the hardware stopped recording before the camera
//     finished, at the locally estimated frame rate.
//  3. Index the result by the frame counter, collapsing the frames the
//     camera dropped mid-session.
//
// The number of synthetic tail entries present in the result is returned
// alongside the timestamps. Self-consistency violations wrap
// timesync.ErrAlignment.
func AlignWithTTL(camTimes, ttl []float64, pin session.PinState, count []int, extrapolate bool) ([]float64, int, error) {
	if err := validateCounter(count); err != nil {
		return nil, 0, err
	}
	if !increasing(camTimes) {
		return nil, 0, fmt.Errorf("%w: hardware camera times not strictly increasing",
			timesync.ErrInvalidInput)
	}
	if pin.Len() == 0 {
		return nil, 0, fmt.Errorf("%w: no pin-state fronts", timesync.ErrInvalidInput)
	}
	if pin.Len() != len(ttl) {
		return nil, 0, fmt.Errorf("%w: %d pin-state fronts but %d reference TTLs (groom first)",
			timesync.ErrInvalidInput, pin.Len(), len(ttl))
	}
	firstUptick := pin.Indices[0]
	if firstUptick >= len(count) {
		return nil, 0, fmt.Errorf("%w: first pin-state front at frame %d beyond counter length %d",
			timesync.ErrInvalidInput, firstUptick, len(count))
	}

	firstTTL := timesync.SearchSorted(camTimes, ttl[0])

	// Frames dropped between acquisition start and the first front also
	// consumed hardware timestamps; subtract them from the discard count.
	start := firstTTL - firstUptick - (count[firstUptick] - firstUptick)
	if start < 0 {
		return nil, 0, fmt.Errorf("%w: leading discard count %d is negative",
			timesync.ErrAlignment, start)
	}

	// The trimmed array must span every counter value, so the pad target is
	// the last counted frame + 1, not the number of saved frames.
	target := count[len(count)-1] + 1
	end := start + target
	if end > len(camTimes) {
		end = len(camTimes)
	}
	if start > end {
		return nil, 0, fmt.Errorf("%w: leading discard count %d beyond %d timestamps",
			timesync.ErrAlignment, start, len(camTimes))
	}
	ts := append([]float64(nil), camTimes[start:end]...)
	measured := len(ts)

	if len(ts) < target {
		missing := target - len(ts)
		monitoring.Logf("camera: %d fewer hardware timestamps than frame counts", missing)
		if extrapolate {
			rate := math.Round(1 / timesync.MedianDiff(ts))
			if rate <= 0 || math.IsNaN(rate) {
				return nil, 0, fmt.Errorf("%w: cannot estimate frame rate for tail extrapolation",
					timesync.ErrAlignment)
			}
			last := ts[len(ts)-1]
			for i := 0; i < missing; i++ {
				ts = append(ts, last+float64(i+1)/rate)
			}
		} else {
			for i := 0; i < missing; i++ {
				ts = append(ts, math.NaN())
			}
		}
	}
	if len(ts) != target {
		return nil, 0, fmt.Errorf("%w: %d timestamps after padding, want %d",
			timesync.ErrAlignment, len(ts), target)
	}

	// Collapse internally dropped frames. Counter values in the padded
	// region mark synthetic output entries; trailing dropped frames mean
	// fewer entries can survive the collapse than were padded.
	out := make([]float64, len(count))
	synthetic := 0
	for i, c := range count {
		out[i] = ts[c]
		if c >= measured {
			synthetic++
		}
	}

	// Round trip: the first reference TTL must land back on the first
	// pin-state front. The search runs over the measured prefix only; a
	// NaN-filled tail gives a binary search no order to rely on.
	if got := timesync.SearchSorted(out[:len(out)-synthetic], ttl[0]); got != firstUptick {
		return nil, 0, fmt.Errorf("%w: first TTL relocates to frame %d, pin state says %d",
			timesync.ErrAlignment, got, firstUptick)
	}
	return out, synthetic, nil
}

func validateCounter(count []int) error {
	if len(count) == 0 {
		return fmt.Errorf("%w: empty frame counter", timesync.ErrInvalidInput)
	}
	for i := 1; i < len(count); i++ {
		if count[i] <= count[i-1] {
			return fmt.Errorf("%w: frame counter not strictly increasing at %d",
				timesync.ErrInvalidInput, i)
		}
	}
	return nil
}

func increasing(ts []float64) bool {
	for i := 1; i < len(ts); i++ {
		if ts[i] <= ts[i-1] {
			return false
		}
	}
	return true
}
