package camera

import (
	"fmt"
	"sort"

	"github.com/neurodata-tools/framesync/internal/monitoring"
	"github.com/neurodata-tools/framesync/internal/session"
	"github.com/neurodata-tools/framesync/internal/timesync"
)

// GroomResult is the outcome of reconciling the camera's embedded pin state
// with the authoritative reference TTLs.
type GroomResult struct {
	// Pin holds the surviving pin-state fronts.
	Pin session.PinState
	// TTL holds the groomed reference TTL times, one per surviving pin
	// front.
	TTL []float64
	// PinTimes holds the surviving pin fronts' times in the reference
	// clock.
	PinTimes []float64
	// FrameTimes holds every camera frame time mapped to the reference
	// clock.
	FrameTimes []float64
	// Map is the fitted camera-to-reference clock mapping.
	Map timesync.ClockMap
	// DriftPPM is the measured inter-clock drift.
	DriftPPM float64
	// DegradedFit is set when only one pin front survived and the mapping
	// is an offset-only fallback with assumed zero drift.
	DegradedFit bool

	// Diagnostic counts; none of these are fatal.
	DroppedOverrunFronts int // pin fronts beyond the camera time array
	UnseenTTLRises       int // reference rises the camera never reported
	UnseenTTLFalls       int
	DroppedPinRises      int // pin rises with no reference TTL within tolerance
	DroppedPinFalls      int
}

// GroomPinState aligns the camera's pin-state fronts to the reference TTL
// fronts and fits the camera-to-reference clock mapping.
//
// Reference pulses too brief for the camera's state-change detector leave
// the pin state with fewer fronts than TTLs were sent, and spurious pin
// flips leave it with more. When the counts differ, rising and falling
// fronts are attributed independently through the correspondence matcher
// with the coarse tolerance tol (seconds); unattributed pin fronts are
// dropped and counted. The groomed TTL sequence ends up with exactly one
// entry per surviving pin front.
//
// camTimes are the camera-clock frame times the pin indices refer to. The
// grooming itself is never fatal; only malformed inputs are.
func GroomPinState(pin session.PinState, ttl timesync.Fronts, camTimes []float64, tol float64) (GroomResult, error) {
	var res GroomResult

	// Pin fronts recorded past the end of the camera time array cannot be
	// placed on any clock; drop them up front.
	kept := session.PinState{}
	for i, idx := range pin.Indices {
		if idx >= len(camTimes) {
			res.DroppedOverrunFronts++
			continue
		}
		kept.Indices = append(kept.Indices, idx)
		kept.Polarities = append(kept.Polarities, pin.Polarities[i])
	}
	if res.DroppedOverrunFronts > 0 {
		monitoring.Logf("camera: %d pin-state fronts beyond timestamp array length",
			res.DroppedOverrunFronts)
	}
	if kept.Len() == 0 {
		return res, fmt.Errorf("%w: no pin-state fronts within camera times",
			timesync.ErrInvalidInput)
	}
	if kept.Polarities[0] != 1 {
		return res, fmt.Errorf("%w: first pin-state front is not rising", timesync.ErrInvalidInput)
	}
	if err := ttl.ValidateLeadingHigh(); err != nil {
		return res, err
	}
	if !increasing(camTimes) {
		return res, fmt.Errorf("%w: camera times not strictly increasing", timesync.ErrInvalidInput)
	}

	groomed := ttl.Times
	if kept.Len() != ttl.Len() {
		monitoring.Logf("camera: %d reference TTLs vs %d pin-state fronts, attributing",
			ttl.Len(), kept.Len())
		var err error
		kept, groomed, err = attributeFronts(kept, ttl, camTimes, tol, &res)
		if err != nil {
			return res, err
		}
	}

	pinCam := make([]float64, kept.Len())
	for i, idx := range kept.Indices {
		pinCam[i] = camTimes[idx]
	}
	var m timesync.ClockMap
	var drift float64
	if kept.Len() < 2 {
		// An affine fit needs two pairs; with one survivor the best that
		// can be offered is a constant offset.
		monitoring.Logf("camera: single surviving pin-state front, assuming zero drift")
		m = timesync.ClockMap{Offset: groomed[0] - pinCam[0], Slope: 1}
		res.DegradedFit = true
	} else {
		var err error
		m, drift, err = timesync.FitClock(pinCam, groomed)
		if err != nil {
			return res, err
		}
	}
	monitoring.Debugf("frame/TTL alignment drift = %.2fppm", drift)

	res.Pin = kept
	res.TTL = groomed
	res.PinTimes = m.ApplyAll(pinCam)
	res.FrameTimes = m.ApplyAll(camTimes)
	res.Map = m
	res.DriftPPM = drift
	return res, nil
}

// attributeFronts matches pin rises to TTL rises and pin falls to TTL falls
// independently. Times are made relative to each subsequence's first event
// so that a constant clock offset does not defeat the tolerance window.
func attributeFronts(pin session.PinState, ttl timesync.Fronts, camTimes []float64, tol float64, res *GroomResult) (session.PinState, []float64, error) {
	type matched struct {
		idx int
		pol int8
		t   float64
	}
	var out []matched

	for _, pol := range []int8{1, -1} {
		var pinIdx []int
		for i, p := range pin.Polarities {
			if p == pol {
				pinIdx = append(pinIdx, pin.Indices[i])
			}
		}
		var refTimes []float64
		for i, p := range ttl.Polarities {
			if p == pol {
				refTimes = append(refTimes, ttl.Times[i])
			}
		}
		if len(refTimes) == 0 {
			// No reference of this polarity at all: every pin front of it
			// is unattributable.
			if pol == 1 {
				res.DroppedPinRises += len(pinIdx)
			} else {
				res.DroppedPinFalls += len(pinIdx)
			}
			continue
		}
		if len(pinIdx) == 0 {
			continue
		}

		events := make([]float64, len(pinIdx))
		for i, idx := range pinIdx {
			events[i] = camTimes[idx] - camTimes[pinIdx[0]]
		}
		refs := make([]float64, len(refTimes))
		for i, t := range refTimes {
			refs[i] = t - refTimes[0]
		}

		assigned, err := timesync.AttributeTimes(refs, events, tol, true, timesync.PolicyFirst)
		if err != nil {
			return session.PinState{}, nil, err
		}

		unseen := len(timesync.UnassignedRefs(assigned, len(refs)))
		missed := timesync.CountUnassigned(assigned)
		if pol == 1 {
			res.UnseenTTLRises = unseen
			res.DroppedPinRises = missed
		} else {
			res.UnseenTTLFalls = unseen
			res.DroppedPinFalls = missed
		}
		if unseen > 0 {
			monitoring.Debugf("%d reference TTL %s not detected by the camera", unseen, polName(pol))
		}
		if missed > 0 {
			monitoring.Logf("camera: %d pin-state %s could not be attributed to a reference TTL",
				missed, polName(pol))
		}

		for i, a := range assigned {
			if a == timesync.Unassigned {
				continue
			}
			out = append(out, matched{idx: pinIdx[i], pol: pol, t: refTimes[a]})
		}
	}

	// Restore capture order across the two polarities.
	sort.Slice(out, func(i, j int) bool { return out[i].idx < out[j].idx })

	var kept session.PinState
	groomed := make([]float64, 0, len(out))
	for _, m := range out {
		kept.Indices = append(kept.Indices, m.idx)
		kept.Polarities = append(kept.Polarities, m.pol)
		groomed = append(groomed, m.t)
	}
	if kept.Len() == 0 {
		return session.PinState{}, nil, fmt.Errorf("%w: no pin-state fronts survived attribution",
			timesync.ErrInvalidInput)
	}
	return kept, groomed, nil
}

func polName(pol int8) string {
	if pol > 0 {
		return "rises"
	}
	return "falls"
}
