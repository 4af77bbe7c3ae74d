package camera

import (
	"fmt"

	"github.com/neurodata-tools/framesync/internal/monitoring"
	"github.com/neurodata-tools/framesync/internal/session"
	"github.com/neurodata-tools/framesync/internal/timesync"
)

// Result is one camera's extracted per-frame timestamp array plus the
// diagnostic counts accumulated along the way. Diagnostics are surfaced to
// the observability layer, never embedded in the timestamps.
type Result struct {
	Label string
	Times []float64
	Diag  Diagnostics
}

// Diagnostics aggregates the non-fatal anomaly counts of one extraction.
type Diagnostics struct {
	DriftPPM             float64
	UnseenTTLRises       int
	UnseenTTLFalls       int
	DroppedPinRises      int
	DroppedPinFalls      int
	DroppedOverrunFronts int
	DiscardedTrials      int
	OutOfSyncTrials      int
	GapFrames            int
	ExtrapolatedTail     int
	RawFallback          bool // no pin state: raw hardware times returned
}

// TimestampSource extracts one camera's frame timestamps. The hardware
// reference and behavioral-controller fallback variants implement the same
// capability and are selected once per session by SourceForSession.
type TimestampSource interface {
	Label() string
	Extract() (Result, error)
}

// HardwareInputs carry everything the hardware path needs, already loaded:
// no I/O happens inside Extract.
type HardwareInputs struct {
	CameraLabel string
	// HardwareCamTimes are the camera frame TTL times on the hardware
	// clock (one per emitted frame, from the sync trace).
	HardwareCamTimes []float64
	// TTL is the reference channel's front set on the hardware clock.
	TTL timesync.Fronts
	// CameraClockTimes are the camera's own per-frame clock values, the
	// clock the pin-state indices live in.
	CameraClockTimes []float64
	// Count and Pin are the camera-embedded frame counter and pin state
	// (Pin nil when not recorded).
	Count []int
	Pin   *session.PinState
	// VideoFrames is the saved video's frame count.
	VideoFrames int
	// GroomTolerance is the coarse attribution window, seconds.
	GroomTolerance float64
	// Extrapolate selects tail extrapolation over NaN fill.
	Extrapolate bool
}

// HardwareSource reconciles frame times against the authoritative hardware
// recording system.
type HardwareSource struct {
	In HardwareInputs
}

// Label returns the camera label this source extracts for.
func (s *HardwareSource) Label() string { return s.In.CameraLabel }

// Extract aligns the hardware camera TTL times to the saved video frames.
// Without a usable pin state the raw hardware times are returned as-is,
// flagged in the diagnostics.
func (s *HardwareSource) Extract() (Result, error) {
	defer monitoring.DebugScope()()

	in := s.In
	res := Result{Label: in.CameraLabel}

	if in.Pin == nil || in.Pin.Len() <= 1 {
		monitoring.Logf("camera %s: no usable pin state, returning raw hardware times",
			in.CameraLabel)
		res.Times = in.HardwareCamTimes
		res.Diag.RawFallback = true
		return res, nil
	}
	monitoring.Logf("camera %s: aligning to reference TTLs", in.CameraLabel)

	groom, err := GroomPinState(*in.Pin, in.TTL, in.CameraClockTimes, in.GroomTolerance)
	if err != nil {
		return Result{}, err
	}

	// The counter regularly outlives the video: trailing frames were
	// captured but never saved, so the counter is cut to the video length.
	count := in.Count
	if len(count) > in.VideoFrames {
		count = count[:in.VideoFrames]
	} else if len(count) < in.VideoFrames {
		return Result{}, fmt.Errorf("%w: %d frame counts for %d video frames",
			timesync.ErrInvalidInput, len(count), in.VideoFrames)
	}

	times, tail, err := AlignWithTTL(in.HardwareCamTimes, groom.TTL, groom.Pin, count, in.Extrapolate)
	if err != nil {
		return Result{}, err
	}

	res.Times = times
	res.Diag = Diagnostics{
		DriftPPM:             groom.DriftPPM,
		UnseenTTLRises:       groom.UnseenTTLRises,
		UnseenTTLFalls:       groom.UnseenTTLFalls,
		DroppedPinRises:      groom.DroppedPinRises,
		DroppedPinFalls:      groom.DroppedPinFalls,
		DroppedOverrunFronts: groom.DroppedOverrunFronts,
		ExtrapolatedTail:     tail,
	}
	return res, nil
}

// BpodInputs carry everything the fallback path needs, already loaded.
type BpodInputs struct {
	CameraLabel string
	Trials      []session.Trial
	VideoFrames int
	Options     BpodOptions
	// Count and Pin enable the final hardware-adjacent correction when the
	// camera did record a pin state even without a hardware sync trace.
	Count []int
	Pin   *session.PinState
	// TTL is the reference front set derived from the controller log (e.g.
	// the audio line), used only when Pin is present.
	TTL timesync.Fronts
	// GroomTolerance and Extrapolate mirror the hardware path.
	GroomTolerance float64
	Extrapolate    bool
}

// BpodSource reconstructs frame times from behavioral-controller logs when
// no hardware timing reference exists.
type BpodSource struct {
	In BpodInputs
}

// Label returns the camera label this source extracts for.
func (s *BpodSource) Label() string { return s.In.CameraLabel }

// Extract interpolates frame times from the per-trial pulse trains. When a
// pin state and a controller-side reference channel are available, the
// interpolated times are corrected through the same groom+align path as
// the hardware route.
func (s *BpodSource) Extract() (Result, error) {
	defer monitoring.DebugScope()()

	in := s.In
	res := Result{Label: in.CameraLabel}

	times, bdiag, err := TimesFromTrials(in.Trials, in.VideoFrames, in.Options)
	if err != nil {
		return Result{}, err
	}
	res.Diag.DiscardedTrials = bdiag.DiscardedTrials
	res.Diag.OutOfSyncTrials = bdiag.OutOfSyncTrials
	res.Diag.GapFrames = bdiag.GapFrames
	res.Diag.ExtrapolatedTail = bdiag.ExtrapolatedTail

	if in.Pin == nil || in.Pin.Len() <= 1 || in.TTL.Len() == 0 {
		res.Times = times
		return res, nil
	}
	monitoring.Logf("camera %s: correcting controller times against reference TTLs",
		in.CameraLabel)

	groom, err := GroomPinState(*in.Pin, in.TTL, times, in.GroomTolerance)
	if err != nil {
		return Result{}, err
	}
	count := in.Count
	if len(count) > in.VideoFrames {
		count = count[:in.VideoFrames]
	}
	corrected, tail, err := AlignWithTTL(groom.FrameTimes, groom.TTL, groom.Pin, count, in.Extrapolate)
	if err != nil {
		return Result{}, err
	}
	res.Times = corrected
	res.Diag.DriftPPM = groom.DriftPPM
	res.Diag.UnseenTTLRises = groom.UnseenTTLRises
	res.Diag.UnseenTTLFalls = groom.UnseenTTLFalls
	res.Diag.DroppedPinRises = groom.DroppedPinRises
	res.Diag.DroppedPinFalls = groom.DroppedPinFalls
	res.Diag.DroppedOverrunFronts = groom.DroppedOverrunFronts
	res.Diag.ExtrapolatedTail += tail
	return res, nil
}

// SourceForSession resolves the timestamp-source variant for an explicit
// session-type tag: "ephys" sessions carry a hardware reference, "training"
// and "biased" sessions fall back to the controller log. The choice is made
// once, here, at the orchestration boundary.
func SourceForSession(sessionType string, hw *HardwareSource, bpod *BpodSource) (TimestampSource, error) {
	switch sessionType {
	case "ephys":
		if hw == nil {
			return nil, fmt.Errorf("%w: session type %q needs hardware inputs",
				timesync.ErrInvalidArgument, sessionType)
		}
		return hw, nil
	case "training", "biased":
		if bpod == nil {
			return nil, fmt.Errorf("%w: session type %q needs controller inputs",
				timesync.ErrInvalidArgument, sessionType)
		}
		return bpod, nil
	default:
		return nil, fmt.Errorf("%w: unknown session type %q",
			timesync.ErrInvalidArgument, sessionType)
	}
}
