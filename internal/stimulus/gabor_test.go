package stimulus

import (
	"errors"
	"math"
	"testing"

	"github.com/neurodata-tools/framesync/internal/timesync"
)

func fronts(times []float64, first int8) timesync.Fronts {
	f := timesync.Fronts{Times: times}
	pol := first
	for range times {
		f.Polarities = append(f.Polarities, pol)
		f.Indices = append(f.Indices, len(f.Indices))
		pol = -pol
	}
	return f
}

func TestGaborIntervals(t *testing.T) {
	f := fronts([]float64{10, 10.3, 11, 11.3, 12, 12.3}, 1)
	got, err := GaborIntervals(f, 0.3, 0.15, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d pulses, want 3", len(got))
	}
	for i, iv := range got {
		if math.Abs(iv.Duration()-0.3) > 1e-9 {
			t.Errorf("pulse %d width %g, want 0.3", i, iv.Duration())
		}
	}
}

func TestGaborIntervalsRecoversClippedOnset(t *testing.T) {
	// The first recorded front is the fall of a pulse whose rise was
	// swallowed by the spacer.
	f := fronts([]float64{10.3, 11, 11.3, 12, 12.3}, -1)
	got, err := GaborIntervals(f, 0.3, 0.15, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d pulses, want 3", len(got))
	}
	if math.Abs(got[0].Start-10.0) > 1e-9 {
		t.Errorf("recovered onset %g, want 10.0", got[0].Start)
	}
}

func TestGaborIntervalsMergesFlicker(t *testing.T) {
	// The second pulse flickers off for 20ms mid-stimulus.
	f := fronts([]float64{10, 10.3, 11, 11.1, 11.12, 11.3}, 1)
	got, err := GaborIntervals(f, 0.3, 0.15, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d pulses, want 2 after merging", len(got))
	}
	if math.Abs(got[1].Duration()-0.3) > 1e-9 {
		t.Errorf("merged pulse width %g, want 0.3", got[1].Duration())
	}
}

func TestGaborIntervalsRejectsBadWidth(t *testing.T) {
	f := fronts([]float64{10, 10.8, 11, 11.3}, 1)
	_, err := GaborIntervals(f, 0.3, 0.15, 0.1)
	if !errors.Is(err, timesync.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGaborIntervalsClosesTrailingPulse(t *testing.T) {
	f := fronts([]float64{10, 10.3, 11}, 1)
	got, err := GaborIntervals(f, 0.3, 0.15, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d pulses, want 2", len(got))
	}
	if math.Abs(got[1].Stop-11.3) > 1e-9 {
		t.Errorf("trailing pulse closed at %g, want 11.3", got[1].Stop)
	}
}
