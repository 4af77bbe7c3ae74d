package stimulus

import (
	"errors"
	"testing"

	"github.com/neurodata-tools/framesync/internal/timesync"
)

func valveFronts(n int, width float64) timesync.Fronts {
	var times []float64
	for i := 0; i < n; i++ {
		t0 := float64(i)
		times = append(times, t0, t0+width)
	}
	return fronts(times, 1)
}

func TestValveIntervals(t *testing.T) {
	f := valveFronts(5, 0.05)
	got, err := ValveIntervals(f, 5, 0.0001)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d openings, want 5", len(got))
	}
}

func TestValveIntervalsWrongCount(t *testing.T) {
	f := valveFronts(4, 0.05)
	_, err := ValveIntervals(f, 5, 0.0001)
	if !errors.Is(err, timesync.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestValveIntervalsUnevenWidths(t *testing.T) {
	f := fronts([]float64{0, 0.05, 1, 1.09, 2, 2.05}, 1)
	_, err := ValveIntervals(f, 3, 0.0001)
	if !errors.Is(err, timesync.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestValveIntervalsRejectsLeadingFall(t *testing.T) {
	f := fronts([]float64{0, 0.05, 1, 1.05}, -1)
	_, err := ValveIntervals(f, 2, 0.0001)
	if !errors.Is(err, timesync.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
