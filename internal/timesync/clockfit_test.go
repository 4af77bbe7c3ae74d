package timesync

import (
	"errors"
	"math"
	"testing"
)

func TestFitClockRecoversOffsetAndDrift(t *testing.T) {
	timesA := make([]float64, 100)
	timesB := make([]float64, 100)
	for i := range timesA {
		timesA[i] = float64(i) * 0.0333
		timesB[i] = 1.0001*timesA[i] + 0.002
	}

	m, drift, err := FitClock(timesA, timesB)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(m.Offset-0.002) > 1e-9 {
		t.Errorf("offset: got %g, want 0.002", m.Offset)
	}
	if math.Abs(drift-100) > 1e-3 {
		t.Errorf("drift: got %gppm, want 100ppm", drift)
	}

	// The mapping must land on the target series within fit residual.
	for i, a := range timesA {
		if math.Abs(m.Apply(a)-timesB[i]) > 1e-9 {
			t.Fatalf("mapped value off at %d: %g vs %g", i, m.Apply(a), timesB[i])
		}
	}
}

func TestFitClockPreservesMonotonicity(t *testing.T) {
	timesA := []float64{0, 1, 2, 3, 4}
	timesB := []float64{10.0, 10.9, 12.1, 13.0, 14.05} // noisy but increasing

	m, _, err := FitClock(timesA, timesB)
	if err != nil {
		t.Fatal(err)
	}
	mapped := m.ApplyAll(timesA)
	for i := 1; i < len(mapped); i++ {
		if mapped[i] <= mapped[i-1] {
			t.Fatalf("mapping not strictly increasing at %d: %v", i, mapped)
		}
	}
}

func TestFitClockInputValidation(t *testing.T) {
	cases := []struct {
		name string
		a, b []float64
	}{
		{"length mismatch", []float64{0, 1}, []float64{0, 1, 2}},
		{"too short", []float64{0}, []float64{0}},
		{"a not increasing", []float64{0, 2, 1}, []float64{0, 1, 2}},
		{"b not increasing", []float64{0, 1, 2}, []float64{0, 2, 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := FitClock(tc.a, tc.b); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
