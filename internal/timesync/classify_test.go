package timesync

import (
	"errors"
	"math"
	"testing"
)

func TestPairIntervals(t *testing.T) {
	ivs, err := PairIntervals([]float64{0, 1, 2}, []float64{0.1, 1.5, 2.5, 9})
	if err != nil {
		t.Fatal(err)
	}
	if len(ivs) != 3 {
		t.Fatalf("expected offsets truncated to 3 intervals, got %d", len(ivs))
	}
	if ivs[1] != (Interval{Start: 1, Stop: 1.5}) {
		t.Errorf("interval 1: got %+v", ivs[1])
	}

	if _, err := PairIntervals([]float64{1}, []float64{0.5}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("offset before onset should be ErrInvalidInput, got %v", err)
	}
}

func TestSplitByDuration(t *testing.T) {
	// 40 tones at ~100ms and 40 noises at ~500ms, split at 300ms.
	var ivs []Interval
	for i := 0; i < 40; i++ {
		t0 := float64(i) * 2
		ivs = append(ivs, Interval{Start: t0, Stop: t0 + 0.1})
		ivs = append(ivs, Interval{Start: t0 + 1, Stop: t0 + 1.5})
	}
	tones, noises := SplitByDuration(ivs, 0.3)
	if len(tones) != 40 || len(noises) != 40 {
		t.Fatalf("got %d short and %d long, want 40 and 40", len(tones), len(noises))
	}
	for _, iv := range tones {
		if math.Abs(iv.Duration()-0.1) > 1e-9 {
			t.Fatalf("tone duration %g", iv.Duration())
		}
	}
}

func TestPulseThreshold(t *testing.T) {
	// Alternating ~0.3s pulses and ~1s intervals: gaps of a front series.
	gaps := []float64{0.31, 1.0, 0.30, 1.1, 0.29, 0.95, 0.30, 1.05, 0.31, 0.98}
	thresh, err := PulseThreshold(gaps)
	if err != nil {
		t.Fatal(err)
	}
	// Threshold is the minimum interval length; every pulse is below it.
	if thresh < 0.31 || thresh > 1.1 {
		t.Errorf("threshold %g outside expected range", thresh)
	}
	for i := 0; i < len(gaps); i += 2 {
		if gaps[i] >= thresh {
			t.Errorf("pulse gap %g not below threshold %g", gaps[i], thresh)
		}
	}
}

func TestPulseThresholdTooFewGaps(t *testing.T) {
	if _, err := PulseThreshold([]float64{1, 2, 3}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDiffsAndMedian(t *testing.T) {
	d := Diffs([]float64{1, 2, 4, 7})
	if len(d) != 3 || d[0] != 1 || d[1] != 2 || d[2] != 3 {
		t.Errorf("diffs: got %v", d)
	}
	if m := Median([]float64{5, 1, 3}); m != 3 {
		t.Errorf("median odd: got %g", m)
	}
	if m := Median([]float64{1, 2, 3, 4}); m != 2.5 {
		t.Errorf("median even: got %g", m)
	}
	if m := Median([]float64{math.NaN(), 2, 4}); m != 3 {
		t.Errorf("median with NaN: got %g", m)
	}
	if !math.IsNaN(Median(nil)) {
		t.Error("median of empty input should be NaN")
	}
	if m := MedianDiff([]float64{0, 0.1, 0.2, 0.31}); math.Abs(m-0.1) > 1e-9 {
		t.Errorf("median diff: got %g", m)
	}
}

func TestSearchSorted(t *testing.T) {
	ts := []float64{1, 2, 3}
	if i := SearchSorted(ts, 2.5); i != 2 {
		t.Errorf("got %d, want 2", i)
	}
	if i := SearchSorted(ts, 0); i != 0 {
		t.Errorf("got %d, want 0", i)
	}
	if i := SearchSorted(ts, 9); i != 3 {
		t.Errorf("got %d, want 3", i)
	}
}
