package util

import (
	"math"
	"testing"
)

func TestNewStats(t *testing.T) {
	if s := NewStats(nil); s != (Stats{}) {
		t.Errorf("expected zero stats for no values, got %+v", s)
	}

	s := NewStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if s.Mean != 5 || s.Min != 2 || s.Max != 9 {
		t.Errorf("unexpected stats %+v", s)
	}
	if math.Abs(s.StdDeviation-2) > 1e-9 {
		t.Errorf("expected std deviation 2, got %f", s.StdDeviation)
	}
}

func TestSizeHistogram(t *testing.T) {
	h := NewSizeHistogram()
	if h.PercentileEstimate(50) != 0 {
		t.Error("empty histogram should estimate 0")
	}

	for _, size := range []int{10, 10, 10, 100, 5000} {
		h.AddSample(size)
	}

	if h.Count() != 5 || h.Sum() != 5130 {
		t.Errorf("expected count 5 and sum 5130, got %d and %d", h.Count(), h.Sum())
	}
	if h.AverageSize() != 1026 {
		t.Errorf("expected average 1026, got %d", h.AverageSize())
	}
	// three of five samples fall into the first bucket
	if got := h.PercentileEstimate(50); got != 8 {
		t.Errorf("expected median estimate 8, got %d", got)
	}
	if got := h.PercentileEstimate(100); got != (4096+16384)/2 {
		t.Errorf("expected max estimate %d, got %d", (4096+16384)/2, got)
	}
}
