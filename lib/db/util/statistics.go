// Package util
//
// This file implements a small size histogram and descriptive statistics.
// The storage layer uses them to report value sizes and how evenly the
// index is spread over the loaded groups.
package util

import (
	"math"
)

// ----------------------------------------------------------------------------
// Stats
// ----------------------------------------------------------------------------

type Stats struct {
	StdDeviation float64 `json:"std_deviation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
}

// NewStats computes mean, population standard deviation, min and max
func NewStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	s := Stats{Min: values[0], Max: values[0]}
	var sum float64
	for _, v := range values {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - s.Mean) * (v - s.Mean)
	}
	s.StdDeviation = math.Sqrt(sq / float64(len(values)))
	return s
}

// ----------------------------------------------------------------------------
// SizeHistogram
// ----------------------------------------------------------------------------

// sizeBoundaries are the upper bounds of the buckets, the last bucket is open
var sizeBoundaries = []int{
	16, 64, 256, 1024, 4096, // bytes
	16384, 65536, 262144, 1048576, // kilobytes
	4194304, 16777216, 67108864, // megabytes
}

// SizeHistogram tracks the distribution of value sizes with exponential buckets
type SizeHistogram struct {
	buckets []int64
	count   int64
	sum     int64
}

// NewSizeHistogram creates an empty histogram
func NewSizeHistogram() *SizeHistogram {
	return &SizeHistogram{buckets: make([]int64, len(sizeBoundaries)+1)}
}

// AddSample records one size
func (h *SizeHistogram) AddSample(size int) {
	idx := len(sizeBoundaries)
	for i, boundary := range sizeBoundaries {
		if size <= boundary {
			idx = i
			break
		}
	}
	h.buckets[idx]++
	h.count++
	h.sum += int64(size)
}

// Count returns the number of samples
func (h *SizeHistogram) Count() int64 { return h.count }

// Sum returns the sum of all samples
func (h *SizeHistogram) Sum() int64 { return h.sum }

// AverageSize returns the mean sample size
func (h *SizeHistogram) AverageSize() int {
	if h.count == 0 {
		return 0
	}
	return int(h.sum / h.count)
}

// PercentileEstimate estimates the given percentile (0-100) from the buckets
func (h *SizeHistogram) PercentileEstimate(percentile int) int {
	if h.count == 0 || percentile < 0 || percentile > 100 {
		return 0
	}

	target := int64(math.Ceil(float64(h.count) * float64(percentile) / 100.0))
	var cumulative int64
	for i, c := range h.buckets {
		cumulative += c
		if cumulative < target {
			continue
		}
		switch {
		case i == 0:
			return sizeBoundaries[0] / 2
		case i < len(sizeBoundaries):
			return (sizeBoundaries[i-1] + sizeBoundaries[i]) / 2
		default:
			return sizeBoundaries[len(sizeBoundaries)-1] * 2
		}
	}
	return h.AverageSize()
}
