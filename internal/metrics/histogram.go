// Package metrics aggregates spell completion times across games.
package metrics

import (
	"math"
	"slices"
	"sync"
	"time"
)

// Histogram tracks a distribution of durations and calculates percentiles.
type Histogram struct {
	mu      sync.RWMutex
	samples []float64 // milliseconds
	maxSize int
}

// NewHistogram creates a histogram keeping at most maxSize samples. When it
// overflows the oldest fifth is dropped.
func NewHistogram(maxSize int) *Histogram {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &Histogram{maxSize: maxSize}
}

// Record adds a duration sample.
func (h *Histogram) Record(d time.Duration) {
	h.RecordMillis(float64(d.Microseconds()) / 1000)
}

// RecordMillis adds a sample given in milliseconds.
func (h *Histogram) RecordMillis(ms float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.samples = append(h.samples, ms)
	if len(h.samples) > h.maxSize {
		h.samples = h.samples[h.maxSize/5:]
	}
}

// Mean returns the average in milliseconds.
func (h *Histogram) Mean() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return mean(h.samples)
}

// Percentile returns the p-th percentile (0-100) in milliseconds, linearly
// interpolated between neighbouring samples.
func (h *Histogram) Percentile(p float64) float64 {
	return percentile(h.sorted(), p)
}

// Min returns the smallest sample.
func (h *Histogram) Min() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.samples) == 0 {
		return 0
	}
	return slices.Min(h.samples)
}

// Max returns the largest sample.
func (h *Histogram) Max() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.samples) == 0 {
		return 0
	}
	return slices.Max(h.samples)
}

// Count returns the number of samples.
func (h *Histogram) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.samples)
}

// Reset clears all samples.
func (h *Histogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = h.samples[:0]
}

// Summary is a point-in-time view of a histogram, in milliseconds.
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
	P95   float64 `json:"p95"`
}

// Summary computes all statistics from one consistent snapshot.
func (h *Histogram) Summary() Summary {
	sorted := h.sorted()
	if len(sorted) == 0 {
		return Summary{}
	}
	return Summary{
		Count: len(sorted),
		Mean:  mean(sorted),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		P50:   percentile(sorted, 50),
		P90:   percentile(sorted, 90),
		P95:   percentile(sorted, 95),
	}
}

func (h *Histogram) sorted() []float64 {
	h.mu.RLock()
	out := slices.Clone(h.samples)
	h.mu.RUnlock()
	slices.Sort(out)
	return out
}

func mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	return sum / float64(len(samples))
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	p = math.Max(0, math.Min(100, p))
	index := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	fraction := index - float64(lower)
	return sorted[lower]*(1-fraction) + sorted[upper]*fraction
}
