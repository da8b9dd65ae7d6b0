package metric

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/stat"
)

// defaultSampleWindowSize bounds how many recent observations are kept for
// percentile estimation when percentiles are enabled.
const defaultSampleWindowSize = 1024

// ValueAtPercentile is one point of a distribution snapshot.
type ValueAtPercentile struct {
	// Percentile is expressed as a quantile in (0, 1], e.g. 0.99.
	Percentile float64
	Value      float64
}

// Snapshot is a point-in-time read of a distribution. For timers every
// value is in nanoseconds; the *In helpers convert. A snapshot is a plain
// value and never changes after it is taken.
type Snapshot struct {
	Count       int64
	Total       float64
	Max         float64
	Percentiles []ValueAtPercentile
}

// Mean returns Total/Count, or 0 when nothing has been recorded.
func (s Snapshot) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Total / float64(s.Count)
}

// TotalIn converts a duration-valued Total to the given unit.
func (s Snapshot) TotalIn(unit time.Duration) float64 { return s.Total / float64(unit) }

// MeanIn converts a duration-valued mean to the given unit.
func (s Snapshot) MeanIn(unit time.Duration) float64 { return s.Mean() / float64(unit) }

// MaxIn converts a duration-valued Max to the given unit.
func (s Snapshot) MaxIn(unit time.Duration) float64 { return s.Max / float64(unit) }

// sampleWindow keeps the most recent size observations in a ring for
// quantile estimation.
type sampleWindow struct {
	values []float64
	next   int
	count  int
}

func newSampleWindow(size int) *sampleWindow {
	if size <= 0 {
		size = defaultSampleWindowSize
	}
	return &sampleWindow{values: make([]float64, size)}
}

func (w *sampleWindow) add(v float64) {
	w.values[w.next] = v
	w.next = (w.next + 1) % len(w.values)
	if w.count < len(w.values) {
		w.count++
	}
}

// quantiles estimates the requested quantiles over the current window
// using gonum's empirical quantile, which requires sorted input.
func (w *sampleWindow) quantiles(qs []float64) []ValueAtPercentile {
	if w.count == 0 || len(qs) == 0 {
		return nil
	}
	data := make([]float64, w.count)
	copy(data, w.values[:w.count])
	sort.Float64s(data)
	out := make([]ValueAtPercentile, 0, len(qs))
	for _, q := range qs {
		out = append(out, ValueAtPercentile{
			Percentile: q,
			Value:      stat.Quantile(q, stat.Empirical, data, nil),
		})
	}
	return out
}

// distribution accumulates count/total/max with an optional bounded sample
// window for percentiles. Count, total and max are lock-free; only the
// window takes a mutex, and only when percentiles were requested.
type distribution struct {
	count atomic.Int64
	total atomicFloat64
	max   atomicFloat64

	mu          sync.Mutex
	window      *sampleWindow
	percentiles []float64
}

func newDistribution(percentiles []float64, windowSize int) *distribution {
	d := &distribution{}
	if len(percentiles) > 0 {
		d.percentiles = append([]float64(nil), percentiles...)
		d.window = newSampleWindow(windowSize)
	}
	return d
}

// record adds one observation. Values that are negative or NaN are
// dropped.
func (d *distribution) record(v float64) {
	if !(v >= 0) {
		return
	}
	d.count.Add(1)
	d.total.Add(v)
	d.max.StoreMax(v)
	if d.window != nil {
		d.mu.Lock()
		d.window.add(v)
		d.mu.Unlock()
	}
}

func (d *distribution) snapshot() Snapshot {
	s := Snapshot{
		Count: d.count.Load(),
		Total: d.total.Load(),
		Max:   d.max.Load(),
	}
	if d.window != nil {
		d.mu.Lock()
		s.Percentiles = d.window.quantiles(d.percentiles)
		d.mu.Unlock()
	}
	return s
}
