package metric

import "time"

// Timer measures the count and distribution of short durations. Recorded
// durations are stored as float64 nanoseconds; read-out methods convert to
// the unit the caller asks for.
type Timer struct {
	id    ID
	clock Clock
	dist  *distribution
}

func newTimer(id ID, clock Clock, percentiles []float64, windowSize int) *Timer {
	return &Timer{id: id, clock: clock, dist: newDistribution(percentiles, windowSize)}
}

func (t *Timer) ID() ID { return t.id }

// Record adds one observation. Negative durations are dropped.
func (t *Timer) Record(d time.Duration) {
	t.dist.record(float64(d))
}

// Time runs fn and records how long it took.
func (t *Timer) Time(fn func()) {
	start := t.clock.Monotonic()
	fn()
	t.Record(time.Duration(t.clock.Monotonic() - start))
}

// Count returns how many durations have been recorded.
func (t *Timer) Count() int64 { return t.dist.snapshot().Count }

// TotalTime returns the sum of recorded durations in the given unit.
func (t *Timer) TotalTime(unit time.Duration) float64 { return t.dist.snapshot().TotalIn(unit) }

// Mean returns the average recorded duration in the given unit, 0 when
// empty.
func (t *Timer) Mean(unit time.Duration) float64 { return t.dist.snapshot().MeanIn(unit) }

// Max returns the largest recorded duration in the given unit.
func (t *Timer) Max(unit time.Duration) float64 { return t.dist.snapshot().MaxIn(unit) }

// TakeSnapshot reads count, total, max and any configured percentiles in
// one consistent pass. Snapshot values are nanoseconds.
func (t *Timer) TakeSnapshot() Snapshot { return t.dist.snapshot() }

// Measure reports durations in seconds.
func (t *Timer) Measure() []Measurement {
	s := t.TakeSnapshot()
	return []Measurement{
		{Statistic: StatisticCount, Value: float64(s.Count)},
		{Statistic: StatisticTotalTime, Value: s.TotalIn(time.Second)},
		{Statistic: StatisticMax, Value: s.MaxIn(time.Second)},
	}
}
