package metric

import "time"

// FunctionTimer observes timing state maintained elsewhere: a count
// function and a total-time function are sampled whenever the timer is
// read. Useful for wrapping counters another system already keeps, like
// runtime GC pause totals.
type FunctionTimer struct {
	id        ID
	countFn   func() float64
	totalFn   func() float64
	totalUnit time.Duration
}

func newFunctionTimer(id ID, countFn, totalFn func() float64, totalUnit time.Duration) *FunctionTimer {
	if totalUnit <= 0 {
		totalUnit = time.Nanosecond
	}
	return &FunctionTimer{id: id, countFn: countFn, totalFn: totalFn, totalUnit: totalUnit}
}

func (t *FunctionTimer) ID() ID { return t.id }

// Count samples the count function.
func (t *FunctionTimer) Count() float64 {
	if t.countFn == nil {
		return 0
	}
	return t.countFn()
}

// TotalTime samples the total-time function and converts it from the unit
// it is maintained in to the requested one.
func (t *FunctionTimer) TotalTime(unit time.Duration) float64 {
	if t.totalFn == nil {
		return 0
	}
	return t.totalFn() * float64(t.totalUnit) / float64(unit)
}

// Mean returns total time over count in the given unit, 0 when the count
// is zero.
func (t *FunctionTimer) Mean(unit time.Duration) float64 {
	count := t.Count()
	if count == 0 {
		return 0
	}
	return t.TotalTime(unit) / count
}

// Measure reports durations in seconds.
func (t *FunctionTimer) Measure() []Measurement {
	return []Measurement{
		{Statistic: StatisticCount, Value: t.Count()},
		{Statistic: StatisticTotalTime, Value: t.TotalTime(time.Second)},
	}
}
