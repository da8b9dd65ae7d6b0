package metric

import "math"

// Gauge reports an instantaneous value read from a caller-supplied
// function each time the gauge is observed.
type Gauge struct {
	id ID
	fn func() float64
}

func newGauge(id ID, fn func() float64) *Gauge {
	return &Gauge{id: id, fn: fn}
}

func (g *Gauge) ID() ID { return g.id }

// Value observes the gauge. A nil or panicking value function yields NaN
// so that one broken gauge cannot take the rest of a read-out with it.
func (g *Gauge) Value() (v float64) {
	if g.fn == nil {
		return math.NaN()
	}
	defer func() {
		if recover() != nil {
			v = math.NaN()
		}
	}()
	return g.fn()
}

func (g *Gauge) Measure() []Measurement {
	return []Measurement{{Statistic: StatisticValue, Value: g.Value()}}
}
