package metric

// Counter accumulates a monotonically increasing value.
type Counter struct {
	id    ID
	value atomicFloat64
}

func newCounter(id ID) *Counter {
	return &Counter{id: id}
}

func (c *Counter) ID() ID { return c.id }

// Increment adds one.
func (c *Counter) Increment() { c.Add(1) }

// Add increases the counter by delta. Counters only go up: negative or
// NaN deltas are dropped.
func (c *Counter) Add(delta float64) {
	if !(delta >= 0) {
		return
	}
	c.value.Add(delta)
}

// Count returns the accumulated value.
func (c *Counter) Count() float64 { return c.value.Load() }

func (c *Counter) Measure() []Measurement {
	return []Measurement{{Statistic: StatisticCount, Value: c.Count()}}
}
