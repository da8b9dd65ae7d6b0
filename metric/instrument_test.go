package metric

import (
	"math"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func TestCounterAccumulates(t *testing.T) {
	reg := NewRegistry()
	c := reg.Counter("cache.evictions")

	c.Increment()
	c.Add(2.5)

	assert.Equal(t, c.Count(), 3.5)
}

func TestCounterDropsNegativeAndNaN(t *testing.T) {
	reg := NewRegistry()
	c := reg.Counter("cache.evictions")

	c.Add(5)
	c.Add(-1)
	c.Add(math.NaN())

	assert.Equal(t, c.Count(), 5.0)
}

func TestCounterMeasure(t *testing.T) {
	reg := NewRegistry()
	c := reg.Counter("cache.evictions")
	c.Add(7)

	m := c.Measure()

	assert.Equal(t, len(m), 1)
	assert.Equal(t, m[0], Measurement{Statistic: StatisticCount, Value: 7})
}

func TestGaugeReadsFunction(t *testing.T) {
	reg := NewRegistry()
	depth := 12.0
	g := reg.Gauge("queue.depth", func() float64 { return depth })

	assert.Equal(t, g.Value(), 12.0)

	depth = 3
	assert.Equal(t, g.Value(), 3.0)
}

func TestGaugeNaNOnNilOrPanickingFunction(t *testing.T) {
	reg := NewRegistry()

	nilGauge := reg.Gauge("queue.nil", nil)
	assert.Assert(t, math.IsNaN(nilGauge.Value()))

	panicking := reg.Gauge("queue.broken", func() float64 { panic("backing store gone") })
	assert.Assert(t, math.IsNaN(panicking.Value()))
}

func TestTimerRecords(t *testing.T) {
	reg := NewRegistry()
	timer := reg.Timer("http.server.requests")

	timer.Record(2 * time.Second)
	timer.Record(2 * time.Second)
	timer.Record(2500 * time.Millisecond)
	timer.Record(2 * time.Second)
	timer.Record(4 * time.Second)

	assert.Equal(t, timer.Count(), int64(5))
	assert.Equal(t, timer.TotalTime(time.Second), 12.5)
	assert.Equal(t, timer.Mean(time.Second), 2.5)
	assert.Equal(t, timer.Max(time.Second), 4.0)
}

func TestTimerDropsNegativeDurations(t *testing.T) {
	reg := NewRegistry()
	timer := reg.Timer("http.server.requests")

	timer.Record(time.Second)
	timer.Record(-time.Second)

	assert.Equal(t, timer.Count(), int64(1))
	assert.Equal(t, timer.TotalTime(time.Second), 1.0)
}

func TestTimerUnitsConvert(t *testing.T) {
	reg := NewRegistry()
	timer := reg.Timer("http.server.requests")

	timer.Record(1500 * time.Millisecond)

	assert.Equal(t, timer.TotalTime(time.Millisecond), 1500.0)
	assert.Equal(t, timer.TotalTime(time.Second), 1.5)
	assert.Equal(t, timer.Max(time.Microsecond), 1500000.0)
}

func TestTimerTimeUsesClock(t *testing.T) {
	clock := NewManualClock(time.Unix(1700000000, 0))
	reg := NewRegistry(WithClock(clock))
	timer := reg.Timer("job.duration")

	timer.Time(func() { clock.Advance(250 * time.Millisecond) })

	assert.Equal(t, timer.Count(), int64(1))
	assert.Equal(t, timer.TotalTime(time.Millisecond), 250.0)
}

func TestTimerEmptySnapshot(t *testing.T) {
	reg := NewRegistry()
	timer := reg.Timer("http.server.requests")

	snap := timer.TakeSnapshot()

	assert.Equal(t, snap.Count, int64(0))
	assert.Equal(t, snap.Total, 0.0)
	assert.Equal(t, snap.Max, 0.0)
	assert.Equal(t, snap.Mean(), 0.0)
}

func TestSummaryRecords(t *testing.T) {
	reg := NewRegistry()
	summary := reg.Summary("payload.size")

	summary.Record(1)
	summary.Record(3)
	summary.Record(5)

	assert.Equal(t, summary.Count(), int64(3))
	assert.Equal(t, summary.TotalAmount(), 9.0)
	assert.Equal(t, summary.Mean(), 3.0)
	assert.Equal(t, summary.Max(), 5.0)
}

func TestSummaryDropsNegativeAmounts(t *testing.T) {
	reg := NewRegistry()
	summary := reg.Summary("payload.size")

	summary.Record(10)
	summary.Record(-4)

	assert.Equal(t, summary.Count(), int64(1))
	assert.Equal(t, summary.TotalAmount(), 10.0)
}

func TestFunctionTimerSamples(t *testing.T) {
	reg := NewRegistry()
	count := 10.0
	totalMillis := 5000.0
	ft := reg.FunctionTimer("pool.wait", func() float64 { return count }, func() float64 { return totalMillis }, time.Millisecond)

	assert.Equal(t, ft.Count(), 10.0)
	assert.Equal(t, ft.TotalTime(time.Second), 5.0)
	assert.Equal(t, ft.Mean(time.Millisecond), 500.0)

	count = 20
	totalMillis = 30000
	assert.Equal(t, ft.Count(), 20.0)
	assert.Equal(t, ft.TotalTime(time.Second), 30.0)
}

func TestFunctionTimerZeroCountMean(t *testing.T) {
	reg := NewRegistry()
	ft := reg.FunctionTimer("pool.wait", func() float64 { return 0 }, func() float64 { return 0 }, time.Millisecond)

	assert.Equal(t, ft.Mean(time.Second), 0.0)
}
