package metric

import (
	"sync"
	"time"
)

// Clock abstracts the time source so timers can be tested without
// sleeping. Monotonic returns nanoseconds from an arbitrary fixed origin
// and is what duration measurements should subtract.
type Clock interface {
	Now() time.Time
	Monotonic() int64
}

// SystemClock reads the real wall clock.
var SystemClock Clock = systemClock{}

var systemStart = time.Now()

type systemClock struct{}

func (systemClock) Now() time.Time   { return time.Now() }
func (systemClock) Monotonic() int64 { return int64(time.Since(systemStart)) }

// ManualClock is a Clock that only moves when told to. For tests.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Monotonic() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.UnixNano()
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
