package generator

import (
	"errors"
	"fmt"

	rand "golang.org/x/exp/rand"

	"github.com/jpra1113/micrometer/metric"
)

// CounterConfig configures a fixed-increment counter driver.
type CounterConfig struct {
	Name string
	Tags []metric.Tag
	// Increment is added on every tick. Defaults to 1.
	Increment float64
	// Jitter adds a uniform random extra in [0, Jitter) per tick.
	Jitter float64
	// Seed fixes the jitter source. 0 seeds from the wall clock.
	Seed uint64
}

type counterGenerator struct {
	counter   *metric.Counter
	increment float64
	jitter    float64
	rng       *rand.Rand
}

// NewCounter builds a generator that grows a counter every tick,
// simulating throughput-style metrics like requests or iterations.
func NewCounter(reg *metric.Registry, config CounterConfig) (Generator, error) {
	if config.Name == "" {
		return nil, errors.New("counter generator needs a name")
	}
	if config.Increment == 0 {
		config.Increment = 1
	}
	if config.Increment < 0 {
		return nil, fmt.Errorf("counter increment must be positive, got %f", config.Increment)
	}
	if config.Jitter < 0 {
		return nil, fmt.Errorf("counter jitter must not be negative, got %f", config.Jitter)
	}

	g := &counterGenerator{
		counter:   reg.Counter(config.Name, config.Tags...),
		increment: config.Increment,
		jitter:    config.Jitter,
	}
	if config.Jitter > 0 {
		g.rng = newRand(config.Seed)
	}
	return g, nil
}

func (g *counterGenerator) Name() string {
	return g.counter.ID().Name()
}

func (g *counterGenerator) Describe() string {
	return fmt.Sprintf("Counter generator (%s) adding %.2f per tick with up to %.2f jitter", g.Name(), g.increment, g.jitter)
}

func (g *counterGenerator) Tick() {
	delta := g.increment
	if g.rng != nil {
		delta += g.rng.Float64() * g.jitter
	}
	g.counter.Add(delta)
}
