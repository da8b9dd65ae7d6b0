package generator

import (
	"errors"
	"fmt"
	"sync"

	rand "golang.org/x/exp/rand"

	"github.com/jpra1113/micrometer/metric"
)

// GaugeConfig configures a gauge driver that jumps to a uniform random
// value in [Min, Max) on every tick.
type GaugeConfig struct {
	Name string
	Tags []metric.Tag
	Min  float64
	Max  float64
	Seed uint64
}

type gaugeGenerator struct {
	name     string
	min, max float64
	rng      *rand.Rand

	// the export goroutine reads value through the gauge function while
	// a worker ticks, so the current value sits behind a mutex
	mu    sync.Mutex
	value float64
}

// NewGauge builds a generator exposing a random-valued gauge, the
// classic saw-nothing-looks-like-this-in-prod test signal for dashboard
// plumbing.
func NewGauge(reg *metric.Registry, config GaugeConfig) (Generator, error) {
	if config.Name == "" {
		return nil, errors.New("gauge generator needs a name")
	}
	if config.Min == 0 && config.Max == 0 {
		config.Max = 100
	}
	if config.Max < config.Min {
		return nil, fmt.Errorf("maximum '%f' cannot be inferior to minimum '%f'", config.Max, config.Min)
	}

	g := &gaugeGenerator{
		name:  config.Name,
		min:   config.Min,
		max:   config.Max,
		rng:   newRand(config.Seed),
		value: config.Min,
	}
	reg.Gauge(config.Name, g.current, config.Tags...)
	return g, nil
}

func (g *gaugeGenerator) current() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

func (g *gaugeGenerator) Name() string {
	return g.name
}

func (g *gaugeGenerator) Describe() string {
	return fmt.Sprintf("Random gauge generator (%s) between %.2f and %.2f", g.name, g.min, g.max)
}

func (g *gaugeGenerator) Tick() {
	next := g.min + g.rng.Float64()*(g.max-g.min)
	g.mu.Lock()
	g.value = next
	g.mu.Unlock()
}
