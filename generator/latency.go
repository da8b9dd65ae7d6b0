package generator

import (
	"errors"
	"fmt"
	"time"

	rand "golang.org/x/exp/rand"
	distuv "gonum.org/v1/gonum/stat/distuv"

	"github.com/jpra1113/micrometer/metric"
)

// LatencyConfig configures a timer driver whose recorded durations follow
// a Gamma distribution scaled into [Min, Max].
type LatencyConfig struct {
	Name string
	Tags []metric.Tag
	// Min is the floor added to every sample. Defaults to 100ms.
	Min time.Duration
	// Max is the ceiling samples are clamped to. Defaults to 10s.
	Max time.Duration
	// Alpha and Beta shape the Gamma distribution. Defaults 1.5 and 10.
	Alpha float64
	Beta  float64
	// RequestsPerTick is how many durations are recorded per tick.
	// Defaults to 1.
	RequestsPerTick int
	// Seed fixes the distribution source. 0 seeds from the wall clock.
	Seed uint64
}

type latencyGenerator struct {
	timer    *metric.Timer
	min, max time.Duration
	requests int
	distrib  distuv.Gamma
}

// NewLatency builds a generator that records response-time-shaped
// durations into a timer.
//
// Latency distributions are skewed right: most samples cluster around the
// typical response time with a long tail toward p95/p99. A Gamma
// distribution with Alpha above 1 and Beta below ~5 reproduces that
// shape; roughly, Alpha moves where the bulk of the data sits and Beta
// controls how far the tail scatters. To visualize interactively:
// https://www.medcalc.org/manual/gamma_distribution_functions.php
func NewLatency(reg *metric.Registry, config LatencyConfig) (Generator, error) {
	if config.Name == "" {
		return nil, errors.New("latency generator needs a name")
	}
	if config.Min == 0 {
		config.Min = 100 * time.Millisecond
	}
	if config.Max == 0 {
		config.Max = 10 * time.Second
	}
	if config.Alpha == 0 {
		config.Alpha = 1.5
	}
	if config.Beta == 0 {
		config.Beta = 10.0
	}
	if config.RequestsPerTick <= 0 {
		config.RequestsPerTick = 1
	}

	if config.Max < config.Min {
		return nil, fmt.Errorf("maximum '%s' cannot be inferior to minimum '%s'", config.Max, config.Min)
	}
	if config.Alpha <= 0.0 {
		return nil, errors.New("alpha must be a positive number")
	}
	if config.Beta <= 0.0 {
		return nil, errors.New("beta must be a positive number")
	}

	return &latencyGenerator{
		timer:    reg.Timer(config.Name, config.Tags...),
		min:      config.Min,
		max:      config.Max,
		requests: config.RequestsPerTick,
		distrib: distuv.Gamma{
			Alpha: config.Alpha,
			Beta:  config.Beta,
			Src:   rand.NewSource(seedOrNow(config.Seed)),
		},
	}, nil
}

func (g *latencyGenerator) Name() string {
	return g.timer.ID().Name()
}

// scale maps a raw draw onto [min, max].
func (g *latencyGenerator) scale(num float64) time.Duration {
	d := time.Duration(num*float64(g.max-g.min)) + g.min
	if d > g.max {
		return g.max
	}
	return d
}

func (g *latencyGenerator) Describe() string {
	return fmt.Sprintf("Latency generator (%s) between %s and %s with a mean of %s, P50=%s, P95=%s and P99=%s",
		g.Name(), g.min, g.max,
		g.scale(g.distrib.Mean()),
		g.scale(g.distrib.Quantile(0.5)),
		g.scale(g.distrib.Quantile(0.95)),
		g.scale(g.distrib.Quantile(0.99)))
}

func (g *latencyGenerator) Tick() {
	for i := 0; i < g.requests; i++ {
		g.timer.Record(g.scale(g.distrib.Rand()))
	}
}
