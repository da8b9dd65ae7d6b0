package generator

import (
	"errors"
	"fmt"
	"math"

	rand "golang.org/x/exp/rand"
	distuv "gonum.org/v1/gonum/stat/distuv"

	"github.com/jpra1113/micrometer/metric"
)

// PayloadConfig configures a distribution-summary driver whose amounts
// follow a log-normal distribution, the usual shape of payload and
// message sizes.
type PayloadConfig struct {
	Name string
	Tags []metric.Tag
	// Mu is the log-space mean. Defaults to ln(20KiB).
	Mu float64
	// Sigma is the log-space standard deviation. Defaults to 0.5.
	Sigma float64
	// RecordsPerTick is how many amounts are recorded per tick.
	// Defaults to 1.
	RecordsPerTick int
	// Seed fixes the distribution source. 0 seeds from the wall clock.
	Seed uint64
}

type payloadGenerator struct {
	summary *metric.DistributionSummary
	records int
	distrib distuv.LogNormal
}

// NewPayload builds a generator that records size-shaped amounts into a
// distribution summary.
func NewPayload(reg *metric.Registry, config PayloadConfig) (Generator, error) {
	if config.Name == "" {
		return nil, errors.New("payload generator needs a name")
	}
	if config.Mu == 0 {
		config.Mu = math.Log(20 * 1024)
	}
	if config.Sigma == 0 {
		config.Sigma = 0.5
	}
	if config.Sigma < 0 {
		return nil, errors.New("sigma must be a positive number")
	}
	if config.RecordsPerTick <= 0 {
		config.RecordsPerTick = 1
	}

	return &payloadGenerator{
		summary: reg.Summary(config.Name, config.Tags...),
		records: config.RecordsPerTick,
		distrib: distuv.LogNormal{
			Mu:    config.Mu,
			Sigma: config.Sigma,
			Src:   rand.NewSource(seedOrNow(config.Seed)),
		},
	}, nil
}

func (g *payloadGenerator) Name() string {
	return g.summary.ID().Name()
}

func (g *payloadGenerator) Describe() string {
	return fmt.Sprintf("Payload generator (%s) log-normal with a mean of %.0f bytes", g.Name(), g.distrib.Mean())
}

func (g *payloadGenerator) Tick() {
	for i := 0; i < g.records; i++ {
		g.summary.Record(g.distrib.Rand())
	}
}
