package metric

import (
	"fmt"
	"sync"
	"time"
)

// Registry creates and holds meters. Asking twice for the same name and
// tags returns the same instrument; asking for an existing ID as a
// different instrument kind panics, since the two call sites cannot both
// be right. All methods are safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	meters []Meter          // registration order, the order exporters see
	index  map[string]Meter // ID.Key() -> meter

	convention  NamingConvention
	clock       Clock
	commonTags  []Tag
	percentiles []float64
	windowSize  int
}

// RegistryOption customizes a Registry at construction.
type RegistryOption func(*Registry)

// WithClock substitutes the time source used by timers.
func WithClock(c Clock) RegistryOption {
	return func(r *Registry) { r.clock = c }
}

// WithNamingConvention sets how exporters should render names and tags.
func WithNamingConvention(nc NamingConvention) RegistryOption {
	return func(r *Registry) { r.convention = nc }
}

// WithCommonTags adds tags to every meter created by the registry. A tag
// with the same key supplied at an instrument call site wins.
func WithCommonTags(tags ...Tag) RegistryOption {
	return func(r *Registry) { r.commonTags = append([]Tag(nil), tags...) }
}

// WithPercentiles enables percentile tracking on timers and summaries.
// Percentiles are quantiles in (0, 1], e.g. 0.5, 0.95, 0.99.
func WithPercentiles(quantiles ...float64) RegistryOption {
	return func(r *Registry) { r.percentiles = append([]float64(nil), quantiles...) }
}

// WithPercentileWindow bounds how many recent observations back the
// percentile estimates.
func WithPercentileWindow(size int) RegistryOption {
	return func(r *Registry) { r.windowSize = size }
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		index:      make(map[string]Meter),
		convention: Identity,
		clock:      SystemClock,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NamingConvention returns the convention exporters should render with.
func (r *Registry) NamingConvention() NamingConvention {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.convention
}

// SetNamingConvention replaces the rendering convention. Exporter
// registries call this to impose their backend's preferred form.
func (r *Registry) SetNamingConvention(nc NamingConvention) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.convention = nc
}

// Clock returns the registry's time source.
func (r *Registry) Clock() Clock { return r.clock }

// Meters returns all registered meters in registration order, so export
// output stays deterministic run to run.
func (r *Registry) Meters() []Meter {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Meter, len(r.meters))
	copy(out, r.meters)
	return out
}

// Counter returns the counter registered under name and tags, creating it
// on first use.
func (r *Registry) Counter(name string, tags ...Tag) *Counter {
	m := r.getOrCreate(name, tags, func(id ID) Meter { return newCounter(id) })
	c, ok := m.(*Counter)
	if !ok {
		panic(kindMismatch(name, tags, "Counter", m))
	}
	return c
}

// Gauge registers fn to be sampled under name and tags whenever the gauge
// is read. Registering the same ID again returns the first gauge; the new
// function is ignored.
func (r *Registry) Gauge(name string, fn func() float64, tags ...Tag) *Gauge {
	m := r.getOrCreate(name, tags, func(id ID) Meter { return newGauge(id, fn) })
	g, ok := m.(*Gauge)
	if !ok {
		panic(kindMismatch(name, tags, "Gauge", m))
	}
	return g
}

// Timer returns the timer registered under name and tags, creating it on
// first use with the registry's percentile configuration.
func (r *Registry) Timer(name string, tags ...Tag) *Timer {
	m := r.getOrCreate(name, tags, func(id ID) Meter {
		return newTimer(id, r.clock, r.percentiles, r.windowSize)
	})
	t, ok := m.(*Timer)
	if !ok {
		panic(kindMismatch(name, tags, "Timer", m))
	}
	return t
}

// Summary returns the distribution summary registered under name and
// tags, creating it on first use.
func (r *Registry) Summary(name string, tags ...Tag) *DistributionSummary {
	m := r.getOrCreate(name, tags, func(id ID) Meter {
		return newSummary(id, r.percentiles, r.windowSize)
	})
	s, ok := m.(*DistributionSummary)
	if !ok {
		panic(kindMismatch(name, tags, "DistributionSummary", m))
	}
	return s
}

// FunctionTimer registers a timer whose count and total time are sampled
// from the given functions. totalUnit is the unit totalFn's result is
// expressed in.
func (r *Registry) FunctionTimer(name string, countFn, totalFn func() float64, totalUnit time.Duration, tags ...Tag) *FunctionTimer {
	m := r.getOrCreate(name, tags, func(id ID) Meter {
		return newFunctionTimer(id, countFn, totalFn, totalUnit)
	})
	t, ok := m.(*FunctionTimer)
	if !ok {
		panic(kindMismatch(name, tags, "FunctionTimer", m))
	}
	return t
}

// RegisterMeter registers a custom meter whose measurements come from
// measure. The returned Meter is whatever is registered under the ID, so
// callers get the original on duplicate registration.
func (r *Registry) RegisterMeter(name string, measure func() []Measurement, tags ...Tag) Meter {
	return r.getOrCreate(name, tags, func(id ID) Meter {
		return &customMeter{id: id, measure: measure}
	})
}

func (r *Registry) getOrCreate(name string, tags []Tag, build func(ID) Meter) Meter {
	id := NewID(name, tags).withTags(r.commonTags)
	key := id.Key()

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.index[key]; ok {
		return m
	}
	m := build(id)
	r.index[key] = m
	r.meters = append(r.meters, m)
	return m
}

func kindMismatch(name string, tags []Tag, want string, got Meter) string {
	return fmt.Sprintf("metric: %s already registered as %T, requested as %s",
		NewID(name, tags).Key(), got, want)
}

type customMeter struct {
	id      ID
	measure func() []Measurement
}

func (m *customMeter) ID() ID { return m.id }

func (m *customMeter) Measure() []Measurement {
	if m.measure == nil {
		return nil
	}
	return m.measure()
}
