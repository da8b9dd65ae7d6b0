package newrelic

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jpra1113/micrometer/metric"
)

// Registry wraps a metric.Registry and exports every registered meter to
// the New Relic events API. Meters are created through the embedded
// registry; Publish runs one export cycle, and Start/Close drive cycles on
// a fixed interval.
type Registry struct {
	*metric.Registry

	cfg       Config
	publisher Publisher
	log       log.FieldLogger
	extraTags []metric.Tag

	// cycleMu enforces one export cycle in flight per registry.
	cycleMu sync.Mutex

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Option customizes a Registry at construction.
type Option func(*Registry)

// WithPublisher substitutes the delivery mechanism, e.g. a LogPublisher
// for dry runs.
func WithPublisher(p Publisher) Option {
	return func(r *Registry) { r.publisher = p }
}

// WithLogger routes the exporter's diagnostics through the given logger.
func WithLogger(logger log.FieldLogger) Option {
	return func(r *Registry) { r.log = logger }
}

// WithMetricRegistry exports meters from an existing registry instead of a
// fresh one, so percentile or clock options set there carry over.
func WithMetricRegistry(reg *metric.Registry) Option {
	return func(r *Registry) { r.Registry = reg }
}

// WithExtraTags appends ad-hoc tags to every published event, after the
// meter's own tags. They are written verbatim, no naming convention
// applied.
func WithExtraTags(tags ...metric.Tag) Option {
	return func(r *Registry) { r.extraTags = append([]metric.Tag(nil), tags...) }
}

// New validates the configuration and builds a registry. A missing
// account ID or API key fails construction immediately so a misconfigured
// exporter never makes it to the first cycle.
func New(cfg Config, opts ...Option) (*Registry, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	r := &Registry{
		cfg: cfg.withDefaults(),
		log: log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Registry == nil {
		r.Registry = metric.NewRegistry()
	}
	r.Registry.SetNamingConvention(metric.CamelCase)
	if r.publisher == nil {
		r.publisher = newHTTPPublisher(r.cfg, r.log)
	}
	return r, nil
}

// endpointURL resolves the account-scoped events endpoint from the
// configured base URI.
func (r *Registry) endpointURL() (string, error) {
	u, err := url.Parse(r.cfg.URI)
	if err != nil {
		return "", fmt.Errorf("newrelic: malformed insights uri %q: %w", r.cfg.URI, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("newrelic: malformed insights uri %q: scheme and host are required", r.cfg.URI)
	}
	return u.JoinPath("v1", "accounts", r.cfg.AccountID, "events").String(), nil
}

// Publish runs one export cycle: snapshot every meter, flatten to events,
// batch, POST each batch in order. It returns an error only when the
// destination URL cannot be built from the configuration; every other
// failure is logged and swallowed so a scheduling loop is never broken by
// one bad cycle. Overlapping calls are skipped, not queued: if a cycle is
// already running, Publish returns immediately.
func (r *Registry) Publish(ctx context.Context) error {
	endpoint, err := r.endpointURL()
	if err != nil {
		return err
	}

	if !r.cycleMu.TryLock() {
		r.log.Debug("export cycle already in flight, skipping")
		return nil
	}
	defer r.cycleMu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			r.log.Warnf("failed to send metrics to new relic: %v", p)
		}
	}()

	enc := &encoder{convention: r.NamingConvention(), extraTags: r.extraTags}
	var events []Event
	for _, m := range r.Meters() {
		events = append(events, enc.events(m)...)
	}

	batches := batchEvents(events, r.cfg.BatchSize)
	dropped := 0
	for _, batch := range batches {
		// the publisher logs each failure; keep going with the rest
		if err := r.publisher.Publish(ctx, endpoint, batch); err != nil {
			dropped++
		}
	}
	if dropped > 0 {
		r.log.Debugf("export cycle dropped %d of %d batches", dropped, len(batches))
	}
	return nil
}

// Start launches a goroutine that runs one export cycle every Step until
// ctx is canceled or Close is called. Calling Start twice is a no-op. A
// malformed URI stops the loop on its first tick; everything else keeps
// the loop alive.
func (r *Registry) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(r.cfg.Step)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := r.Publish(ctx); err != nil {
					r.log.Errorf("stopping export loop: %v", err)
					return
				}
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			}
		}
	}()
}

// Close stops the export loop and runs one final cycle so observations
// recorded since the last tick still go out.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.started {
		r.started = false
		close(r.stopCh)
		doneCh := r.doneCh
		r.mu.Unlock()
		<-doneCh
	} else {
		r.mu.Unlock()
	}
	return r.Publish(context.Background())
}
