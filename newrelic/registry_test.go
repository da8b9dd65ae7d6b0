package newrelic

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/valyala/fastjson"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/poll"

	"github.com/jpra1113/micrometer/metric"
)

// countingPublisher records the size of every batch it is handed and can
// be told to fail specific calls (1-based index).
type countingPublisher struct {
	mu    sync.Mutex
	sizes []int
	fail  map[int]error
}

func (p *countingPublisher) Publish(_ context.Context, _ string, events []Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sizes = append(p.sizes, len(events))
	if err := p.fail[len(p.sizes)]; err != nil {
		return err
	}
	return nil
}

func (p *countingPublisher) batchSizes() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.sizes...)
}

func testConfig() Config {
	return Config{URI: "http://collector.local", AccountID: "12345", APIKey: "secret-key"}
}

func newTestRegistry(t *testing.T, cfg Config, opts ...Option) (*Registry, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	r, err := New(cfg, append([]Option{WithLogger(logger)}, opts...)...)
	assert.NilError(t, err)
	return r, hook
}

func TestNewRequiresAccountIDAndAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Assert(t, errors.Is(err, ErrMissingAccountID))
	assert.Assert(t, errors.Is(err, ErrMissingAPIKey))

	_, err = New(Config{AccountID: "12345"})
	assert.Assert(t, errors.Is(err, ErrMissingAPIKey))

	_, err = New(Config{APIKey: "secret-key"})
	assert.Assert(t, errors.Is(err, ErrMissingAccountID))

	_, err = New(testConfig())
	assert.NilError(t, err)
}

func TestNewAppliesDefaults(t *testing.T) {
	r, _ := newTestRegistry(t, Config{AccountID: "12345", APIKey: "secret-key"})

	assert.Equal(t, r.cfg.URI, DefaultURI)
	assert.Equal(t, r.cfg.BatchSize, DefaultBatchSize)
	assert.Equal(t, r.cfg.ConnectTimeout, DefaultConnectTimeout)
	assert.Equal(t, r.cfg.ReadTimeout, DefaultReadTimeout)
	assert.Equal(t, r.cfg.Step, DefaultStep)
}

func TestNewImposesCamelCaseConvention(t *testing.T) {
	r, _ := newTestRegistry(t, testConfig())

	assert.Equal(t, r.NamingConvention(), metric.CamelCase)
}

func TestEndpointURL(t *testing.T) {
	r, _ := newTestRegistry(t, Config{AccountID: "12345", APIKey: "secret-key"})

	url, err := r.endpointURL()
	assert.NilError(t, err)
	assert.Equal(t, url, "https://insights-collector.newrelic.com/v1/accounts/12345/events")
}

func TestEndpointURLMalformed(t *testing.T) {
	for _, uri := range []string{"://nope", "insights.example.com", "http://"} {
		cfg := testConfig()
		cfg.URI = uri
		pub := &countingPublisher{}
		r, _ := newTestRegistry(t, cfg, WithPublisher(pub))

		err := r.Publish(context.Background())

		assert.Assert(t, err != nil, "uri %q should not publish", uri)
		assert.Equal(t, len(pub.batchSizes()), 0)
	}
}

func TestPublishSplitsLargeCycles(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 1500
	pub := &countingPublisher{}
	r, _ := newTestRegistry(t, cfg, WithPublisher(pub))

	r.RegisterMeter("bulk.readings", func() []metric.Measurement {
		out := make([]metric.Measurement, 1800)
		for i := range out {
			out[i] = metric.Measurement{Statistic: metric.StatisticValue, Value: float64(i)}
		}
		return out
	})

	assert.NilError(t, r.Publish(context.Background()))
	assert.DeepEqual(t, pub.batchSizes(), []int{1000, 800})
}

func TestPublishSkipsEmptyRegistry(t *testing.T) {
	pub := &countingPublisher{}
	r, _ := newTestRegistry(t, testConfig(), WithPublisher(pub))

	assert.NilError(t, r.Publish(context.Background()))
	assert.Equal(t, len(pub.batchSizes()), 0)
}

func TestPublishContinuesAfterFailedBatch(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 1000
	pub := &countingPublisher{fail: map[int]error{1: &APIError{StatusCode: 503}}}
	r, _ := newTestRegistry(t, cfg, WithPublisher(pub))

	r.RegisterMeter("bulk.readings", func() []metric.Measurement {
		return make([]metric.Measurement, 1200)
	})

	assert.NilError(t, r.Publish(context.Background()))
	assert.DeepEqual(t, pub.batchSizes(), []int{1000, 200})
}

func TestPublishRecoversPanics(t *testing.T) {
	pub := &countingPublisher{}
	r, hook := newTestRegistry(t, testConfig(), WithPublisher(pub))

	r.RegisterMeter("broken.meter", func() []metric.Measurement {
		panic("snapshot backing store gone")
	})

	assert.NilError(t, r.Publish(context.Background()))
	assert.Equal(t, len(pub.batchSizes()), 0)

	entry := hook.LastEntry()
	assert.Assert(t, entry != nil)
	assert.Equal(t, entry.Level, log.WarnLevel)
	assert.Assert(t, strings.Contains(entry.Message, "snapshot backing store gone"))
}

// blockingPublisher parks its first call until released so tests can hold
// a cycle open.
type blockingPublisher struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (p *blockingPublisher) Publish(context.Context, string, []Event) error {
	if p.calls.Add(1) == 1 {
		close(p.started)
	}
	<-p.release
	return nil
}

func TestPublishSkipsOverlappingCycle(t *testing.T) {
	pub := &blockingPublisher{started: make(chan struct{}), release: make(chan struct{})}
	r, _ := newTestRegistry(t, testConfig(), WithPublisher(pub))
	r.Counter("load.test").Increment()

	done := make(chan error, 1)
	go func() { done <- r.Publish(context.Background()) }()
	<-pub.started

	// second cycle while the first is parked inside the publisher
	assert.NilError(t, r.Publish(context.Background()))
	assert.Equal(t, pub.calls.Load(), int32(1))

	close(pub.release)
	assert.NilError(t, <-done)
}

func TestPublishEndToEnd(t *testing.T) {
	type request struct {
		path string
		key  string
		body []byte
	}
	var (
		mu       sync.Mutex
		requests []request
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, request{path: r.URL.Path, key: r.Header.Get("X-Insert-Key"), body: body})
		mu.Unlock()
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.URI = server.URL
	r, _ := newTestRegistry(t, cfg, WithExtraTags(metric.Tags("cluster", "east-1")...))

	r.Counter("load.test.iterations", metric.Tags("worker", "0")...).Add(3)
	r.Timer("http.server.requests").Record(2 * time.Second)

	assert.NilError(t, r.Publish(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, len(requests), 1)
	assert.Equal(t, requests[0].path, "/v1/accounts/12345/events")
	assert.Equal(t, requests[0].key, "secret-key")

	var p fastjson.Parser
	v, err := p.ParseBytes(requests[0].body)
	assert.NilError(t, err)
	arr, err := v.Array()
	assert.NilError(t, err)
	// one counter record plus four timer records
	assert.Equal(t, len(arr), 5)
	assert.Equal(t, string(arr[0].GetStringBytes("eventType")), "loadTestIterations")
	assert.Equal(t, string(arr[0].GetStringBytes("statistic")), "count")
	assert.Equal(t, arr[0].GetFloat64("value"), 3.0)
	assert.Equal(t, string(arr[0].GetStringBytes("worker")), "0")
	assert.Equal(t, string(arr[0].GetStringBytes("cluster")), "east-1")
	assert.Equal(t, string(arr[1].GetStringBytes("eventType")), "httpServerRequests")
	assert.Equal(t, arr[2].GetFloat64("value"), 2.0)
}

func TestStartExportsOnInterval(t *testing.T) {
	var served atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		served.Add(1)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.URI = server.URL
	cfg.Step = 20 * time.Millisecond
	r, _ := newTestRegistry(t, cfg)
	r.Counter("load.test").Increment()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if served.Load() >= 2 {
			return poll.Success()
		}
		return poll.Continue("waiting for scheduled cycles, got %d", served.Load())
	}, poll.WithTimeout(5*time.Second), poll.WithDelay(5*time.Millisecond))

	beforeClose := served.Load()
	assert.NilError(t, r.Close())
	assert.Assert(t, served.Load() >= beforeClose+1, "close should flush one final cycle")
}

func TestStartStopsOnMalformedURI(t *testing.T) {
	cfg := testConfig()
	cfg.URI = "://nope"
	cfg.Step = 10 * time.Millisecond
	r, hook := newTestRegistry(t, cfg, WithPublisher(&countingPublisher{}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	poll.WaitOn(t, func(poll.LogT) poll.Result {
		select {
		case <-r.doneCh:
			return poll.Success()
		default:
			return poll.Continue("export loop still running")
		}
	}, poll.WithTimeout(5*time.Second), poll.WithDelay(5*time.Millisecond))

	assert.Assert(t, hook.LastEntry() != nil)
}

func TestCloseWithoutStartStillFlushes(t *testing.T) {
	pub := &countingPublisher{}
	r, _ := newTestRegistry(t, testConfig(), WithPublisher(pub))
	r.Counter("load.test").Increment()

	assert.NilError(t, r.Close())
	assert.DeepEqual(t, pub.batchSizes(), []int{1})
}

func TestStartTwiceIsNoOp(t *testing.T) {
	pub := &countingPublisher{}
	cfg := testConfig()
	cfg.Step = time.Hour
	r, _ := newTestRegistry(t, cfg, WithPublisher(pub))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	r.Start(ctx)

	assert.NilError(t, r.Close())
}

func TestWithMetricRegistryCarriesOptions(t *testing.T) {
	clock := metric.NewManualClock(time.Unix(1700000000, 0))
	base := metric.NewRegistry(metric.WithClock(clock))
	r, _ := newTestRegistry(t, testConfig(), WithMetricRegistry(base))

	timer := r.Timer("job.duration")
	timer.Time(func() { clock.Advance(time.Second) })

	assert.Equal(t, timer.Count(), int64(1))
	assert.Equal(t, r.NamingConvention(), metric.CamelCase)
}
