// loadgen drives synthetic meters into a New Relic account at a steady
// rate. It exists to light up dashboards and alert policies with
// realistic-looking series before any real service is wired up.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jpra1113/micrometer/generator"
	"github.com/jpra1113/micrometer/metric"
	"github.com/jpra1113/micrometer/newrelic"
)

var (
	// CLI flags
	configFile      string
	uri             string
	accountID       string
	apiKey          string
	logLevel        string
	dryRun          bool
	step            time.Duration
	tickInterval    time.Duration
	workersCount    int
	workersInterval time.Duration

	hostname  string
	stringPid string
)

func init() {
	var err error
	hostname, err = os.Hostname()
	if err != nil || len(hostname) == 0 {
		hostname = "local"
	}
	hostname = strings.ToLower(hostname)

	stringPid = strconv.Itoa(os.Getpid())

	flag.StringVar(&configFile, "config", "", "Path to a YAML config file. Flags override file values")
	flag.StringVar(&uri, "uri", "", "Base URI of the Insights collector (default: "+newrelic.DefaultURI+")")
	flag.StringVar(&accountID, "accountId", "", "New Relic account ID")
	flag.StringVar(&apiKey, "apiKey", "", "Insights insert key, sent as the X-Insert-Key header")
	flag.StringVar(&logLevel, "logLevel", "info", "Log level: \"trace\", \"debug\", \"info\", \"warn\", \"error\", \"fatal\", \"panic\"")
	flag.BoolVar(&dryRun, "dry-run", false, "Log batches instead of sending them")
	flag.DurationVar(&step, "step", 10*time.Second, "Time between exports, must be a > 0 Go Duration")
	flag.DurationVar(&tickInterval, "interval", 1*time.Second, "Record observations every X unit of time, must be a > 0 Go Duration")
	flag.IntVar(&workersCount, "workers", 2, "Number of parallel workers recording observations")
	flag.DurationVar(&workersInterval, "workersInterval", 250*time.Millisecond, "Wait time between starting workers")
}

func main() {
	flag.Parse()

	switch logLevel {
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	case "fatal":
		log.SetLevel(log.FatalLevel)
	case "panic":
		log.SetLevel(log.PanicLevel)
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		log.Fatal(err)
	}
	mergeFlags(cfg)

	registry, err := buildRegistry(cfg)
	if err != nil {
		log.Fatal(err)
	}

	printConfig(cfg)
	// Done parsing & validating configuration. Congrats!

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registerRuntimeMeters(registry.Registry)
	registry.Start(ctx)

	workersSpawnTicker := time.NewTicker(cfg.WorkersInterval.or(250 * time.Millisecond))
	defer workersSpawnTicker.Stop()

	spawned := 0
	for spawned < cfg.Workers && ctx.Err() == nil {
		select {
		case <-ctx.Done():
		case <-workersSpawnTicker.C:
			gens, err := buildGenerators(registry.Registry, spawned, cfg.Generators)
			if err != nil {
				log.Fatal(err)
			}
			if spawned == 0 {
				log.Infof("Each worker will drive %d series:", len(gens))
				for _, g := range gens {
					log.Infof("\t  - %s", g.Describe())
				}
			}
			go runWorker(ctx, gens, cfg.TickInterval.or(time.Second))
			log.Infof("Launched worker-%s-%d", stringPid, spawned)
			spawned++
		}
	}
	if spawned == cfg.Workers {
		log.Info("All workers launched")
	}

	<-ctx.Done()
	log.Info("Shutting down, flushing one final export")
	if err := registry.Close(); err != nil {
		log.Errorf("Final export failed: %s", err)
	}
}

// mergeFlags lays explicitly-set flags over the file config, and fills
// defaults for anything neither source provided.
func mergeFlags(cfg *fileConfig) {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if uri != "" {
		cfg.URI = uri
	}
	if accountID != "" {
		cfg.AccountID = accountID
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	if set["step"] || cfg.Step == 0 {
		cfg.Step = duration(step)
	}
	if set["interval"] || cfg.TickInterval == 0 {
		cfg.TickInterval = duration(tickInterval)
	}
	if set["workers"] || cfg.Workers == 0 {
		cfg.Workers = workersCount
	}
	if set["workersInterval"] || cfg.WorkersInterval == 0 {
		cfg.WorkersInterval = duration(workersInterval)
	}
	if len(cfg.Generators) == 0 {
		cfg.Generators = defaultGenerators()
	}
}

func buildRegistry(cfg *fileConfig) (*newrelic.Registry, error) {
	nrCfg := newrelic.Config{
		URI:            cfg.URI,
		AccountID:      cfg.AccountID,
		APIKey:         cfg.APIKey,
		BatchSize:      cfg.BatchSize,
		ConnectTimeout: time.Duration(cfg.ConnectTimeout),
		ReadTimeout:    time.Duration(cfg.ReadTimeout),
		Step:           time.Duration(cfg.Step),
	}

	base := metric.NewRegistry(
		metric.WithCommonTags(metric.Tags("node", hostname)...),
	)

	opts := []newrelic.Option{newrelic.WithMetricRegistry(base)}
	if dryRun {
		// a dry run never touches the network, so placeholder
		// credentials are good enough to satisfy validation
		if nrCfg.AccountID == "" {
			nrCfg.AccountID = "dry-run"
		}
		if nrCfg.APIKey == "" {
			nrCfg.APIKey = "dry-run"
		}
		opts = append(opts, newrelic.WithPublisher(&newrelic.LogPublisher{}))
	}
	if len(cfg.Tags) > 0 {
		keys := make([]string, 0, len(cfg.Tags))
		for k := range cfg.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		extra := make([]metric.Tag, 0, len(keys))
		for _, k := range keys {
			extra = append(extra, metric.Tag{Key: k, Value: cfg.Tags[k]})
		}
		opts = append(opts, newrelic.WithExtraTags(extra...))
	}

	return newrelic.New(nrCfg, opts...)
}

func buildGenerators(reg *metric.Registry, workerID int, configs []generatorConfig) ([]generator.Generator, error) {
	workerTags := metric.Tags("worker", strconv.Itoa(workerID))

	gens := make([]generator.Generator, 0, len(configs))
	for _, gc := range configs {
		seed := gc.Seed
		if seed != 0 {
			// keep runs reproducible but give each worker its own stream
			seed += uint64(workerID)
		}

		var (
			g   generator.Generator
			err error
		)
		switch gc.Kind {
		case "counter":
			g, err = generator.NewCounter(reg, generator.CounterConfig{
				Name:      gc.Name,
				Tags:      workerTags,
				Increment: gc.Increment,
				Jitter:    gc.Jitter,
				Seed:      seed,
			})
		case "gauge":
			g, err = generator.NewGauge(reg, generator.GaugeConfig{
				Name: gc.Name,
				Tags: workerTags,
				Min:  gc.Min,
				Max:  gc.Max,
				Seed: seed,
			})
		case "latency":
			g, err = generator.NewLatency(reg, generator.LatencyConfig{
				Name:            gc.Name,
				Tags:            workerTags,
				Min:             time.Duration(gc.MinLatency),
				Max:             time.Duration(gc.MaxLatency),
				Alpha:           gc.Alpha,
				Beta:            gc.Beta,
				RequestsPerTick: gc.RequestsPerTick,
				Seed:            seed,
			})
		case "payload":
			g, err = generator.NewPayload(reg, generator.PayloadConfig{
				Name:           gc.Name,
				Tags:           workerTags,
				Mu:             gc.Mu,
				Sigma:          gc.Sigma,
				RecordsPerTick: gc.RecordsPerTick,
				Seed:           seed,
			})
		default:
			return nil, fmt.Errorf("invalid generator kind '%s', expected counter, gauge, latency or payload", gc.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("generator %s: %w", gc.Name, err)
		}
		gens = append(gens, g)
	}
	return gens, nil
}

func runWorker(ctx context.Context, gens []generator.Generator, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, g := range gens {
				g.Tick()
			}
		}
	}
}

// registerRuntimeMeters exposes a few process-level meters so exports
// carry something real alongside the synthetic series.
func registerRuntimeMeters(reg *metric.Registry) {
	reg.Gauge("go.goroutines", func() float64 {
		return float64(runtime.NumGoroutine())
	})
	reg.Gauge("go.memory.heap.alloc", func() float64 {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		return float64(ms.HeapAlloc)
	})
	reg.FunctionTimer("go.gc.pause",
		func() float64 {
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			return float64(ms.NumGC)
		},
		func() float64 {
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			return float64(ms.PauseTotalNs)
		},
		time.Nanosecond)
}

func printConfig(cfg *fileConfig) {
	log.Infof("Launching loadgen on %s, PID %s", hostname, stringPid)
	log.Info("Configuration: ")
	if cfg.URI != "" {
		log.Infof("\tCollector: %s", cfg.URI)
	} else {
		log.Infof("\tCollector: %s", newrelic.DefaultURI)
	}
	log.Infof("\tAccount: %s", cfg.AccountID)
	if dryRun {
		log.Info("\tDRY-RUN: batches will be logged, not sent")
	} else {
		log.Infof("\tExport step: %s", cfg.Step.or(10*time.Second))
	}
	log.Infof("\tTick interval: %s", cfg.TickInterval.or(time.Second))
	log.Infof("\tWorkers: %d", cfg.Workers)
	log.Infof("\tWorkers start interval: %s", cfg.WorkersInterval.or(250*time.Millisecond))
}
