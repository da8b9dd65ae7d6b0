package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// duration wraps time.Duration so YAML values like "250ms" parse.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = duration(parsed)
	return nil
}

func (d duration) or(fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return time.Duration(d)
}

// fileConfig mirrors the YAML config file. Flags set on the command line
// override whatever the file says.
type fileConfig struct {
	URI             string            `yaml:"uri"`
	AccountID       string            `yaml:"accountId"`
	APIKey          string            `yaml:"apiKey"`
	BatchSize       int               `yaml:"batchSize"`
	ConnectTimeout  duration          `yaml:"connectTimeout"`
	ReadTimeout     duration          `yaml:"readTimeout"`
	Step            duration          `yaml:"step"`
	Workers         int               `yaml:"workers"`
	WorkersInterval duration          `yaml:"workersInterval"`
	TickInterval    duration          `yaml:"tickInterval"`
	Tags            map[string]string `yaml:"tags"`
	Generators      []generatorConfig `yaml:"generators"`
}

// generatorConfig is one entry of the generators list. Kind selects the
// driver; the other fields apply to the kinds that use them.
type generatorConfig struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`

	// counter
	Increment float64 `yaml:"increment"`
	Jitter    float64 `yaml:"jitter"`

	// gauge (value range) and payload (log-space parameters)
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Mu    float64 `yaml:"mu"`
	Sigma float64 `yaml:"sigma"`

	// latency
	MinLatency      duration `yaml:"minLatency"`
	MaxLatency      duration `yaml:"maxLatency"`
	Alpha           float64  `yaml:"alpha"`
	Beta            float64  `yaml:"beta"`
	RequestsPerTick int      `yaml:"requestsPerTick"`

	// payload
	RecordsPerTick int `yaml:"recordsPerTick"`

	Seed uint64 `yaml:"seed"`
}

func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// defaultGenerators is the profile used when neither the file nor the
// flags configure any series.
func defaultGenerators() []generatorConfig {
	return []generatorConfig{
		{Kind: "latency", Name: "http.server.requests", RequestsPerTick: 2},
		{Kind: "counter", Name: "load.test.iterations", Increment: 1, Jitter: 0.5},
		{Kind: "gauge", Name: "load.test.level", Min: 0, Max: 100},
		{Kind: "payload", Name: "payload.size"},
	}
}
