// Package newrelic exports meters to the New Relic Insights events API.
// Every meter in a registry is flattened into custom events and POSTed in
// batches to /v1/accounts/<accountID>/events, authenticated with an
// insert key.
//
// Event API reference:
//
//	https://docs.newrelic.com/docs/data-apis/ingest-apis/event-api/introduction-event-api/
package newrelic

import (
	"errors"
	"time"
)

// DefaultURI is the public Insights collector endpoint.
const DefaultURI = "https://insights-collector.newrelic.com"

// MaxBatchSize is the Insights API hard cap on events per call. It bounds
// the configured batch size no matter what the configuration says.
const MaxBatchSize = 1000

// Defaults applied by New for Config fields left at their zero value.
const (
	DefaultBatchSize      = 10000
	DefaultConnectTimeout = 1 * time.Second
	DefaultReadTimeout    = 10 * time.Second
	DefaultStep           = 1 * time.Minute
)

var (
	ErrMissingAccountID = errors.New("newrelic: accountId must be configured")
	ErrMissingAPIKey    = errors.New("newrelic: apiKey must be configured")
)

// Config carries everything the exporter needs to reach the events API.
// AccountID and APIKey are required; every other field has a default.
type Config struct {
	// URI is the base collector endpoint. The account-scoped events path
	// is appended to it.
	URI string

	// AccountID selects which New Relic account receives the events.
	AccountID string

	// APIKey is the Insights insert key, sent as the X-Insert-Key header.
	APIKey string

	// BatchSize caps how many events go into a single API call. The
	// effective cap is min(BatchSize, MaxBatchSize).
	BatchSize int

	// ConnectTimeout bounds dialing the collector.
	ConnectTimeout time.Duration

	// ReadTimeout bounds waiting for the collector's response.
	ReadTimeout time.Duration

	// Step is the interval between export cycles when Start is used.
	Step time.Duration
}

func (c Config) validate() error {
	var errs []error
	if c.AccountID == "" {
		errs = append(errs, ErrMissingAccountID)
	}
	if c.APIKey == "" {
		errs = append(errs, ErrMissingAPIKey)
	}
	return errors.Join(errs...)
}

func (c Config) withDefaults() Config {
	if c.URI == "" {
		c.URI = DefaultURI
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.Step <= 0 {
		c.Step = DefaultStep
	}
	return c
}
