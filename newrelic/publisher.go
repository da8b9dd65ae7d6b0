package newrelic

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Publisher delivers one encoded batch to its destination. Every call is
// an independent attempt: a failed batch is logged and dropped, never
// retried, and must not stop the caller from sending the batches after it.
type Publisher interface {
	Publish(ctx context.Context, url string, events []Event) error
}

// APIError is a failure reported by the endpoint itself: the POST went
// through and came back with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("newrelic: insights api: http %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("newrelic: insights api: http %d", e.StatusCode)
}

// error bodies are diagnostic text only; cap what gets pulled into logs.
const maxErrorBodyBytes = 16 << 10

// httpPublisher POSTs batches to the events API. Keep-alives are off so
// every batch rides a fresh connection that is torn down when the
// response has been read.
type httpPublisher struct {
	httpClient *http.Client
	apiKey     string
	log        log.FieldLogger
}

func newHTTPPublisher(cfg Config, logger log.FieldLogger) *httpPublisher {
	httpTransport := &http.Transport{
		DisableKeepAlives: true,
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
	}

	httpClient := &http.Client{
		Timeout:   cfg.ConnectTimeout + cfg.ReadTimeout,
		Transport: httpTransport,
	}

	return &httpPublisher{httpClient: httpClient, apiKey: cfg.APIKey, log: logger}
}

func (p *httpPublisher) Publish(ctx context.Context, url string, events []Event) error {
	body := encodeBody(events)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		p.log.Warnf("failed to send metrics to new relic: %v", err)
		return fmt.Errorf("newrelic: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Insert-Key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.log.Warnf("failed to send metrics to new relic: %v", err)
		return fmt.Errorf("newrelic: post events: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		p.log.Infof("successfully sent %d events to new relic", len(events))
		return nil
	case resp.StatusCode >= 400:
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(diag))}
		p.log.Errorf("failed to send metrics to new relic: %s", apiErr.Body)
		return apiErr
	default:
		p.log.Errorf("failed to send metrics to new relic: http %d", resp.StatusCode)
		return &APIError{StatusCode: resp.StatusCode}
	}
}

// LogPublisher renders batches to the log instead of the network. It backs
// dry runs of the load tool and is handy when bringing up new meters.
type LogPublisher struct {
	// Log defaults to the standard logger when nil.
	Log log.FieldLogger
}

func (p *LogPublisher) Publish(_ context.Context, url string, events []Event) error {
	logger := p.Log
	if logger == nil {
		logger = log.StandardLogger()
	}
	logger.Infof("dry run: %d events for %s: %s", len(events), url, encodeBody(events))
	return nil
}
