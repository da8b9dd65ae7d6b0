package newrelic

import (
	"testing"

	"gotest.tools/v3/assert"
)

func makeEvents(n int) []Event {
	events := make([]Event, n)
	for i := range events {
		events[i] = Event{EventType: "loadTest", Statistic: "count", Value: float64(i)}
	}
	return events
}

func TestBatcherSplitsGreedily(t *testing.T) {
	batches := batchEvents(makeEvents(1800), 1500)

	// 1500 is above the API cap, so the effective window is 1000
	assert.Equal(t, len(batches), 2)
	assert.Equal(t, len(batches[0]), 1000)
	assert.Equal(t, len(batches[1]), 800)
}

func TestBatcherExactMultiple(t *testing.T) {
	batches := batchEvents(makeEvents(2000), 1000)

	assert.Equal(t, len(batches), 2)
	assert.Equal(t, len(batches[0]), 1000)
	assert.Equal(t, len(batches[1]), 1000)
}

func TestBatcherSingleWindow(t *testing.T) {
	batches := batchEvents(makeEvents(999), 1000)

	assert.Equal(t, len(batches), 1)
	assert.Equal(t, len(batches[0]), 999)
}

func TestBatcherInputEqualToLimit(t *testing.T) {
	batches := batchEvents(makeEvents(250), 250)

	assert.Equal(t, len(batches), 1)
	assert.Equal(t, len(batches[0]), 250)
}

func TestBatcherEmptyInput(t *testing.T) {
	assert.Equal(t, len(batchEvents(nil, 1000)), 0)
	assert.Equal(t, len(batchEvents([]Event{}, 1000)), 0)
}

func TestBatcherZeroLimitFallsBackToCap(t *testing.T) {
	batches := batchEvents(makeEvents(1500), 0)

	assert.Equal(t, len(batches), 2)
	assert.Equal(t, len(batches[0]), 1000)
	assert.Equal(t, len(batches[1]), 500)
}

func TestBatcherPreservesOrder(t *testing.T) {
	events := makeEvents(2500)

	batches := batchEvents(events, 999)

	var flat []Event
	for _, b := range batches {
		assert.Assert(t, len(b) <= 999)
		flat = append(flat, b...)
	}
	assert.Equal(t, len(flat), len(events))
	for i := range flat {
		assert.Equal(t, flat[i].Value, float64(i))
	}
}

func TestBatcherCount(t *testing.T) {
	cases := []struct {
		events  int
		limit   int
		batches int
	}{
		{0, 1000, 0},
		{1, 1000, 1},
		{1000, 1000, 1},
		{1001, 1000, 2},
		{3000, 700, 5},
	}
	for _, tc := range cases {
		assert.Equal(t, len(batchEvents(makeEvents(tc.events), tc.limit)), tc.batches)
	}
}
