package newrelic

// batchEvents partitions events into windows of at most limit records,
// preserving order. The limit is capped at MaxBatchSize whatever the
// configuration asked for; the final window holds the remainder. Empty
// input yields no batches at all.
func batchEvents(events []Event, limit int) [][]Event {
	if limit <= 0 || limit > MaxBatchSize {
		limit = MaxBatchSize
	}
	if len(events) == 0 {
		return nil
	}
	batches := make([][]Event, 0, (len(events)+limit-1)/limit)
	for start := 0; start < len(events); start += limit {
		end := start + limit
		if end > len(events) {
			end = len(events)
		}
		batches = append(batches, events[start:end:end])
	}
	return batches
}
