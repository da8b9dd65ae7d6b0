package metric

// DistributionSummary tracks the distribution of non-temporal amounts,
// payload sizes or queue depths for example.
type DistributionSummary struct {
	id   ID
	dist *distribution
}

func newSummary(id ID, percentiles []float64, windowSize int) *DistributionSummary {
	return &DistributionSummary{id: id, dist: newDistribution(percentiles, windowSize)}
}

func (s *DistributionSummary) ID() ID { return s.id }

// Record adds one observation. Negative or NaN amounts are dropped.
func (s *DistributionSummary) Record(amount float64) {
	s.dist.record(amount)
}

// Count returns how many amounts have been recorded.
func (s *DistributionSummary) Count() int64 { return s.dist.snapshot().Count }

// TotalAmount returns the sum of recorded amounts.
func (s *DistributionSummary) TotalAmount() float64 { return s.dist.snapshot().Total }

// Mean returns the average recorded amount, 0 when empty.
func (s *DistributionSummary) Mean() float64 { return s.dist.snapshot().Mean() }

// Max returns the largest recorded amount.
func (s *DistributionSummary) Max() float64 { return s.dist.snapshot().Max }

// TakeSnapshot reads count, total, max and any configured percentiles in
// one consistent pass.
func (s *DistributionSummary) TakeSnapshot() Snapshot { return s.dist.snapshot() }

func (s *DistributionSummary) Measure() []Measurement {
	snap := s.TakeSnapshot()
	return []Measurement{
		{Statistic: StatisticCount, Value: float64(snap.Count)},
		{Statistic: StatisticTotal, Value: snap.Total},
		{Statistic: StatisticMax, Value: snap.Max},
	}
}
