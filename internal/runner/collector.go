package runner

import (
	"sort"
	"sync"
	"time"
)

// Collector gathers invocation latencies and outcomes from all workers.
type Collector struct {
	mu        sync.Mutex
	durations []time.Duration
	failures  int
	errors    map[string]int
}

func NewCollector() *Collector {
	return &Collector{
		durations: make([]time.Duration, 0, 1024),
		errors:    make(map[string]int),
	}
}

// Record adds one invocation. outcome is empty for a success and an error
// label otherwise.
func (c *Collector) Record(d time.Duration, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.durations = append(c.durations, d)
	if outcome != "" {
		c.failures++
		c.errors[outcome]++
	}
}

// Reset clears everything recorded so far.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.durations = c.durations[:0]
	c.failures = 0
	c.errors = make(map[string]int)
}

// Count returns the number of recorded invocations.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.durations)
}

// Summary is the latency distribution of a set of invocations.
type Summary struct {
	Total     int            `json:"total"`
	Successes int            `json:"successes"`
	Failures  int            `json:"failures"`
	Min       time.Duration  `json:"min"`
	Max       time.Duration  `json:"max"`
	Avg       time.Duration  `json:"avg"`
	P50       time.Duration  `json:"p50"`
	P95       time.Duration  `json:"p95"`
	P99       time.Duration  `json:"p99"`
	Errors    map[string]int `json:"errors,omitempty"`
}

// Summary returns the aggregated latencies. Failed invocations count towards
// the distribution as well.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	durations := make([]time.Duration, len(c.durations))
	copy(durations, c.durations)
	s := Summary{
		Total:    len(durations),
		Failures: c.failures,
	}
	if len(c.errors) > 0 {
		s.Errors = make(map[string]int, len(c.errors))
		for k, v := range c.errors {
			s.Errors[k] = v
		}
	}
	c.mu.Unlock()

	s.Successes = s.Total - s.Failures
	if len(durations) == 0 {
		return s
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	var total time.Duration
	for _, d := range durations {
		total += d
	}
	s.Min = durations[0]
	s.Max = durations[len(durations)-1]
	s.Avg = total / time.Duration(len(durations))
	s.P50 = percentile(durations, 50)
	s.P95 = percentile(durations, 95)
	s.P99 = percentile(durations, 99)
	return s
}

// percentile returns the p-th percentile of sorted durations, p in [0, 100].
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p / 100.0)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
