package metrics

import (
	"sort"
	"sync"
	"time"
)

// latencyWindow bounds how many recent samples feed percentile calculations.
const latencyWindow = 1000

// hourlyBuckets bounds how many hourly buckets a snapshot reports.
const hourlyBuckets = 24

type (
	// Collector implements Sink with an in-memory aggregate and exposes a
	// read-only Snapshot for the metrics endpoint. All state is guarded by a
	// single mutex; samples are cheap to fold so contention stays low.
	Collector struct {
		mu sync.Mutex

		startTime    time.Time
		total        int64
		successful   int64
		failed       int64
		cacheHits    int64
		cacheMisses  int64
		totalLatency time.Duration

		byIntent map[string]int64
		byTenant map[string]int64
		byError  map[string]int64
		hourly   map[string]int64

		// latencies is a bounded trailing window for percentiles.
		latencies []time.Duration

		now func() time.Time
	}

	// Snapshot is the JSON shape served by the metrics endpoint.
	Snapshot struct {
		Summary       Summary       `json:"summary"`
		ResponseTimes ResponseTimes `json:"response_times"`
		Breakdown     Breakdown     `json:"breakdown"`
	}

	// Summary aggregates request counts and rates.
	Summary struct {
		TotalRequests       int64   `json:"total_requests"`
		SuccessfulRequests  int64   `json:"successful_requests"`
		FailedRequests      int64   `json:"failed_requests"`
		SuccessRatePercent  float64 `json:"success_rate_percent"`
		CacheHitRatePercent float64 `json:"cache_hit_rate_percent"`
		UptimeSince         string  `json:"uptime_since"`
	}

	// ResponseTimes reports latency aggregates in milliseconds.
	ResponseTimes struct {
		AverageMs float64 `json:"average_ms"`
		P50Ms     float64 `json:"p50_ms"`
		P95Ms     float64 `json:"p95_ms"`
		P99Ms     float64 `json:"p99_ms"`
	}

	// Breakdown partitions request counts along the recorded dimensions.
	Breakdown struct {
		ByIntent    map[string]int64 `json:"by_intent"`
		ByTenant    map[string]int64 `json:"by_tenant"`
		ByErrorKind map[string]int64 `json:"by_error_kind"`
		Hourly      map[string]int64 `json:"hourly"`
	}
)

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return newCollector(time.Now)
}

func newCollector(now func() time.Time) *Collector {
	return &Collector{
		startTime: now().UTC(),
		byIntent:  make(map[string]int64),
		byTenant:  make(map[string]int64),
		byError:   make(map[string]int64),
		hourly:    make(map[string]int64),
		now:       now,
	}
}

// Record implements Sink.
func (c *Collector) Record(sample Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	c.totalLatency += sample.Latency
	if sample.Tenant != "" {
		c.byTenant[sample.Tenant]++
	}
	c.hourly[c.now().UTC().Format("2006-01-02 15:00")]++

	if sample.Success {
		c.successful++
	} else {
		c.failed++
		if sample.ErrorKind != "" {
			c.byError[sample.ErrorKind]++
		}
	}
	if sample.Intent != "" {
		c.byIntent[sample.Intent]++
	}
	if sample.CacheHit {
		c.cacheHits++
	} else {
		c.cacheMisses++
	}

	c.latencies = append(c.latencies, sample.Latency)
	if len(c.latencies) > latencyWindow {
		c.latencies = c.latencies[len(c.latencies)-latencyWindow:]
	}
}

// Snapshot returns a point-in-time copy of the aggregates. Percentiles are
// computed with the nearest-rank method over a sorted copy of the trailing
// latency window.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	var avg, p50, p95, p99 float64
	if c.total > 0 {
		avg = float64(c.totalLatency.Milliseconds()) / float64(c.total)
	}
	if n := len(c.latencies); n > 0 {
		sorted := make([]time.Duration, n)
		copy(sorted, c.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		p50 = float64(sorted[nearestRank(n, 0.50)].Milliseconds())
		p95 = float64(sorted[nearestRank(n, 0.95)].Milliseconds())
		p99 = float64(sorted[nearestRank(n, 0.99)].Milliseconds())
	}

	var successRate, hitRate float64
	if c.total > 0 {
		successRate = 100 * float64(c.successful) / float64(c.total)
	}
	if lookups := c.cacheHits + c.cacheMisses; lookups > 0 {
		hitRate = 100 * float64(c.cacheHits) / float64(lookups)
	}

	return Snapshot{
		Summary: Summary{
			TotalRequests:       c.total,
			SuccessfulRequests:  c.successful,
			FailedRequests:      c.failed,
			SuccessRatePercent:  round2(successRate),
			CacheHitRatePercent: round2(hitRate),
			UptimeSince:         c.startTime.Format(time.RFC3339),
		},
		ResponseTimes: ResponseTimes{
			AverageMs: round2(avg),
			P50Ms:     p50,
			P95Ms:     p95,
			P99Ms:     p99,
		},
		Breakdown: Breakdown{
			ByIntent:    copyCounts(c.byIntent),
			ByTenant:    copyCounts(c.byTenant),
			ByErrorKind: copyCounts(c.byError),
			Hourly:      lastHours(c.hourly, hourlyBuckets),
		},
	}
}

func nearestRank(n int, q float64) int {
	idx := int(float64(n) * q)
	if idx >= n {
		idx = n - 1
	}
	return idx
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// lastHours keeps only the most recent n hour buckets; keys sort
// chronologically because of their fixed layout.
func lastHours(m map[string]int64, n int) map[string]int64 {
	if len(m) <= n {
		return copyCounts(m)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]int64, n)
	for _, k := range keys[len(keys)-n:] {
		out[k] = m[k]
	}
	return out
}
