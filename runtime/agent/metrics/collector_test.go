package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()
	c.Record(Sample{Tenant: "shop-1", Success: true, Latency: 100 * time.Millisecond, Intent: "sales_analysis"})
	c.Record(Sample{Tenant: "shop-1", Success: true, Latency: 200 * time.Millisecond, Intent: "sales_analysis", CacheHit: true})
	c.Record(Sample{Tenant: "shop-2", Success: false, Latency: 50 * time.Millisecond, ErrorKind: "data_source"})

	snap := c.Snapshot()
	require.Equal(t, int64(3), snap.Summary.TotalRequests)
	require.Equal(t, int64(2), snap.Summary.SuccessfulRequests)
	require.Equal(t, int64(1), snap.Summary.FailedRequests)
	require.InDelta(t, 66.67, snap.Summary.SuccessRatePercent, 0.01)
	require.InDelta(t, 33.33, snap.Summary.CacheHitRatePercent, 0.01)

	require.Equal(t, int64(2), snap.Breakdown.ByIntent["sales_analysis"])
	require.Equal(t, int64(2), snap.Breakdown.ByTenant["shop-1"])
	require.Equal(t, int64(1), snap.Breakdown.ByErrorKind["data_source"])
	require.Len(t, snap.Breakdown.Hourly, 1)
}

func TestCollectorPercentiles(t *testing.T) {
	c := NewCollector()
	for i := 1; i <= 100; i++ {
		c.Record(Sample{Success: true, Latency: time.Duration(i) * time.Millisecond})
	}
	snap := c.Snapshot()
	require.Equal(t, float64(51), snap.ResponseTimes.P50Ms)
	require.Equal(t, float64(96), snap.ResponseTimes.P95Ms)
	require.Equal(t, float64(100), snap.ResponseTimes.P99Ms)
	require.InDelta(t, 50.5, snap.ResponseTimes.AverageMs, 0.01)
}

func TestCollectorLatencyWindowBounded(t *testing.T) {
	c := NewCollector()
	// Flood with slow samples, then a full window of fast ones: the old
	// samples must age out of the percentile window.
	for i := 0; i < 200; i++ {
		c.Record(Sample{Success: true, Latency: time.Second})
	}
	for i := 0; i < latencyWindow; i++ {
		c.Record(Sample{Success: true, Latency: time.Millisecond})
	}
	snap := c.Snapshot()
	require.Equal(t, float64(1), snap.ResponseTimes.P99Ms)
}

func TestCollectorConcurrentRecord(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 250; j++ {
				c.Record(Sample{Tenant: "shop", Success: true, Latency: time.Millisecond})
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(2000), c.Snapshot().Summary.TotalRequests)
}

func TestSnapshotIsACopy(t *testing.T) {
	c := NewCollector()
	c.Record(Sample{Tenant: "shop", Success: true})
	snap := c.Snapshot()
	snap.Breakdown.ByTenant["shop"] = 99
	require.Equal(t, int64(1), c.Snapshot().Breakdown.ByTenant["shop"])
}
