// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"

	"github.com/raphaelgruber/vecsync-go/internal/provider"
	vsync "github.com/raphaelgruber/vecsync-go/internal/sync"
)

// RequestMetrics holds aggregated metrics for one request purpose.
type RequestMetrics struct {
	Count        int64
	Failures     int64
	TotalRetries int64
	TotalTime    time.Duration
	MinTime      time.Duration
	MaxTime      time.Duration
}

// RequestSnapshot provides computed stats from raw metrics.
type RequestSnapshot struct {
	Count        int64   `json:"count"`
	Failures     int64   `json:"failures"`
	TotalRetries int64   `json:"total_retries"`
	TotalTimeMs  int64   `json:"total_time_ms"`
	AvgTimeMs    float64 `json:"avg_time_ms"`
	MinTimeMs    int64   `json:"min_time_ms"`
	MaxTimeMs    int64   `json:"max_time_ms"`
}

// Snapshot represents the full process statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64                    `json:"uptime_seconds"`
	Requests      map[string]RequestSnapshot `json:"requests,omitempty"`
	ItemsSynced   int64                      `json:"items_synced"`
	ItemsSkipped  int64                      `json:"items_skipped"`
	ItemsFailed   int64                      `json:"items_failed"`
}

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	requests  map[string]*RequestMetrics

	itemsSynced  int64
	itemsSkipped int64
	itemsFailed  int64
}

var (
	_ provider.Metrics  = (*Collector)(nil)
	_ vsync.ItemMetrics = (*Collector)(nil)
)

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		requests:  make(map[string]*RequestMetrics),
	}
}

// RecordRequest records one logical provider request, retries included.
func (c *Collector) RecordRequest(purpose string, elapsed time.Duration, retries int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.requests[purpose]
	if !ok {
		m = &RequestMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.requests[purpose] = m
	}

	m.Count++
	m.TotalRetries += int64(retries)
	m.TotalTime += elapsed
	if err != nil {
		m.Failures++
	}
	if elapsed < m.MinTime {
		m.MinTime = elapsed
	}
	if elapsed > m.MaxTime {
		m.MaxTime = elapsed
	}
}

// RecordItem tallies one item outcome.
func (c *Collector) RecordItem(synced, skipped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case skipped:
		c.itemsSkipped++
	case synced:
		c.itemsSynced++
	default:
		c.itemsFailed++
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		ItemsSynced:   c.itemsSynced,
		ItemsSkipped:  c.itemsSkipped,
		ItemsFailed:   c.itemsFailed,
	}
	if len(c.requests) > 0 {
		snap.Requests = make(map[string]RequestSnapshot, len(c.requests))
		for purpose, m := range c.requests {
			snap.Requests[purpose] = RequestSnapshot{
				Count:        m.Count,
				Failures:     m.Failures,
				TotalRetries: m.TotalRetries,
				TotalTimeMs:  m.TotalTime.Milliseconds(),
				AvgTimeMs:    float64(m.TotalTime.Milliseconds()) / float64(m.Count),
				MinTimeMs:    m.MinTime.Milliseconds(),
				MaxTimeMs:    m.MaxTime.Milliseconds(),
			}
		}
	}
	return snap
}
