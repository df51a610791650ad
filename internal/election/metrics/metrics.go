// Package metrics collects performance metrics for leader elections.
package metrics

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects election metrics. It satisfies the election core's
// MetricsCollector interface and is safe for concurrent use.
type Metrics struct {
	electionCount         atomic.Uint64
	notificationsSent     atomic.Uint64
	notificationsReceived atomic.Uint64

	mu                sync.Mutex
	electionDurations []time.Duration

	startTime time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		electionDurations: make([]time.Duration, 0, 100),
		startTime:         time.Now(),
	}
}

// RecordElection counts a started election round.
func (m *Metrics) RecordElection() {
	m.electionCount.Add(1)
}

// RecordElectionDuration records how long an election round took.
func (m *Metrics) RecordElectionDuration(duration time.Duration) {
	m.mu.Lock()
	m.electionDurations = append(m.electionDurations, duration)
	m.mu.Unlock()
}

// RecordNotificationSent counts a notification handed to the transport.
func (m *Metrics) RecordNotificationSent() {
	m.notificationsSent.Add(1)
}

// RecordNotificationReceived counts a successfully decoded inbound frame.
func (m *Metrics) RecordNotificationReceived() {
	m.notificationsReceived.Add(1)
}

// DurationStats contains percentile statistics for election durations.
type DurationStats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min_ms"`
	Max   float64 `json:"max_ms"`
	Mean  float64 `json:"mean_ms"`
	P50   float64 `json:"p50_ms"`
	P95   float64 `json:"p95_ms"`
}

// GetElectionStats computes percentile statistics over the recorded
// election durations.
func (m *Metrics) GetElectionStats() DurationStats {
	m.mu.Lock()
	durations := make([]time.Duration, len(m.electionDurations))
	copy(durations, m.electionDurations)
	m.mu.Unlock()

	if len(durations) == 0 {
		return DurationStats{}
	}

	sort.Slice(durations, func(i, j int) bool {
		return durations[i] < durations[j]
	})

	durationsMs := make([]float64, len(durations))
	var sum float64
	for i, d := range durations {
		ms := float64(d.Microseconds()) / 1000.0
		durationsMs[i] = ms
		sum += ms
	}

	return DurationStats{
		Count: len(durations),
		Min:   durationsMs[0],
		Max:   durationsMs[len(durationsMs)-1],
		Mean:  sum / float64(len(durationsMs)),
		P50:   percentile(durationsMs, 50),
		P95:   percentile(durationsMs, 95),
	}
}

// percentile calculates the nth percentile from sorted data using linear
// interpolation.
func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	index := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Report is a point-in-time snapshot of all collected metrics.
type Report struct {
	Uptime                float64       `json:"uptime_seconds"`
	ElectionCount         uint64        `json:"election_count"`
	NotificationsSent     uint64        `json:"notifications_sent"`
	NotificationsReceived uint64        `json:"notifications_received"`
	ElectionStats         DurationStats `json:"election_stats"`
}

// GetReport snapshots the collected metrics.
func (m *Metrics) GetReport() Report {
	return Report{
		Uptime:                time.Since(m.startTime).Seconds(),
		ElectionCount:         m.electionCount.Load(),
		NotificationsSent:     m.notificationsSent.Load(),
		NotificationsReceived: m.notificationsReceived.Load(),
		ElectionStats:         m.GetElectionStats(),
	}
}
