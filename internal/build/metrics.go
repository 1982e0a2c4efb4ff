package build

import (
	"sync"
	"time"
)

// Metrics accumulates build outcomes across generations, for long-running
// callers such as the watcher. Register Record as a pipeline callback.
type Metrics struct {
	mu sync.RWMutex

	total      int64
	successful int64
	failed     int64
	written    int64
	unchanged  int64
	duration   time.Duration
	last       *Report
	lastErr    error
}

// MetricsSnapshot is a copy of Metrics at one point in time.
type MetricsSnapshot struct {
	TotalBuilds      int64
	SuccessfulBuilds int64
	FailedBuilds     int64
	FilesWritten     int64
	FilesUnchanged   int64
	AverageDuration  time.Duration
	LastError        error
}

// NewMetrics returns an empty tracker.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Record adds the outcome of one build. It has the Callback signature.
func (m *Metrics) Record(report *Report, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.lastErr = err
	if report != nil {
		m.duration += report.Duration
	}

	if err != nil {
		m.failed++

		return
	}

	m.successful++
	m.last = report
	m.written += int64(len(report.Written))
	m.unchanged += int64(report.Unchanged)
}

// Last returns the most recent successful report, or nil.
func (m *Metrics) Last() *Report {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.last
}

// Snapshot returns the current totals.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		TotalBuilds:      m.total,
		SuccessfulBuilds: m.successful,
		FailedBuilds:     m.failed,
		FilesWritten:     m.written,
		FilesUnchanged:   m.unchanged,
		LastError:        m.lastErr,
	}
	if m.total > 0 {
		snap.AverageDuration = m.duration / time.Duration(m.total)
	}

	return snap
}

// SuccessRate returns the share of successful builds as a percentage.
func (s MetricsSnapshot) SuccessRate() float64 {
	if s.TotalBuilds == 0 {
		return 0
	}

	return float64(s.SuccessfulBuilds) / float64(s.TotalBuilds) * 100
}
