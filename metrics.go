package gymauth

import "sync/atomic"

// MetricID indexes one engine counter.
type MetricID uint8

const (
	// MetricInitialize counts Initialize calls.
	MetricInitialize MetricID = iota
	// MetricEventApplied counts provider push events applied to the store.
	MetricEventApplied
	// MetricClassifyAdmin counts classifications that resolved to admin.
	MetricClassifyAdmin
	// MetricClassifyNotAdmin counts classifications that resolved to not-admin.
	MetricClassifyNotAdmin
	// MetricClassifyFailClosed counts role-store failures degraded to not-admin.
	MetricClassifyFailClosed
	// MetricDeferredTasks counts deferred tasks accepted by the queue.
	MetricDeferredTasks
	// MetricRecoveryEntered counts transitions into the reset-password state.
	MetricRecoveryEntered
	// MetricCodeExchanges counts authorization-code exchange attempts.
	MetricCodeExchanges
	// MetricStaleResultsDropped counts async results discarded by the
	// liveness check.
	MetricStaleResultsDropped

	metricCount
)

var metricNames = [metricCount]string{
	MetricInitialize:          "initialize",
	MetricEventApplied:        "event_applied",
	MetricClassifyAdmin:       "classify_admin",
	MetricClassifyNotAdmin:    "classify_not_admin",
	MetricClassifyFailClosed:  "classify_fail_closed",
	MetricDeferredTasks:       "deferred_tasks",
	MetricRecoveryEntered:     "recovery_entered",
	MetricCodeExchanges:       "code_exchanges",
	MetricStaleResultsDropped: "stale_results_dropped",
}

// String implements fmt.Stringer.
func (id MetricID) String() string {
	if int(id) < len(metricNames) {
		return metricNames[id]
	}
	return "unknown"
}

// Metrics is a fixed-size atomic counter registry. A nil or disabled
// registry accepts increments and reports zeros.
type Metrics struct {
	enabled  bool
	counters [metricCount]atomic.Uint64
}

// NewMetrics returns a registry honoring cfg.Enabled.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// MetricsSnapshot is a point-in-time copy of all counters keyed by name.
type MetricsSnapshot map[string]uint64

// Snapshot copies every counter. Always non-nil.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := make(MetricsSnapshot, metricCount)
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricCount; id++ {
		snap[id.String()] = m.counters[id].Load()
	}
	return snap
}
