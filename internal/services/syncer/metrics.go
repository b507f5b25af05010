package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the sync service's prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	attempts   *prometheus.CounterVec
	pulls      *prometheus.CounterVec
	pushed     prometheus.Counter
	imported   prometheus.Counter
	queueDepth prometheus.Gauge
}

// NewMetrics registers the sync collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "promptsync_sync_attempts_total",
			Help: "Push attempts by outcome.",
		}, []string{"outcome"}),
		pulls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "promptsync_sync_pulls_total",
			Help: "Pull attempts by outcome.",
		}, []string{"outcome"}),
		pushed: factory.NewCounter(prometheus.CounterOpts{
			Name: "promptsync_sync_records_pushed_total",
			Help: "Records confirmed by the cloud store.",
		}),
		imported: factory.NewCounter(prometheus.CounterOpts{
			Name: "promptsync_sync_records_imported_total",
			Help: "Remote records inserted locally.",
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "promptsync_sync_queue_depth",
			Help: "Records waiting in the in-memory queue.",
		}),
	}
}

func (m *Metrics) observeAttempt(r Result) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(string(r.Outcome)).Inc()
	if r.Outcome == OutcomeSynced {
		m.pushed.Add(float64(r.Pushed))
	}
}

func (m *Metrics) observePull(r PullResult) {
	if m == nil {
		return
	}
	m.pulls.WithLabelValues(string(r.Outcome)).Inc()
	m.imported.Add(float64(r.Imported))
}

func (m *Metrics) setQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
