package batch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the executor's Prometheus instruments. A nil *Metrics is a
// valid no-op so tests and minimal hosts pay nothing.
type Metrics struct {
	recordsTotal  *prometheus.CounterVec
	batchDuration prometheus.Histogram
	callDuration  *prometheus.HistogramVec
}

// NewMetrics registers the executor metrics with reg.
// Pass prometheus.DefaultRegisterer for the usual global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		recordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "batchflow",
			Name:      "records_total",
			Help:      "Batch records processed, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "batchflow",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of whole batch invocations.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		callDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "batchflow",
			Name:      "call_duration_seconds",
			Help:      "Latency of individual completion calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"operation"}),
	}
}

func (m *Metrics) observeRecord(op Operation, outcome Status) {
	if m == nil {
		return
	}
	m.recordsTotal.WithLabelValues(string(op), string(outcome)).Inc()
}

func (m *Metrics) observeBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(d.Seconds())
}

func (m *Metrics) observeCall(op Operation, d time.Duration) {
	if m == nil {
		return
	}
	m.callDuration.WithLabelValues(string(op)).Observe(d.Seconds())
}
