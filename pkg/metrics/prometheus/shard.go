// Package prometheus holds the Prometheus-backed implementations of the
// interfaces declared in pkg/metrics.
package prometheus

import (
	"time"

	"github.com/ternfs/shard/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// shardMetrics is the Prometheus implementation of metrics.ShardMetrics.
type shardMetrics struct {
	applyTotal       *prometheus.CounterVec
	applyDuration    *prometheus.HistogramVec
	lastAppliedIndex prometheus.Gauge
}

// NewShardMetrics creates a new Prometheus-backed ShardMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry
// not called).
func NewShardMetrics() metrics.ShardMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopShardMetrics()
	}

	reg := metrics.GetRegistry()

	durationBuckets := []float64{
		0.0001, // 100µs
		0.0005, // 500µs
		0.001,  // 1ms
		0.005,  // 5ms
		0.01,   // 10ms
		0.025,  // 25ms
		0.05,   // 50ms
		0.1,    // 100ms
		0.25,   // 250ms
		0.5,    // 500ms
		1.0,    // 1s
	}

	return &shardMetrics{
		applyTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ternshard_apply_entries_total",
				Help: "Total number of applied log entries by kind and status",
			},
			[]string{"kind", "status"},
		),
		applyDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ternshard_apply_duration_seconds",
				Help:    "Duration of apply-path calls in seconds",
				Buckets: durationBuckets,
			},
			[]string{"kind"},
		),
		lastAppliedIndex: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "ternshard_last_applied_log_index",
				Help: "Index of the last log entry applied to the store",
			},
		),
	}
}

func (m *shardMetrics) RecordApply(kind string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.applyTotal.WithLabelValues(kind, status).Inc()
	m.applyDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (m *shardMetrics) SetLastAppliedLogIndex(index uint64) {
	m.lastAppliedIndex.Set(float64(index))
}
