// Package metrics exposes prometheus collectors describing signal runs.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "crossover_runs_total", Help: "Signal runs by outcome"},
		[]string{"status"},
	)
	RowsProcessed = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "crossover_rows_processed", Help: "Rows read by the last successful run"},
	)
	SignalRate = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "crossover_signal_rate", Help: "Signal rate of the last successful run"},
	)
	RunLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crossover_run_latency_ms",
			Help:    "Wall time of a run in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
)

func init() {
	prometheus.MustRegister(RunsTotal, RowsProcessed, SignalRate, RunLatency)
}

// ObserveSuccess records a completed run.
func ObserveSuccess(rows int, rate float64, latencyMs int64) {
	RunsTotal.WithLabelValues("success").Inc()
	RowsProcessed.Set(float64(rows))
	SignalRate.Set(rate)
	RunLatency.Observe(float64(latencyMs))
}

// ObserveFailure records a failed run.
func ObserveFailure(latencyMs int64) {
	RunsTotal.WithLabelValues("error").Inc()
	RunLatency.Observe(float64(latencyMs))
}

// WriteTextfile dumps the default registry in the node-exporter textfile
// format. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
