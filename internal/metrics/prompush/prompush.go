// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package. A batch run is short-lived, so metrics are pushed once at
// the end instead of being scraped.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"qtool/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	queryCounter  *prometheus.CounterVec   // qtool_queries_total
	queryDuration *prometheus.HistogramVec // qtool_query_duration_seconds
	runCounter    *prometheus.CounterVec   // qtool_runs_total
	runDuration   prometheus.Gauge         // qtool_run_duration_seconds
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName is the Pushgateway "job" grouping key; gatewayURL is the base URL.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "qtool"
	}

	reg := prometheus.NewRegistry()

	queryCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.QueriesTotal,
			Help: "Executed queries, partitioned by outcome (matched, empty, failed).",
		},
		[]string{"status"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    metrics.QueryDurationSeconds,
			Help:    "Single query latency in seconds, partitioned by outcome.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
		},
		[]string{"status"},
	)
	runCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RunsTotal,
			Help: "Completed runs, partitioned by status.",
		},
		[]string{"status"},
	)
	runDuration := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: metrics.RunDurationSeconds,
			Help: "Wall-clock duration of the last run in seconds.",
		},
	)

	for name, c := range map[string]prometheus.Collector{
		"query counter":  queryCounter,
		"query duration": queryDuration,
		"run counter":    runCounter,
		"run duration":   runDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		reg:           reg,
		queryCounter:  queryCounter,
		queryDuration: queryDuration,
		runCounter:    runCounter,
		runDuration:   runDuration,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.QueriesTotal:
		if b.queryCounter == nil {
			return
		}
		b.queryCounter.WithLabelValues(labels["status"]).Add(delta)

	case metrics.RunsTotal:
		if b.runCounter == nil {
			return
		}
		b.runCounter.WithLabelValues(labels["status"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	switch name {
	case metrics.QueryDurationSeconds:
		if b.queryDuration == nil {
			return
		}
		b.queryDuration.WithLabelValues(labels["status"]).Observe(value)

	case metrics.RunDurationSeconds:
		if b.runDuration == nil {
			return
		}
		b.runDuration.Set(value)
	}
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
