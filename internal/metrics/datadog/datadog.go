// Package datadog implements a DogStatsD backend for the metrics package.
//
// qtool's metric names follow Prometheus conventions. They are rewritten to
// DogStatsD style: the "qtool_" prefix becomes the namespace ("qtool." by
// default), counters drop their "_total" suffix and "_seconds" histograms
// are sent as millisecond timings. Labels become "key:value" tags.
package datadog

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"

	"qtool/internal/metrics"
)

// DefaultNamespace prefixes every metric when Config.Namespace is empty.
const DefaultNamespace = "qtool."

const (
	promPrefix     = "qtool_"
	counterSuffix  = "_total"
	durationSuffix = "_seconds"
)

// Config holds Datadog backend configuration.
type Config struct {
	// Addr is the DogStatsD address, e.g. "127.0.0.1:8125" or "unix:///path/to/socket".
	Addr string

	// Namespace replaces DefaultNamespace, e.g. "bench.qtool.".
	Namespace string

	// GlobalTags are applied to every metric, e.g. []string{"env:bench"}.
	GlobalTags []string
}

// Backend is a Datadog implementation of metrics.Backend.
type Backend struct {
	client *statsd.Client
}

// NewBackend constructs a Datadog metrics backend. Addr is required.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("datadog: Addr is required")
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}

	opts := []statsd.Option{statsd.WithNamespace(ns)}
	if len(cfg.GlobalTags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.GlobalTags))
	}
	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: create client: %w", err)
	}
	return &Backend{client: c}, nil
}

// IncCounter sends a Count. Fractional deltas are truncated.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Count(metricName(name), int64(delta), labelsToTags(labels), 1)
}

// ObserveHistogram sends a Timing for "_seconds" metrics and a Histogram
// sample for anything else.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	tags := labelsToTags(labels)
	if strings.HasSuffix(name, durationSuffix) {
		d := time.Duration(value * float64(time.Second))
		_ = b.client.Timing(metricName(name), d, tags, 1)
		return
	}
	_ = b.client.Histogram(metricName(name), value, tags, 1)
}

// Flush closes the client, which flushes anything still buffered. It is
// called once, when the run ends.
func (b *Backend) Flush() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

// metricName maps "qtool_queries_total" to "queries" and
// "qtool_query_duration_seconds" to "query_duration".
func metricName(name string) string {
	name = strings.TrimPrefix(name, promPrefix)
	name = strings.TrimSuffix(name, counterSuffix)
	return strings.TrimSuffix(name, durationSuffix)
}

// labelsToTags converts labels into sorted "key:value" tags.
func labelsToTags(lbls metrics.Labels) []string {
	if len(lbls) == 0 {
		return nil
	}
	out := make([]string, 0, len(lbls))
	for k, v := range lbls {
		out = append(out, k+":"+v)
	}
	sort.Strings(out)
	return out
}
