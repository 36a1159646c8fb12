// Package metrics provides a small, backend-agnostic abstraction for recording
// per-query and per-run metrics.
//
// The global backend defaults to a no-op, so instrumentation is always safe to
// call. Concrete systems live in subpackages (prompush, datadog) and are
// installed with SetBackend.
package metrics

import "time"

// Metric names emitted by qtool.
const (
	QueriesTotal         = "qtool_queries_total"
	QueryDurationSeconds = "qtool_query_duration_seconds"
	RunsTotal            = "qtool_runs_total"
	RunDurationSeconds   = "qtool_run_duration_seconds"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
// It must be called before any worker starts.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Reset reinstalls the no-op backend.
func Reset() {
	backend = nopBackend{}
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordQuery counts one executed query and its latency. status is one of
// "matched", "empty" or "failed".
func RecordQuery(job, status string, d time.Duration) {
	lbls := Labels{
		"job":    job,
		"status": status,
	}
	backend.IncCounter(QueriesTotal, 1, lbls)
	backend.ObserveHistogram(QueryDurationSeconds, d.Seconds(), lbls)
}

// RecordRun records the outcome and wall-clock time of a whole run.
func RecordRun(job string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    job,
		"status": status,
	}
	backend.IncCounter(RunsTotal, 1, lbls)
	backend.ObserveHistogram(RunDurationSeconds, d.Seconds(), lbls)
}
