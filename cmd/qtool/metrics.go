package main

import (
	"time"

	log "github.com/sirupsen/logrus"

	"qtool/internal/config"
	"qtool/internal/metrics"
	"qtool/internal/metrics/datadog"
	"qtool/internal/metrics/prompush"
)

// setupMetrics installs the configured backend and returns a function that
// records the run, flushes and restores the no-op backend. Flush errors are
// logged; they never change the run's result.
func setupMetrics(cfg config.Config) (func(err error, d time.Duration), error) {
	var (
		b   metrics.Backend
		err error
	)
	switch cfg.MetricsBackend {
	case config.MetricsPushgateway:
		b, err = prompush.NewBackend(cfg.Job, cfg.PushgatewayURL)
	case config.MetricsDatadog:
		b, err = datadog.NewBackend(datadog.Config{Addr: cfg.DatadogAddr})
	default:
		return func(error, time.Duration) {}, nil
	}
	if err != nil {
		return nil, config.NewError(config.Issue{
			Severity: config.SeverityError,
			Path:     config.KeyMetricsBackend,
			Message:  err.Error(),
		})
	}

	log.WithFields(log.Fields{"backend": cfg.MetricsBackend, "job": cfg.Job}).Debug("metrics: enabled")
	metrics.SetBackend(b)

	return func(runErr error, d time.Duration) {
		metrics.RecordRun(cfg.Job, runErr, d)
		if err := metrics.Flush(); err != nil {
			log.WithError(err).Warn("metrics: flush failed")
		}
		metrics.Reset()
	}, nil
}
