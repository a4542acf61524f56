package main

import (
	"log/slog"

	"fieldsize/internal/config"
	"fieldsize/internal/metrics"
	"fieldsize/internal/metrics/datadog"
	"fieldsize/internal/metrics/prompush"
)

// setupMetrics installs the configured metrics backend and returns the
// function that flushes it at exit. An unusable backend leaves metrics off.
func setupMetrics(p config.Pipeline, log *slog.Logger) (flush func()) {
	var (
		b   metrics.Backend
		err error
	)
	switch p.Metrics.Backend {
	case "prometheus", "prom", "pushgateway":
		b, err = newPromBackend(p.Job, p.Metrics.PushgatewayURL)
	case "datadog", "dogstatsd":
		b, err = newDatadogBackend(datadog.Config{
			Addr:       p.Metrics.DatadogAddr,
			Namespace:  p.Metrics.Namespace,
			GlobalTags: p.Metrics.Tags,
		})
	case "", "none":
		log.Debug("metrics: disabled")
		return func() {}
	default:
		log.Warn("metrics: unknown backend; metrics disabled", "backend", p.Metrics.Backend)
		return func() {}
	}
	if err != nil {
		log.Warn("metrics: backend init failed; metrics disabled", "backend", p.Metrics.Backend, "err", err)
		return func() {}
	}

	log.Info("metrics: enabled", "backend", p.Metrics.Backend)
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush failed", "err", err)
		}
	}
}

func newPromBackend(job, url string) (metrics.Backend, error) {
	b, err := prompush.NewBackend(job, url)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func newDatadogBackend(cfg datadog.Config) (metrics.Backend, error) {
	b, err := datadog.NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	return b, nil
}
