// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the field size steps.
//
// The package is intentionally minimal:
//
//   - It exposes a narrow interface (Backend) focused on counters and timing
//     data (histograms).
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no real
//     backend is configured.
//   - Concrete metric systems (Prometheus Pushgateway, Datadog) live in
//     subpackages so the steps never import them.
package metrics

import "time"

// Metric names shared by all backends.
const (
	StepTotal      = "fieldsize_step_total"
	StepDuration   = "fieldsize_step_duration_seconds"
	RowsTotal      = "fieldsize_rows_total"
	CatalogLookups = "fieldsize_catalog_lookups_total"
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

// SetBackend installs a concrete backend. Passing nil keeps the existing
// backend. Call it before any step starts.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep measures latency + success/failure of one phase of a step
// ("resolve", "stream").
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow increments a row-level counter for the given job and kind.
//
// Kinds used by the steps:
//   - "read"
//   - "passed"
//   - "routed"    (check mode, sent to the error stream)
//   - "truncated" (resize mode, at least one field cut)
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordCatalogLookups records metadata cache hits and misses of one run.
func RecordCatalogLookups(job string, hits, misses int64) {
	if hits > 0 {
		backend.IncCounter(CatalogLookups, float64(hits), Labels{"job": job, "result": "hit"})
	}
	if misses > 0 {
		backend.IncCounter(CatalogLookups, float64(misses), Labels{"job": job, "result": "miss"})
	}
}
