// Package metrics exposes Prometheus collectors for transpile runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rendis/flowscript/internal/transpile"
)

// Transpile outcomes used as the status label.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

var (
	Transpiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowscript_transpiles_total",
		Help: "Total number of transpile runs, labelled by outcome (ok, partial, failed).",
	}, []string{"status"})

	Diagnostics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowscript_diagnostics_total",
		Help: "Total number of recoverable diagnostics, labelled by severity.",
	}, []string{"severity"})

	TranspileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flowscript_transpile_duration_ms",
		Help:    "Transpile latency in milliseconds.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000},
	})

	ScheduledJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flowscript_scheduled_jobs",
		Help: "Number of registered directory sweep jobs.",
	})
)

// ObserveTranspile records one run. A run with error diagnostics counts as
// partial; a returned error counts as failed.
func ObserveTranspile(res *transpile.Result, err error) {
	if err != nil || res == nil {
		Transpiles.WithLabelValues(StatusFailed).Inc()
		return
	}

	status := StatusOK
	if res.HasErrors() {
		status = StatusPartial
	}
	Transpiles.WithLabelValues(status).Inc()
	for _, d := range res.Diagnostics {
		Diagnostics.WithLabelValues(d.Severity).Inc()
	}
	TranspileDuration.Observe(float64(res.Stats.Duration.Microseconds()) / 1000)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
