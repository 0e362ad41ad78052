package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the Prometheus metrics of the backtest runner.
// Observability is strictly ambient: nothing here feeds back into a
// simulation.
type Registry struct {
	*prometheus.Registry

	backtestsTotal     *prometheus.CounterVec
	backtestDuration   prometheus.Histogram
	jobsActive         prometheus.Gauge
	datasetInstruments prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		backtestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantlab_backtests_total",
				Help: "Total number of backtest runs",
			},
			[]string{"strategy", "status"},
		),

		backtestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quantlab_backtest_duration_seconds",
				Help:    "Backtest run duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
		),

		jobsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "quantlab_jobs_active",
				Help: "Number of backtest jobs currently running",
			},
		),

		datasetInstruments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "quantlab_dataset_instruments",
				Help: "Number of instruments in the loaded dataset",
			},
		),
	}

	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.jobsActive)
	reg.MustRegister(r.datasetInstruments)

	return r
}

// RecordBacktest records one finished run. Status is "ok", "error" or
// "cancelled".
func (r *Registry) RecordBacktest(strategy, status string, seconds float64) {
	r.backtestsTotal.WithLabelValues(strategy, status).Inc()
	r.backtestDuration.Observe(seconds)
}

// JobStarted increments the active-jobs gauge.
func (r *Registry) JobStarted() { r.jobsActive.Inc() }

// JobFinished decrements the active-jobs gauge.
func (r *Registry) JobFinished() { r.jobsActive.Dec() }

// SetDatasetSize records the instrument count of the loaded dataset.
func (r *Registry) SetDatasetSize(n int) {
	r.datasetInstruments.Set(float64(n))
}

// Handler returns the HTTP handler serving the registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})
}
