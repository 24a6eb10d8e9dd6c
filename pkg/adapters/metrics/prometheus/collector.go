// Package prometheus implements the metrics collector on Prometheus.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements the engine's metrics collector with Prometheus
// counters, histograms and gauges registered on the default registry.
type Collector struct {
	runsStarted       prometheus.Counter
	runsFinished      *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
	nodesExecuted     *prometheus.CounterVec
	nodeDuration      *prometheus.HistogramVec
	generativeRetries *prometheus.CounterVec
	activeRuns        prometheus.Gauge
	budgetInUse       prometheus.Gauge
}

// NewCollector creates a Prometheus metrics collector.
func NewCollector() *Collector {
	return &Collector{
		runsStarted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "valgraph_runs_started_total",
				Help: "Total number of workflow runs started",
			},
		),
		runsFinished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "valgraph_runs_finished_total",
				Help: "Total number of workflow runs finished, by terminal reason",
			},
			[]string{"terminal_reason"},
		),
		runDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "valgraph_run_duration_seconds",
				Help:    "Workflow run duration in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
			},
			[]string{"terminal_reason"},
		),
		nodesExecuted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "valgraph_nodes_executed_total",
				Help: "Total number of node executions, by kind and status",
			},
			[]string{"kind", "status"},
		),
		nodeDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "valgraph_node_duration_seconds",
				Help:    "Node execution duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"kind"},
		),
		generativeRetries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "valgraph_generative_retries_total",
				Help: "Total number of generative request retries, by failure class",
			},
			[]string{"class"},
		),
		activeRuns: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "valgraph_active_runs",
				Help: "Number of runs currently in flight",
			},
		),
		budgetInUse: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "valgraph_generation_budget_in_use",
				Help: "Generative requests currently holding a budget slot",
			},
		),
	}
}

// RecordRunStarted counts a run start.
func (c *Collector) RecordRunStarted() {
	c.runsStarted.Inc()
}

// RecordRunFinished counts a run end and observes its duration.
func (c *Collector) RecordRunFinished(reason string, duration time.Duration) {
	c.runsFinished.WithLabelValues(reason).Inc()
	c.runDuration.WithLabelValues(reason).Observe(duration.Seconds())
}

// RecordNodeExecuted counts a node execution and observes its duration.
func (c *Collector) RecordNodeExecuted(kind, status string, duration time.Duration) {
	c.nodesExecuted.WithLabelValues(kind, status).Inc()
	c.nodeDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordGenerativeRetry counts a retry by failure class.
func (c *Collector) RecordGenerativeRetry(class string) {
	c.generativeRetries.WithLabelValues(class).Inc()
}

// SetActiveRuns sets the in-flight run gauge.
func (c *Collector) SetActiveRuns(count int) {
	c.activeRuns.Set(float64(count))
}

// SetBudgetInUse sets the budget occupancy gauge.
func (c *Collector) SetBudgetInUse(count int) {
	c.budgetInUse.Set(float64(count))
}
