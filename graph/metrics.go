package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus instrumentation for workflow execution.
//
// Metrics exposed (all namespaced "graphflow_"):
//
//   - steps_total (counter): executed steps. Labels: graph_id, node_type, status.
//   - step_latency_ms (histogram): per-step duration. Labels: graph_id, node_type.
//   - executions_total (counter): finished executions. Labels: graph_id, status.
//   - inflight_branches (gauge): parallel branches currently running.
//   - loop_iterations_total (counter): loop body iterations. Labels: graph_id, node_id.
//   - checkpoint_writes_total (counter): checkpoint save attempts. Labels: graph_id, outcome.
//
// Expose via HTTP for scraping:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewMetrics(registry)
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type Metrics struct {
	steps            *prometheus.CounterVec
	stepLatency      *prometheus.HistogramVec
	executions       *prometheus.CounterVec
	inflightBranches prometheus.Gauge
	loopIterations   *prometheus.CounterVec
	checkpointWrites *prometheus.CounterVec
}

// NewMetrics creates and registers the execution metrics with the given
// registry. A nil registry falls back to prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphflow",
			Name:      "steps_total",
			Help:      "Executed workflow steps",
		}, []string{"graph_id", "node_type", "status"}),
		stepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "graphflow",
			Name:      "step_latency_ms",
			Help:      "Step duration in milliseconds, from dispatch to completion",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"graph_id", "node_type"}),
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphflow",
			Name:      "executions_total",
			Help:      "Finished workflow executions by terminal status",
		}, []string{"graph_id", "status"}),
		inflightBranches: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "graphflow",
			Name:      "inflight_branches",
			Help:      "Parallel branches currently executing",
		}),
		loopIterations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphflow",
			Name:      "loop_iterations_total",
			Help:      "Loop body iterations across all executions",
		}, []string{"graph_id", "node_id"}),
		checkpointWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphflow",
			Name:      "checkpoint_writes_total",
			Help:      "Checkpoint save attempts by outcome",
		}, []string{"graph_id", "outcome"}), // outcome: saved, skipped, error
	}
}

// RecordStep records one executed step and its latency.
func (m *Metrics) RecordStep(graphID string, nodeType NodeType, status string, latency time.Duration) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(graphID, string(nodeType), status).Inc()
	m.stepLatency.WithLabelValues(graphID, string(nodeType)).Observe(float64(latency.Milliseconds()))
}

// RecordExecution records a finished execution by terminal status.
func (m *Metrics) RecordExecution(graphID, status string) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(graphID, status).Inc()
}

// BranchStarted increments the inflight branch gauge.
func (m *Metrics) BranchStarted() {
	if m == nil {
		return
	}
	m.inflightBranches.Inc()
}

// BranchFinished decrements the inflight branch gauge.
func (m *Metrics) BranchFinished() {
	if m == nil {
		return
	}
	m.inflightBranches.Dec()
}

// RecordLoopIteration records one loop body iteration.
func (m *Metrics) RecordLoopIteration(graphID, nodeID string) {
	if m == nil {
		return
	}
	m.loopIterations.WithLabelValues(graphID, nodeID).Inc()
}

// RecordCheckpoint records a checkpoint save attempt outcome.
func (m *Metrics) RecordCheckpoint(graphID, outcome string) {
	if m == nil {
		return
	}
	m.checkpointWrites.WithLabelValues(graphID, outcome).Inc()
}
