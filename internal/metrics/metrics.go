// Package metrics records batch evaluation outcomes as Prometheus metrics and
// writes them in the node_exporter textfile-collector format.
//
// A batch run is a short-lived process with nothing to scrape, so metrics live
// in a private registry that is flushed to a file once the run finishes.
package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ppiankov/evidentia/internal/worker"
)

const metricsNamespace = "evidentia"

const batchSubsystem = "batch"

// BatchMetrics holds the metrics for one batch run.
// All operations are safe for concurrent use from worker goroutines.
type BatchMetrics struct {
	registry *prometheus.Registry

	// EvaluationsTotal counts evaluated payloads.
	// Labels: status (success, error)
	EvaluationsTotal *prometheus.CounterVec

	// LabelsTotal counts reports by verdict.
	// Labels: label (true_mostly_true, mixed_context, unsupported_misleading, false_harmful)
	LabelsTotal *prometheus.CounterVec

	// ModesTotal counts reports by evaluation path.
	// Labels: mode (staged, fallback)
	ModesTotal *prometheus.CounterVec

	// CapsTotal counts reports whose sub-scores were capped
	CapsTotal prometheus.Counter

	// PenaltiesTotal counts applied penalties.
	// Labels: name
	PenaltiesTotal *prometheus.CounterVec

	// TotalScore is the distribution of final scores
	TotalScore prometheus.Histogram

	// DurationSeconds measures per-payload evaluation time
	DurationSeconds prometheus.Histogram

	// LastRunTimestamp is the unix time the run finished
	LastRunTimestamp prometheus.Gauge
}

// NewBatchMetrics creates metrics registered on a fresh registry
func NewBatchMetrics() *BatchMetrics {
	m := &BatchMetrics{
		registry: prometheus.NewRegistry(),
		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: batchSubsystem,
			Name:      "evaluations_total",
			Help:      "Evaluated payloads by status",
		}, []string{"status"}),
		LabelsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: batchSubsystem,
			Name:      "labels_total",
			Help:      "Reports by credibility label",
		}, []string{"label"}),
		ModesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: batchSubsystem,
			Name:      "modes_total",
			Help:      "Reports by evaluation mode",
		}, []string{"mode"}),
		CapsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: batchSubsystem,
			Name:      "caps_total",
			Help:      "Reports with a structural cap applied",
		}),
		PenaltiesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: batchSubsystem,
			Name:      "penalties_total",
			Help:      "Applied penalties by name",
		}, []string{"name"}),
		TotalScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: batchSubsystem,
			Name:      "total_score",
			Help:      "Distribution of final credibility scores",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
		DurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: batchSubsystem,
			Name:      "evaluation_duration_seconds",
			Help:      "Per-payload evaluation time in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: batchSubsystem,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last batch run finished",
		}),
	}

	m.registry.MustRegister(
		m.EvaluationsTotal,
		m.LabelsTotal,
		m.ModesTotal,
		m.CapsTotal,
		m.PenaltiesTotal,
		m.TotalScore,
		m.DurationSeconds,
		m.LastRunTimestamp,
	)

	return m
}

// Registry returns the registry holding the batch metrics
func (m *BatchMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records one finished evaluation. It matches the worker observer signature.
func (m *BatchMetrics) Observe(r *worker.EvalResult) {
	m.DurationSeconds.Observe(r.Duration.Seconds())

	if r.Error != nil || r.Report == nil {
		m.EvaluationsTotal.WithLabelValues("error").Inc()
		return
	}
	m.EvaluationsTotal.WithLabelValues("success").Inc()

	b := r.Report.Breakdown
	m.LabelsTotal.WithLabelValues(LabelValue(string(b.Label))).Inc()
	m.ModesTotal.WithLabelValues(string(b.Mode)).Inc()
	m.TotalScore.Observe(float64(b.TotalScore))
	if b.CapApplied {
		m.CapsTotal.Inc()
	}
	for _, p := range b.Penalties {
		m.PenaltiesTotal.WithLabelValues(p.Name).Inc()
	}
}

// Finish stamps the run completion time
func (m *BatchMetrics) Finish() {
	m.LastRunTimestamp.SetToCurrentTime()
}

// WriteTextfile atomically writes all metrics to path
func (m *BatchMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// LabelValue turns a display label ("True/Mostly True") into a metric label value ("true_mostly_true")
func LabelValue(label string) string {
	return strings.NewReplacer("/", "_", " ", "_").Replace(strings.ToLower(label))
}
