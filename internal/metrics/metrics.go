// Package metrics holds the Prometheus collectors shared by the service
// and audit layers.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "planloom"

type Metrics struct {
	Registry *prometheus.Registry

	UseCaseDuration *prometheus.HistogramVec
	UseCaseTotal    *prometheus.CounterVec
	AuditDropped    prometheus.Counter
	AuditFailures   prometheus.Counter
	CascadeChanges  prometheus.Histogram
	MergeConflicts  *prometheus.CounterVec
}

// New registers every collector on a fresh registry so tests and
// command invocations never collide on the default one.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		UseCaseDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "use_case_duration_seconds",
			Help:      "Duration of service use cases.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"use_case"}),
		UseCaseTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "use_case_total",
			Help:      "Service use case invocations by outcome.",
		}, []string{"use_case", "outcome"}),
		AuditDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_dropped_total",
			Help:      "Audit entries dropped because the dispatch queue was full.",
		}),
		AuditFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_sink_failures_total",
			Help:      "Audit entries a sink failed to record.",
		}),
		CascadeChanges: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cascade_changed_phases",
			Help:      "Phases moved per applied cascade.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		MergeConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merge_conflicts_total",
			Help:      "Merge conflicts detected by conflict type.",
		}, []string{"conflict_type"}),
	}
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
