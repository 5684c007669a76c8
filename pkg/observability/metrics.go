package observability

import (
	"context"
	"errors"

	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors exported by a chaptree server.
type Metrics struct {
	Commands  *prometheus.CounterVec
	Rejected  *prometheus.CounterVec
	Chapters  *prometheus.GaugeVec
	Revisions *prometheus.CounterVec
	Depth     prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chaptree_commands_total",
				Help: "Total number of commands by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		Rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chaptree_commands_rejected_total",
				Help: "Rejected commands by kind and reason",
			},
			[]string{"kind", "reason"},
		),
		Chapters: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chaptree_document_chapters",
				Help: "Number of chapters in each open document",
			},
			[]string{"document"},
		),
		Revisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chaptree_document_revisions_total",
				Help: "Revisions published per document",
			},
			[]string{"document"},
		),
		Depth: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chaptree_command_path_depth",
				Help:    "Length of the access path of each command",
				Buckets: prometheus.LinearBuckets(1, 1, 8),
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Commands, m.Rejected, m.Chapters, m.Revisions, m.Depth)
	}
	return m
}

// Hooks returns lifecycle hooks recording command outcomes.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommandApplied: func(_ context.Context, e *domain.CommandEvent) {
			m.Commands.WithLabelValues(string(e.Kind), "applied").Inc()
			m.observe(e)
		},
		OnCommandRejected: func(_ context.Context, e *domain.CommandEvent) {
			m.Commands.WithLabelValues(string(e.Kind), "rejected").Inc()
			m.Rejected.WithLabelValues(string(e.Kind), Reason(e.Err)).Inc()
			m.observe(e)
		},
	}
}

func (m *Metrics) observe(e *domain.CommandEvent) {
	m.Depth.Observe(float64(e.Depth))
}

// Observe records a new revision. It has the signature of a session observer.
func (m *Metrics) Observe(_ context.Context, _ *domain.Document, after *domain.Document) {
	m.Chapters.WithLabelValues(after.ID).Set(float64(after.Forest.Count()))
	m.Revisions.WithLabelValues(after.ID).Inc()
}

// Forget drops the per-document series of a deleted document.
func (m *Metrics) Forget(documentID string) {
	m.Chapters.DeleteLabelValues(documentID)
	m.Revisions.DeleteLabelValues(documentID)
}

// Reason maps an engine error to a low-cardinality label value.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, domain.ErrPathOutOfRange):
		return "path_out_of_range"
	case errors.Is(err, domain.ErrRootRemovalRejected):
		return "root_removal"
	case errors.Is(err, domain.ErrIDExhausted):
		return "id_exhausted"
	case errors.Is(err, domain.ErrUnknownCommand):
		return "unknown_command"
	default:
		return "other"
	}
}
