package tx

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submit outcomes.
const (
	outcomeAccepted     = "accepted"
	outcomeAlreadyKnown = "already_known"
	outcomeInputSpent   = "input_spent"
	outcomeError        = "error"
)

// Metrics counts drafts built and submitted.
type Metrics struct {
	builds  *prometheus.CounterVec
	submits *prometheus.CounterVec
}

// NewMetrics registers the builder collectors on reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		builds: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "etoken",
				Subsystem: "tx",
				Name:      "builds_total",
				Help:      "Drafts built by operation",
			},
			[]string{"kind"},
		),
		submits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "etoken",
				Subsystem: "tx",
				Name:      "submits_total",
				Help:      "Draft submissions by operation and outcome",
			},
			[]string{"kind", "outcome"},
		),
	}
}

func (m *Metrics) built(kind Kind) {
	if m == nil {
		return
	}
	m.builds.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) submitted(kind Kind, outcome string) {
	if m == nil {
		return
	}
	m.submits.WithLabelValues(string(kind), outcome).Inc()
}
