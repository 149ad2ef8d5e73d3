package network

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes recorded per endpoint.
const (
	outcomeOK          = "ok"
	outcomeNotFound    = "not_found"
	outcomeRejected    = "rejected"
	outcomeUnreachable = "unreachable"
	outcomeTimeout     = "timeout"
	outcomeError       = "error"
)

// Metrics collects gateway request statistics.
type Metrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	failovers *prometheus.CounterVec
	exhausted *prometheus.CounterVec
}

// NewMetrics registers the gateway collectors on reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "etoken",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Indexer requests by endpoint, operation and outcome",
			},
			[]string{"endpoint", "op", "outcome"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "etoken",
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Indexer request duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"op"},
		),
		failovers: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "etoken",
				Subsystem: "gateway",
				Name:      "failovers_total",
				Help:      "Times an operation moved on to the next endpoint",
			},
			[]string{"op"},
		),
		exhausted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "etoken",
				Subsystem: "gateway",
				Name:      "exhausted_total",
				Help:      "Operations that failed on every endpoint",
			},
			[]string{"op"},
		),
	}
}

func (m *Metrics) observe(endpoint, op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) failover(op string) {
	if m == nil {
		return
	}
	m.failovers.WithLabelValues(op).Inc()
}

func (m *Metrics) allFailed(op string) {
	if m == nil {
		return
	}
	m.exhausted.WithLabelValues(op).Inc()
}
