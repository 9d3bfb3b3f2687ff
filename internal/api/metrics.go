package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the API.
type Metrics struct {
	registry *prometheus.Registry

	TxExecuted prometheus.Counter
	TxRejected *prometheus.CounterVec // TxRejected is labelled by rejection reason
	Snapshots  prometheus.Counter
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		TxExecuted: factory.NewCounter(prometheus.CounterOpts{
			Name: "satellite_transactions_executed_total",
			Help: "Total number of committed transactions",
		}),
		TxRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "satellite_transactions_rejected_total",
			Help: "Total number of rejected transactions by reason",
		}, []string{"reason"}),
		Snapshots: factory.NewCounter(prometheus.CounterOpts{
			Name: "satellite_snapshots_served_total",
			Help: "Total number of state snapshots served",
		}),
	}
}

// rejected increments the rejection counter for reason.
func (m *Metrics) rejected(reason string) {
	m.TxRejected.WithLabelValues(reason).Inc()
}
