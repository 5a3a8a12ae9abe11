package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// TransactionMetrics records applied-transaction activity segmented by
// operation and outcome.
type TransactionMetrics struct {
	applied *prometheus.CounterVec
	failed  *prometheus.CounterVec
}

var (
	txMetricsOnce sync.Once
	txRegistry    *TransactionMetrics
)

// TxMetrics returns the lazily-initialised transaction metrics registry.
func TxMetrics() *TransactionMetrics {
	txMetricsOnce.Do(func() {
		txRegistry = &TransactionMetrics{
			applied: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "purchasechain",
				Subsystem: "tx",
				Name:      "applied_total",
				Help:      "Total transactions applied successfully, segmented by operation.",
			}, []string{"operation"}),
			failed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "purchasechain",
				Subsystem: "tx",
				Name:      "failed_total",
				Help:      "Total transactions rejected, segmented by operation.",
			}, []string{"operation"}),
		}
		prometheus.MustRegister(txRegistry.applied, txRegistry.failed)
	})
	return txRegistry
}

// Observe records the outcome of one transaction application.
func (m *TransactionMetrics) Observe(operation string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.failed.WithLabelValues(operation).Inc()
		return
	}
	m.applied.WithLabelValues(operation).Inc()
}
