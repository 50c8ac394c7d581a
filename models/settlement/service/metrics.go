package service

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type settlementMetrics struct {
	plansGenerated     *prometheus.CounterVec
	planTransactions   prometheus.Histogram
	approvalsRecorded  prometheus.Counter
	paymentTransitions *prometheus.CounterVec
	conflicts          *prometheus.CounterVec
}

var (
	metricsInstance *settlementMetrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

func newSettlementMetrics() *settlementMetrics {
	metricsOnce.Do(func() {
		metricsInstance = &settlementMetrics{
			plansGenerated: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "settlement_plans_generated_total",
				Help: "Settlement plans committed, by operation",
			}, []string{"operation"}),
			planTransactions: promauto.With(defaultRegistry).NewHistogram(prometheus.HistogramOpts{
				Name:    "settlement_plan_transactions",
				Help:    "Number of transactions per committed plan",
				Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
			}),
			approvalsRecorded: promauto.With(defaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "settlement_approvals_recorded_total",
				Help: "Entity approvals recorded",
			}),
			paymentTransitions: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "settlement_payment_transitions_total",
				Help: "Settlement payment status transitions, by target status",
			}, []string{"status"}),
			conflicts: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "settlement_optimistic_conflicts_total",
				Help: "Lost optimistic concurrency races, by operation",
			}, []string{"operation"}),
		}
	})
	return metricsInstance
}

// resetMetricsForTesting resets the metrics singleton for test isolation.
func resetMetricsForTesting() {
	defaultRegistry = prometheus.NewRegistry()
	metricsInstance = nil
	metricsOnce = sync.Once{}
}
