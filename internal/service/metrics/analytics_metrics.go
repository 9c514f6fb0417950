// Package metrics holds Prometheus collectors describing analysis results.
package metrics

import (
	"sync"

	"QuantLab/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	AnalyticsLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "quantlab",
			Subsystem: "analytics",
			Name:      "latency_seconds",
			Help:      "Latency of analysis calls by kind and source",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"kind", "source"},
	)

	AnalyticsErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quantlab",
			Subsystem: "analytics",
			Name:      "errors_total",
			Help:      "Failed analysis calls by kind and error class",
		},
		[]string{"kind", "class"},
	)

	PairsCointegrated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quantlab",
			Subsystem: "pairs",
			Name:      "results_total",
			Help:      "Pairs analyses by cointegration outcome",
		},
		[]string{"cointegrated"},
	)

	EMIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "quantlab",
			Subsystem: "hmm",
			Name:      "em_iterations",
			Help:      "EM iterations per regime fit",
			Buckets:   []float64{5, 10, 20, 40, 60, 80, 100, 150, 200},
		},
	)

	EMNotConverged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "quantlab",
			Subsystem: "hmm",
			Name:      "not_converged_total",
			Help:      "Regime fits that stopped at the iteration cap",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(AnalyticsLatency, AnalyticsErrors, PairsCointegrated, EMIterations, EMNotConverged)
	})
}

// ObservePairs records the outcome of one pairs analysis.
func ObservePairs(res *models.PairsTradingResult) {
	label := "false"
	if res.Cointegration.IsCointegrated {
		label = "true"
	}
	PairsCointegrated.WithLabelValues(label).Inc()
}

// ObserveRegime records EM behaviour of one regime fit.
func ObserveRegime(res *models.RegimeResult) {
	EMIterations.Observe(float64(res.Convergence.Iterations))
	if !res.Convergence.Converged {
		EMNotConverged.Inc()
	}
}
