// Package metrics implements the repository Metrics port with Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	latency     *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec
	cacheTotal  *prometheus.CounterVec
}

// New creates a recorder and registers it with reg; nil means the default
// registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantlab_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantlab_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"operation", "kind"},
		),
		cacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantlab_cache_lookups_total",
				Help: "Result cache lookups by outcome",
			},
			[]string{"operation", "result"},
		),
	}
	r.latency = register(reg, r.latency)
	r.errorsTotal = register(reg, r.errorsTotal)
	r.cacheTotal = register(reg, r.cacheTotal)
	return r
}

// register returns the already registered collector when an equal one
// exists, so New may be called more than once per process.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(op, kind string) {
	r.errorsTotal.WithLabelValues(op, kind).Inc()
}

func (r *Recorder) RecordCache(op string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheTotal.WithLabelValues(op, result).Inc()
}
