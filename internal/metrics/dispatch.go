package metrics

import "github.com/prometheus/client_golang/prometheus"

// Dispatch and capability Prometheus metrics.
var (
	SourceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrievex",
			Name:      "source_requests_total",
			Help:      "Total number of backend source requests",
		},
		[]string{"source", "status"},
	)

	SourceRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retrievex",
			Name:      "source_request_duration_seconds",
			Help:      "Backend source request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)

	SourceHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrievex",
			Name:      "source_hits_total",
			Help:      "Total raw hits returned by backend sources",
		},
		[]string{"source"},
	)

	DecompositionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrievex",
			Name:      "decompositions_total",
			Help:      "Total query decomposition attempts",
		},
		[]string{"model", "status"},
	)

	ReranksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrievex",
			Name:      "reranks_total",
			Help:      "Total rerank attempts",
		},
		[]string{"model", "status"},
	)
)

var dispatchMetricsRegistered bool

// RegisterDispatchMetrics registers dispatch metrics. Must be called once from main.
func RegisterDispatchMetrics() {
	if dispatchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SourceRequestsTotal)
	prometheus.MustRegister(SourceRequestDuration)
	prometheus.MustRegister(SourceHitsTotal)
	prometheus.MustRegister(DecompositionsTotal)
	prometheus.MustRegister(ReranksTotal)
	dispatchMetricsRegistered = true
}
