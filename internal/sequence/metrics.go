package sequence

import "github.com/prometheus/client_golang/prometheus"

type allocatorMetrics struct {
	allocationsTotal *prometheus.CounterVec
	fallbacksTotal   *prometheus.CounterVec
}

func newAllocatorMetrics(registerer prometheus.Registerer) *allocatorMetrics {
	allocationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blogstore",
			Subsystem: "sequence",
			Name:      "allocations_total",
			Help:      "Ids handed out, by counter and path (store or fallback).",
		},
		[]string{"counter", "path"},
	)
	registerer.MustRegister(allocationsTotal)

	fallbacksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blogstore",
			Subsystem: "sequence",
			Name:      "fallbacks_total",
			Help:      "Allocations that could not use the durable counter.",
		},
		[]string{"counter"},
	)
	registerer.MustRegister(fallbacksTotal)

	return &allocatorMetrics{
		allocationsTotal: allocationsTotal,
		fallbacksTotal:   fallbacksTotal,
	}
}
