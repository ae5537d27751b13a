package analytics

import "github.com/prometheus/client_golang/prometheus"

type recorderMetrics struct {
	recordedTotal prometheus.Counter
	droppedTotal  prometheus.Counter
	failedTotal   prometheus.Counter
	retriesTotal  prometheus.Counter
}

func newRecorderMetrics(registerer prometheus.Registerer, queueDepth func() float64) *recorderMetrics {
	recordedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blogstore", Subsystem: "analytics", Name: "recorded_total",
		Help: "Events appended to the durable log.",
	})
	registerer.MustRegister(recordedTotal)

	droppedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blogstore", Subsystem: "analytics", Name: "dropped_total",
		Help: "Events rejected because the queue was full.",
	})
	registerer.MustRegister(droppedTotal)

	failedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blogstore", Subsystem: "analytics", Name: "failed_total",
		Help: "Events that could not be appended within the retry budget.",
	})
	registerer.MustRegister(failedTotal)

	retriesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blogstore", Subsystem: "analytics", Name: "append_retries_total",
		Help: "Append attempts after the first for a single event.",
	})
	registerer.MustRegister(retriesTotal)

	registerer.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "blogstore", Subsystem: "analytics", Name: "queue_depth",
		Help: "Events waiting to be appended.",
	}, queueDepth))

	return &recorderMetrics{
		recordedTotal: recordedTotal,
		droppedTotal:  droppedTotal,
		failedTotal:   failedTotal,
		retriesTotal:  retriesTotal,
	}
}
