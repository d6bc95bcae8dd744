package daemon

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ollamadash",
			Subsystem: "daemon",
			Name:      "requests_total",
			Help:      "Logical daemon requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ollamadash",
			Subsystem: "daemon",
			Name:      "retries_total",
			Help:      "Retried daemon request attempts",
		},
		[]string{"endpoint"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ollamadash",
			Subsystem: "daemon",
			Name:      "request_duration_seconds",
			Help:      "Duration of logical daemon requests including retries",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	livenessChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ollamadash",
			Subsystem: "daemon",
			Name:      "liveness_checks_total",
			Help:      "Liveness checks answered from cache or by probing",
		},
		[]string{"source", "result"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, retriesTotal, requestDuration, livenessChecksTotal)
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if k := KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}
