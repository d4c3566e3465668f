package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are registered on a registry owned by the Proxy so that several
// proxies (tests) can coexist in one process.
type metrics struct {
	requests *prometheus.CounterVec
	deltas   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	dropped  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)

	return &metrics{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sakhi",
				Subsystem: "proxy",
				Name:      "requests_total",
				Help:      "Total number of proxied exchanges by endpoint and response status",
			},
			[]string{"endpoint", "status"},
		),
		deltas: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sakhi",
				Subsystem: "proxy",
				Name:      "deltas_total",
				Help:      "Text deltas observed in relayed streams",
			},
			[]string{"endpoint"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sakhi",
				Subsystem: "proxy",
				Name:      "stream_duration_seconds",
				Help:      "Time from upstream request to the end of the relayed stream",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"endpoint"},
		),
		dropped: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sakhi",
				Subsystem: "proxy",
				Name:      "events_dropped_total",
				Help:      "Exchange events dropped because the publish queue was full",
			},
		),
	}
}
