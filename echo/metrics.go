package echo

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	current_active_connections  prometheus.Gauge
	total_connections_handled   prometheus.Counter
	total_connection_failures   *prometheus.CounterVec
	connection_duration_seconds prometheus.Histogram
	bytes_echoed                prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		current_active_connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "current_active_connections",
			Help: "Current Active Connections",
		}),
		total_connections_handled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "total_connections_handled",
				Help: "Total Number of Connections Handled",
			},
		),
		total_connection_failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "total_connection_failures",
				Help: "Total Number of Connection Failures.",
			},
			[]string{"reason"},
		),
		connection_duration_seconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "connection_duration_seconds",
				Help:    "Duration of connections in seconds.",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 20),
			},
		),
		bytes_echoed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bytes_echoed_total",
				Help: "Total bytes echoed back to clients",
			},
		),
	}
	reg.MustRegister(metrics.current_active_connections)
	reg.MustRegister(metrics.total_connections_handled)
	reg.MustRegister(metrics.total_connection_failures)
	reg.MustRegister(metrics.connection_duration_seconds)
	reg.MustRegister(metrics.bytes_echoed)
	return metrics
}
