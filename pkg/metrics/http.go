package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func (m *Manager) initHTTPMetrics(cfg Config) {
	buckets := cfg.HTTPDurationBuckets
	if len(buckets) == 0 {
		buckets = DefaultConfig().HTTPDurationBuckets
	}

	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderflow_http_requests_total",
			Help: "Total HTTP requests, by method, route and status code",
		},
		[]string{"method", "route", "code"},
	)

	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orderflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: buckets,
		},
		[]string{"method", "route"},
	)

	m.httpConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orderflow_http_connections_active",
			Help: "Number of in-flight HTTP requests",
		},
	)

	m.registry.MustRegister(m.httpRequests, m.httpDuration, m.httpConnections)
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Manager) RecordHTTPRequest(method, route, code string, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(method, route, code).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncHTTPConnections increments the in-flight request gauge.
func (m *Manager) IncHTTPConnections() {
	if !m.enabled {
		return
	}
	m.httpConnections.Inc()
}

// DecHTTPConnections decrements the in-flight request gauge.
func (m *Manager) DecHTTPConnections() {
	if !m.enabled {
		return
	}
	m.httpConnections.Dec()
}
