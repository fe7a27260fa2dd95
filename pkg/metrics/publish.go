package metrics

import "github.com/prometheus/client_golang/prometheus"

func (m *Manager) initPublishMetrics() {
	m.publishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderflow_publishes_total",
			Help: "Total publish attempts that reached a terminal outcome, by status",
		},
		[]string{"status"},
	)

	m.publishRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orderflow_publish_retries_total",
			Help: "Total publish retries after a transport failure",
		},
	)

	m.degradedMode = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orderflow_publisher_degraded_mode",
			Help: "Whether the publisher is in degraded mode (1) or healthy (0)",
		},
	)

	m.registry.MustRegister(m.publishes, m.publishRetries, m.degradedMode)
}

// RecordPublish increments the publish counter for a terminal outcome.
func (m *Manager) RecordPublish(status string) {
	if !m.enabled {
		return
	}
	m.publishes.WithLabelValues(status).Inc()
}

// RecordRetry increments the publish retry counter.
func (m *Manager) RecordRetry() {
	if !m.enabled {
		return
	}
	m.publishRetries.Inc()
}

// SetDegradedMode sets the degraded mode gauge.
func (m *Manager) SetDegradedMode(active bool) {
	if !m.enabled {
		return
	}
	if active {
		m.degradedMode.Set(1)
	} else {
		m.degradedMode.Set(0)
	}
}
