package metrics

import "github.com/prometheus/client_golang/prometheus"

func (m *Manager) initSagaMetrics() {
	m.routingDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderflow_saga_routing_decisions_total",
			Help: "Total routing decisions made by the orchestrator, by event status",
		},
		[]string{"status"},
	)

	m.routingErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderflow_saga_routing_errors_total",
			Help: "Total routing failures, by error kind",
		},
		[]string{"kind"},
	)

	m.sagasFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderflow_sagas_finished_total",
			Help: "Total sagas reaching a terminal state, by final status",
		},
		[]string{"status"},
	)

	m.stepExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderflow_saga_step_executions_total",
			Help: "Total step executions, by step source and outcome status",
		},
		[]string{"source", "status"},
	)

	m.duplicateDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderflow_saga_duplicate_deliveries_total",
			Help: "Total duplicate deliveries short-circuited by the idempotency guard",
		},
		[]string{"source"},
	)

	m.compensations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderflow_saga_compensations_total",
			Help: "Total compensation executions, by step source and outcome status",
		},
		[]string{"source", "status"},
	)

	m.registry.MustRegister(
		m.routingDecisions,
		m.routingErrors,
		m.sagasFinished,
		m.stepExecutions,
		m.duplicateDeliveries,
		m.compensations,
	)
}

// RecordRoutingDecision increments the routing decision counter.
func (m *Manager) RecordRoutingDecision(status string) {
	if !m.enabled {
		return
	}
	m.routingDecisions.WithLabelValues(status).Inc()
}

// RecordRoutingError increments the routing error counter.
func (m *Manager) RecordRoutingError(kind string) {
	if !m.enabled {
		return
	}
	m.routingErrors.WithLabelValues(kind).Inc()
}

// RecordSagaFinished increments the finished saga counter.
func (m *Manager) RecordSagaFinished(status string) {
	if !m.enabled {
		return
	}
	m.sagasFinished.WithLabelValues(status).Inc()
}

// RecordStepExecution increments the step execution counter.
func (m *Manager) RecordStepExecution(source, status string) {
	if !m.enabled {
		return
	}
	m.stepExecutions.WithLabelValues(source, status).Inc()
}

// RecordDuplicateDelivery increments the duplicate delivery counter.
func (m *Manager) RecordDuplicateDelivery(source string) {
	if !m.enabled {
		return
	}
	m.duplicateDeliveries.WithLabelValues(source).Inc()
}

// RecordCompensation increments the compensation counter.
func (m *Manager) RecordCompensation(source, status string) {
	if !m.enabled {
		return
	}
	m.compensations.WithLabelValues(source, status).Inc()
}
