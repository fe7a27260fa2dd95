package saga

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const sagaTracerName = "orderflow.saga"

const (
	spanSagaRoute        = "saga.route"
	spanSagaStepForward  = "saga.step.forward"
	spanSagaStepRollback = "saga.step.rollback"
)

func sagaTracer() trace.Tracer {
	return otel.Tracer(sagaTracerName)
}
