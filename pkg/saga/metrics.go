package saga

// MetricsRecorder records saga coordination metrics.
type MetricsRecorder interface {
	RecordRoutingDecision(status string)
	RecordRoutingError(kind string)
	RecordSagaFinished(status string)
	RecordStepExecution(source, status string)
	RecordDuplicateDelivery(source string)
	RecordCompensation(source, status string)
}

type nopMetricsRecorder struct{}

func (nopMetricsRecorder) RecordRoutingDecision(status string)     {}
func (nopMetricsRecorder) RecordRoutingError(kind string)          {}
func (nopMetricsRecorder) RecordSagaFinished(status string)        {}
func (nopMetricsRecorder) RecordStepExecution(source, status string) {}
func (nopMetricsRecorder) RecordDuplicateDelivery(source string)   {}
func (nopMetricsRecorder) RecordCompensation(source, status string) {}
