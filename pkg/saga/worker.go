package saga

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/orderflow/orderflow/pkg/idempotency"
	"github.com/orderflow/orderflow/pkg/logger"
)

// Action is the domain contract a step service plugs into the execution
// template. The template never touches persistence or transports directly,
// only this interface. Returned errors are converted into envelope state and
// never crash the worker.
type Action interface {
	// Execute runs the forward business action and returns a human-readable
	// detail for the saga history.
	Execute(ctx context.Context, payload json.RawMessage) (string, error)
	// Compensate semantically undoes a previously executed action.
	Compensate(ctx context.Context, payload json.RawMessage) (string, error)
}

// StepConfig identifies one participant and its two topic subscriptions.
type StepConfig struct {
	Source        Source
	ForwardTopic  string
	RollbackTopic string
}

// StepWorkerOption customizes StepWorker initialization.
type StepWorkerOption func(*StepWorker)

// WithStepMetrics wires a metrics recorder into the step worker.
func WithStepMetrics(recorder MetricsRecorder) StepWorkerOption {
	return func(w *StepWorker) {
		if recorder != nil {
			w.metrics = recorder
		}
	}
}

// StepWorker is the step execution template every participant instantiates:
// idempotency guard, domain action, outcome recording, history logging, and
// symmetric forward/rollback event emission. It reacts to one inbound
// message at a time and produces exactly one outbound message per inbound,
// regardless of which branch executes.
type StepWorker struct {
	cfg       StepConfig
	action    Action
	store     idempotency.Store
	publisher Publisher
	logger    logger.Logger
	metrics   MetricsRecorder

	// keys serializes the check-then-act sequence per (sagaId, transactionId)
	// so concurrent duplicate deliveries cannot both run the domain action.
	keys keyedMutex
}

// NewStepWorker creates a step worker for one participant.
func NewStepWorker(
	cfg StepConfig,
	action Action,
	store idempotency.Store,
	publisher Publisher,
	log logger.Logger,
	opts ...StepWorkerOption,
) (*StepWorker, error) {
	if cfg.Source == "" {
		return nil, fmt.Errorf("saga: step source cannot be empty")
	}
	if cfg.ForwardTopic == "" || cfg.RollbackTopic == "" {
		return nil, fmt.Errorf("saga: step %s topics cannot be empty", cfg.Source)
	}
	if action == nil {
		return nil, fmt.Errorf("saga: step %s action cannot be nil", cfg.Source)
	}
	if store == nil {
		return nil, fmt.Errorf("saga: step %s idempotency store cannot be nil", cfg.Source)
	}
	if publisher == nil {
		return nil, fmt.Errorf("saga: step %s publisher cannot be nil", cfg.Source)
	}
	if log == nil {
		log = logger.Global()
	}
	worker := &StepWorker{
		cfg:       cfg,
		action:    action,
		store:     store,
		publisher: publisher,
		logger:    log.With("step", string(cfg.Source)),
		metrics:   nopMetricsRecorder{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(worker)
		}
	}
	return worker, nil
}

// HandleForward processes one message from the step's forward topic and
// publishes the resulting envelope to the orchestrator's inbound topic.
func (w *StepWorker) HandleForward(ctx context.Context, event Event) (Event, error) {
	ctx, span := sagaTracer().Start(ctx, spanSagaStepForward)
	defer span.End()
	span.SetAttributes(
		attribute.String("saga.id", event.SagaID),
		attribute.String("saga.step", string(w.cfg.Source)),
	)

	status, message := w.executeForward(ctx, event)
	next := event.WithOutcome(w.cfg.Source, status, message)
	w.metrics.RecordStepExecution(string(w.cfg.Source), string(status))

	if err := w.emit(ctx, next); err != nil {
		return Event{}, err
	}
	return next, nil
}

// executeForward resolves the forward outcome without publishing, so the
// single emit in HandleForward covers every branch.
func (w *StepWorker) executeForward(ctx context.Context, event Event) (Status, string) {
	if err := validateForward(event); err != nil {
		w.logger.WarnContext(ctx, "rejecting invalid forward event",
			"error", err,
			"saga_id", event.SagaID,
			"transaction_id", event.TransactionID,
		)
		return StatusRollbackPending, fmt.Sprintf("validation failed: %v", err)
	}

	unlock := w.keys.lock(idempotency.Key(event.SagaID, event.TransactionID))
	defer unlock()

	record, err := w.store.Get(ctx, event.SagaID, event.TransactionID)
	if err == nil {
		// Duplicate delivery: never re-run the domain action; re-derive the
		// previous outcome from the stored record.
		w.metrics.RecordDuplicateDelivery(string(w.cfg.Source))
		w.logger.InfoContext(ctx, "duplicate delivery suppressed",
			"saga_id", event.SagaID,
			"transaction_id", event.TransactionID,
			"succeeded", record.Succeeded,
		)
		if record.Succeeded {
			return StatusSuccess, "duplicate delivery suppressed, action previously succeeded"
		}
		return StatusFail, "duplicate delivery suppressed, transaction previously rolled back"
	}
	if err != idempotency.ErrNotFound {
		// Store unavailable: do not risk running the action twice. Failing
		// the envelope lets the saga compensate and the attempt retry.
		w.logger.ErrorContext(ctx, "idempotency lookup failed", "error", err,
			"saga_id", event.SagaID, "transaction_id", event.TransactionID)
		return StatusRollbackPending, fmt.Sprintf("idempotency lookup failed: %v", err)
	}

	detail, execErr := w.action.Execute(ctx, event.Payload)
	if execErr != nil {
		w.logger.WarnContext(ctx, "step action failed",
			"error", execErr,
			"saga_id", event.SagaID,
			"transaction_id", event.TransactionID,
		)
		return StatusRollbackPending, fmt.Sprintf("action failed: %v", execErr)
	}

	if err := w.store.Put(ctx, idempotency.NewRecord(event.SagaID, event.TransactionID, true)); err != nil {
		// The action ran but its record did not stick. Roll the step back so
		// redelivery cannot execute it a second time unguarded.
		w.logger.ErrorContext(ctx, "idempotency record write failed", "error", err,
			"saga_id", event.SagaID, "transaction_id", event.TransactionID)
		return StatusRollbackPending, fmt.Sprintf("outcome recording failed: %v", err)
	}

	if detail == "" {
		detail = "action succeeded"
	}
	return StatusSuccess, detail
}

// HandleRollback processes one message from the step's rollback topic. The
// outcome is always FAIL: a compensation error is logged and surfaced in the
// history, but must not stall the backward cascade.
func (w *StepWorker) HandleRollback(ctx context.Context, event Event) (Event, error) {
	ctx, span := sagaTracer().Start(ctx, spanSagaStepRollback)
	defer span.End()
	span.SetAttributes(
		attribute.String("saga.id", event.SagaID),
		attribute.String("saga.step", string(w.cfg.Source)),
	)

	message := w.executeRollback(ctx, event)
	next := event.WithOutcome(w.cfg.Source, StatusFail, message)

	if err := w.emit(ctx, next); err != nil {
		return Event{}, err
	}
	return next, nil
}

func (w *StepWorker) executeRollback(ctx context.Context, event Event) string {
	unlock := w.keys.lock(idempotency.Key(event.SagaID, event.TransactionID))
	defer unlock()

	record, err := w.store.Get(ctx, event.SagaID, event.TransactionID)
	if err != nil {
		if err != idempotency.ErrNotFound {
			w.logger.ErrorContext(ctx, "idempotency lookup failed during rollback",
				"error", err, "saga_id", event.SagaID, "transaction_id", event.TransactionID)
		}
		// The step never ran for this transaction (partial saga progress).
		// Skip compensation but keep the bookkeeping record.
		if putErr := w.store.Put(ctx, idempotency.NewRecord(event.SagaID, event.TransactionID, false)); putErr != nil {
			w.logger.ErrorContext(ctx, "rollback bookkeeping write failed",
				"error", putErr, "saga_id", event.SagaID, "transaction_id", event.TransactionID)
		}
		w.metrics.RecordCompensation(string(w.cfg.Source), "skipped")
		return "rollback executed, step had not run for this transaction"
	}

	detail, compErr := w.action.Compensate(ctx, event.Payload)
	record.Succeeded = false
	if putErr := w.store.Put(ctx, record); putErr != nil {
		w.logger.ErrorContext(ctx, "rollback record update failed",
			"error", putErr, "saga_id", event.SagaID, "transaction_id", event.TransactionID)
	}

	if compErr != nil {
		w.metrics.RecordCompensation(string(w.cfg.Source), "failed")
		w.logger.ErrorContext(ctx, "compensation failed",
			"error", compErr,
			"saga_id", event.SagaID,
			"transaction_id", event.TransactionID,
		)
		return fmt.Sprintf("rollback executed, compensation failed: %v", compErr)
	}

	w.metrics.RecordCompensation(string(w.cfg.Source), "success")
	if detail == "" {
		detail = "rollback executed"
	}
	return detail
}

// Run consumes the step's forward and rollback topics until the context is
// cancelled.
func (w *StepWorker) Run(ctx context.Context, bus Subscriber) error {
	forward, err := bus.Subscribe(w.cfg.ForwardTopic, 0)
	if err != nil {
		return err
	}
	defer forward.Close()

	rollback, err := bus.Subscribe(w.cfg.RollbackTopic, 0)
	if err != nil {
		return err
	}
	defer rollback.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-forward.C():
			w.consume(ctx, msg.Payload, w.HandleForward)
		case msg := <-rollback.C():
			w.consume(ctx, msg.Payload, w.HandleRollback)
		}
	}
}

func (w *StepWorker) consume(ctx context.Context, payload []byte, fn func(context.Context, Event) (Event, error)) {
	event, err := UnmarshalEvent(payload)
	if err != nil {
		w.logger.ErrorContext(ctx, "discarding undecodable step event", "error", err)
		return
	}
	if _, err := fn(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "step event handling failed",
			"error", err,
			"saga_id", event.SagaID,
			"transaction_id", event.TransactionID,
		)
	}
}

func (w *StepWorker) emit(ctx context.Context, event Event) error {
	body, err := event.Marshal()
	if err != nil {
		return err
	}
	return w.publisher.Publish(ctx, TopicOrchestrator, body)
}

// validateForward checks the presence the template requires; domain field
// semantics stay inside the Action.
func validateForward(event Event) error {
	if event.SagaID == "" || event.TransactionID == "" {
		return fmt.Errorf("saga id and transaction id must be informed")
	}
	if len(event.Payload) == 0 || string(event.Payload) == "null" {
		return fmt.Errorf("payload must be informed")
	}
	return nil
}

const keyStripes = 64

// keyedMutex is a striped lock keyed by saga transaction.
type keyedMutex struct {
	stripes [keyStripes]sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &k.stripes[h.Sum32()%keyStripes]
	m.Lock()
	return m.Unlock
}
