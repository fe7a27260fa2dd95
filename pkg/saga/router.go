package saga

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/orderflow/orderflow/pkg/eventbus"
	"github.com/orderflow/orderflow/pkg/logger"
)

// Publisher publishes encoded envelopes to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// RouterOption customizes Router initialization.
type RouterOption func(*Router)

// WithRouterMetrics wires a metrics recorder into the router.
func WithRouterMetrics(recorder MetricsRecorder) RouterOption {
	return func(r *Router) {
		if recorder != nil {
			r.metrics = recorder
		}
	}
}

// Router is the orchestrator side of the saga: it validates incoming
// envelopes, consults the routing table, logs the transition, and publishes
// to the resolved topic. It holds no per-saga state, so every decision is a
// pure function of the incoming envelope and restarts are safe by
// construction.
type Router struct {
	table     *Table
	publisher Publisher
	logger    logger.Logger
	metrics   MetricsRecorder
}

// NewRouter creates a saga router over the given routing table.
func NewRouter(table *Table, publisher Publisher, log logger.Logger, opts ...RouterOption) (*Router, error) {
	if table == nil {
		return nil, fmt.Errorf("saga: routing table cannot be nil")
	}
	if publisher == nil {
		return nil, fmt.Errorf("saga: publisher cannot be nil")
	}
	if log == nil {
		log = logger.Global()
	}
	router := &Router{
		table:     table,
		publisher: publisher,
		logger:    log,
		metrics:   nopMetricsRecorder{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(router)
		}
	}
	return router, nil
}

// Start begins a new saga: the orchestrator stamps itself as source with a
// SUCCESS outcome, appends the opening history record, and routes the
// envelope to the first step's forward topic.
func (r *Router) Start(ctx context.Context, event Event) error {
	next := event.WithOutcome(SourceOrchestrator, StatusSuccess, "saga started")
	return r.Route(ctx, next)
}

// Route resolves the next topic for the envelope and publishes it there.
// ErrInvalidEvent and ErrNoRoute abort the message; a NoRoute means the saga
// graph is misconfigured and retrying cannot help.
func (r *Router) Route(ctx context.Context, event Event) error {
	ctx, span := sagaTracer().Start(ctx, spanSagaRoute)
	defer span.End()
	span.SetAttributes(
		attribute.String("saga.id", event.SagaID),
		attribute.String("saga.transaction_id", event.TransactionID),
		attribute.String("saga.source", string(event.Source)),
	)

	topic, err := r.table.Resolve(event)
	if err != nil {
		r.recordRoutingError(err)
		r.logger.ErrorContext(ctx, "saga routing failed",
			"error", err,
			"saga_id", event.SagaID,
			"transaction_id", event.TransactionID,
			"source", event.Source,
			"status", event.Status,
		)
		return err
	}

	r.logTransition(ctx, event, topic)
	r.metrics.RecordRoutingDecision(string(event.Status))

	body, err := event.Marshal()
	if err != nil {
		return err
	}
	return r.publisher.Publish(ctx, topic, body)
}

// FinishSuccess terminates a saga whose last step completed: the terminal
// envelope gets a closing history record and is delivered to the
// originator's notify topic.
func (r *Router) FinishSuccess(ctx context.Context, event Event) error {
	next := event.WithOutcome(SourceOrchestrator, StatusSuccess, "saga finished successfully")
	return r.notifyFinished(ctx, next)
}

// FinishFail terminates a saga whose compensations have fully cascaded.
func (r *Router) FinishFail(ctx context.Context, event Event) error {
	next := event.WithOutcome(SourceOrchestrator, StatusFail, "saga finished with errors")
	return r.notifyFinished(ctx, next)
}

func (r *Router) notifyFinished(ctx context.Context, event Event) error {
	r.logger.InfoContext(ctx, "saga finished",
		"saga_id", event.SagaID,
		"transaction_id", event.TransactionID,
		"status", event.Status,
		"history_len", len(event.History),
	)
	r.metrics.RecordSagaFinished(string(event.Status))

	body, err := event.Marshal()
	if err != nil {
		return err
	}
	return r.publisher.Publish(ctx, TopicNotifyEnding, body)
}

// logTransition emits the single observable side effect of routing besides
// the publish itself. The switch is exhaustive over the closed status set.
func (r *Router) logTransition(ctx context.Context, event Event, topic string) {
	fields := []any{
		"source", event.Source,
		"status", event.Status,
		"topic", topic,
		"saga_id", event.SagaID,
		"transaction_id", event.TransactionID,
	}
	switch event.Status {
	case StatusSuccess:
		r.logger.InfoContext(ctx, "saga advancing to next step", fields...)
	case StatusRollbackPending:
		r.logger.InfoContext(ctx, "saga rolling back current step", fields...)
	case StatusFail:
		r.logger.InfoContext(ctx, "saga rolling back previous step", fields...)
	}
}

func (r *Router) recordRoutingError(err error) {
	switch {
	case err == ErrInvalidEvent:
		r.metrics.RecordRoutingError("invalid_event")
	case err == ErrNoRoute:
		r.metrics.RecordRoutingError("no_route")
	default:
		r.metrics.RecordRoutingError("other")
	}
}

// Subscriber delivers topic subscriptions; MemoryBus satisfies it.
type Subscriber interface {
	Subscribe(pattern string, buffer int) (*eventbus.Subscription, error)
}

// OrchestratorWorker runs the router as a message-driven worker over the
// orchestrator's four inbound topics.
type OrchestratorWorker struct {
	router *Router
	bus    Subscriber
	logger logger.Logger
}

// NewOrchestratorWorker creates the orchestrator worker.
func NewOrchestratorWorker(router *Router, bus Subscriber, log logger.Logger) (*OrchestratorWorker, error) {
	if router == nil {
		return nil, fmt.Errorf("saga: router cannot be nil")
	}
	if bus == nil {
		return nil, fmt.Errorf("saga: subscriber cannot be nil")
	}
	if log == nil {
		log = logger.Global()
	}
	return &OrchestratorWorker{router: router, bus: bus, logger: log}, nil
}

// Run consumes the orchestrator topics until the context is cancelled.
// Each message is handled independently; a failed message is logged and
// dropped to the transport's redelivery policy, it never stops the worker.
func (w *OrchestratorWorker) Run(ctx context.Context) error {
	start, err := w.bus.Subscribe(TopicStart, 0)
	if err != nil {
		return err
	}
	defer start.Close()

	inbound, err := w.bus.Subscribe(TopicOrchestrator, 0)
	if err != nil {
		return err
	}
	defer inbound.Close()

	finishSuccess, err := w.bus.Subscribe(TopicFinishSuccess, 0)
	if err != nil {
		return err
	}
	defer finishSuccess.Close()

	finishFail, err := w.bus.Subscribe(TopicFinishFail, 0)
	if err != nil {
		return err
	}
	defer finishFail.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-start.C():
			w.handle(ctx, msg.Payload, w.router.Start)
		case msg := <-inbound.C():
			w.handle(ctx, msg.Payload, w.router.Route)
		case msg := <-finishSuccess.C():
			w.handle(ctx, msg.Payload, w.router.FinishSuccess)
		case msg := <-finishFail.C():
			w.handle(ctx, msg.Payload, w.router.FinishFail)
		}
	}
}

func (w *OrchestratorWorker) handle(ctx context.Context, payload []byte, fn func(context.Context, Event) error) {
	event, err := UnmarshalEvent(payload)
	if err != nil {
		w.logger.ErrorContext(ctx, "discarding undecodable saga event", "error", err)
		return
	}
	if err := fn(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "saga event handling failed",
			"error", err,
			"saga_id", event.SagaID,
			"transaction_id", event.TransactionID,
		)
	}
}
