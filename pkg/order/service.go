package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/pkg/logger"
	"github.com/orderflow/orderflow/pkg/saga"
)

// Service creates orders and starts a saga for each one.
type Service struct {
	store     Store
	publisher saga.Publisher
	log       logger.Logger
}

// NewService creates an order service.
func NewService(store Store, publisher saga.Publisher, log logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("order: store is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("order: publisher is required")
	}
	if log == nil {
		return nil, fmt.Errorf("order: logger is required")
	}
	return &Service{store: store, publisher: publisher, log: log}, nil
}

// Create persists a new order and publishes its saga start event.
func (s *Service) Create(ctx context.Context, products []OrderProduct) (Order, error) {
	ord := Order{
		ID:            uuid.NewString(),
		Products:      products,
		CreatedAt:     time.Now().UTC(),
		TransactionID: uuid.NewString(),
	}
	ord.TotalAmount, ord.TotalItems = ord.Totals()

	if err := ord.Validate(); err != nil {
		return Order{}, err
	}
	if err := s.store.SaveOrder(ctx, ord); err != nil {
		return Order{}, err
	}

	event, err := saga.NewEvent(ord.ID, ord.TransactionID, ord)
	if err != nil {
		return Order{}, fmt.Errorf("order: build start event: %w", err)
	}
	data, err := event.Marshal()
	if err != nil {
		return Order{}, fmt.Errorf("order: marshal start event: %w", err)
	}
	if err := s.publisher.Publish(ctx, saga.TopicStart, data); err != nil {
		return Order{}, fmt.Errorf("order: publish start event: %w", err)
	}

	s.log.InfoContext(ctx, "order created, saga started",
		"order_id", ord.ID,
		"transaction_id", ord.TransactionID,
		"total_amount", ord.TotalAmount,
		"total_items", ord.TotalItems,
	)
	return ord, nil
}

// Get returns a stored order.
func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	return s.store.GetOrder(ctx, id)
}

// SagaOutcome returns the terminal saga event recorded for an order.
func (s *Service) SagaOutcome(ctx context.Context, orderID string) (saga.Event, error) {
	return s.store.GetOutcome(ctx, orderID)
}

// NotifyWorker consumes the notify topic and records terminal saga events.
type NotifyWorker struct {
	store Store
	bus   saga.Subscriber
	log   logger.Logger

	buffer int
}

// NewNotifyWorker creates a worker recording saga outcomes for their orders.
func NewNotifyWorker(store Store, bus saga.Subscriber, log logger.Logger, buffer int) (*NotifyWorker, error) {
	if store == nil {
		return nil, fmt.Errorf("order: store is required")
	}
	if bus == nil {
		return nil, fmt.Errorf("order: subscriber is required")
	}
	if log == nil {
		return nil, fmt.Errorf("order: logger is required")
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &NotifyWorker{store: store, bus: bus, log: log, buffer: buffer}, nil
}

// Run consumes the notify topic until the context is cancelled.
func (w *NotifyWorker) Run(ctx context.Context) error {
	sub, err := w.bus.Subscribe(saga.TopicNotifyEnding, w.buffer)
	if err != nil {
		return fmt.Errorf("order: subscribe %s: %w", saga.TopicNotifyEnding, err)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-sub.C():
			if !ok {
				return nil
			}
			w.handle(ctx, msg.Payload)
		}
	}
}

func (w *NotifyWorker) handle(ctx context.Context, payload []byte) {
	event, err := saga.UnmarshalEvent(payload)
	if err != nil {
		w.log.ErrorContext(ctx, "dropping undecodable notify event", "error", err)
		return
	}
	if err := w.store.SaveOutcome(ctx, event); err != nil {
		w.log.ErrorContext(ctx, "failed to record saga outcome",
			"error", err,
			"order_id", event.SagaID,
			"transaction_id", event.TransactionID,
		)
		return
	}
	w.log.InfoContext(ctx, "saga finished",
		"order_id", event.SagaID,
		"transaction_id", event.TransactionID,
		"status", string(event.Status),
		"history_len", len(event.History),
	)
}
