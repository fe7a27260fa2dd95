// Package payment implements the payment saga step.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/orderflow/orderflow/pkg/order"
)

// MinAmount is the smallest order total the payment step accepts.
const MinAmount = 0.1

// Status is the lifecycle state of a payment record.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusSuccess  Status = "SUCCESS"
	StatusRefunded Status = "REFUNDED"
)

// Record is the payment persisted per saga transaction.
type Record struct {
	OrderID       string    `json:"order_id"`
	TransactionID string    `json:"transaction_id"`
	TotalAmount   float64   `json:"total_amount"`
	TotalItems    int       `json:"total_items"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Service charges orders and refunds them on compensation.
type Service struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewService creates a payment service.
func NewService() *Service {
	return &Service{records: make(map[string]*Record)}
}

// Execute computes the order totals and records a successful payment.
func (s *Service) Execute(ctx context.Context, payload json.RawMessage) (string, error) {
	var ord order.Order
	if err := json.Unmarshal(payload, &ord); err != nil {
		return "", fmt.Errorf("payment: decode order: %w", err)
	}

	amount, items := ord.Totals()
	if amount < MinAmount {
		return "", fmt.Errorf("payment: amount %.2f is below the minimum of %.2f", amount, MinAmount)
	}

	now := time.Now().UTC()
	rec := &Record{
		OrderID:       ord.ID,
		TransactionID: ord.TransactionID,
		TotalAmount:   amount,
		TotalItems:    items,
		Status:        StatusSuccess,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.mu.Lock()
	s.records[recordKey(ord.ID, ord.TransactionID)] = rec
	s.mu.Unlock()

	return fmt.Sprintf("payment of %.2f realized for order %s (%d items)", amount, ord.ID, items), nil
}

// Compensate refunds the payment recorded for this saga transaction.
// A missing record means the charge never happened; nothing to refund.
func (s *Service) Compensate(ctx context.Context, payload json.RawMessage) (string, error) {
	var ord order.Order
	if err := json.Unmarshal(payload, &ord); err != nil {
		return "", fmt.Errorf("payment: decode order: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recordKey(ord.ID, ord.TransactionID)]
	if !ok {
		return fmt.Sprintf("no payment found to refund for order %s", ord.ID), nil
	}
	rec.Status = StatusRefunded
	rec.UpdatedAt = time.Now().UTC()

	return fmt.Sprintf("payment of %.2f refunded for order %s", rec.TotalAmount, ord.ID), nil
}

// Find returns the payment record for an order transaction, if any.
func (s *Service) Find(orderID, transactionID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[recordKey(orderID, transactionID)]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

func recordKey(orderID, transactionID string) string {
	return orderID + ":" + transactionID
}
