// Package idempotency provides the durable per-step record that protects
// domain actions from duplicate message deliveries and drives compensation
// lookups.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no record exists for the key.
var ErrNotFound = errors.New("idempotency: record not found")

// Record is one row per (saga id, transaction id) at one step service.
// Created on first processing of a transaction; Succeeded flips to false
// when a rollback later undoes the step.
type Record struct {
	SagaID        string    `json:"saga_id"`
	TransactionID string    `json:"transaction_id"`
	Succeeded     bool      `json:"succeeded"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewRecord creates a record with creation and update timestamps set.
func NewRecord(sagaID, transactionID string, succeeded bool) *Record {
	now := time.Now().UTC()
	return &Record{
		SagaID:        sagaID,
		TransactionID: transactionID,
		Succeeded:     succeeded,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Store persists idempotency records for one step service. Put has upsert
// semantics; concurrent upserts for the same key must not corrupt state.
// Read-your-writes consistency is required within a single service instance.
type Store interface {
	Exists(ctx context.Context, sagaID, transactionID string) (bool, error)
	Get(ctx context.Context, sagaID, transactionID string) (*Record, error)
	Put(ctx context.Context, record *Record) error
}

// Key builds the canonical store key for one saga transaction.
func Key(sagaID, transactionID string) string {
	return fmt.Sprintf("%s:%s", sagaID, transactionID)
}
