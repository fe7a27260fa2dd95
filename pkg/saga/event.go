// Package saga implements the order-fulfillment saga coordination protocol:
// the event envelope carried through the message pipeline, the
// (source, status) -> topic routing table, the orchestrator router, and the
// step execution template every participant instantiates.
package saga

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// History is one append-only audit record. Its position in Event.History is
// the causal order of processing and must survive serialization unchanged.
type History struct {
	Source    Source    `json:"source"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is the envelope carrying one in-flight saga message. The saga has no
// central state store: identity, current outcome, business payload, and the
// full audit trail travel inside the envelope. Events are immutable by
// convention; every hop derives a new version via the With* helpers, which
// append exactly one history record.
type Event struct {
	ID            string          `json:"id"`
	SagaID        string          `json:"saga_id"`
	TransactionID string          `json:"transaction_id"`
	Source        Source          `json:"source"`
	Status        Status          `json:"status"`
	Payload       json.RawMessage `json:"payload"`
	History       []History       `json:"history"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewEvent creates the initial envelope for one saga attempt. SagaID stays
// constant across attempts; each attempt gets a fresh TransactionID.
func NewEvent(sagaID, transactionID string, payload any) (Event, error) {
	if sagaID == "" {
		return Event{}, fmt.Errorf("saga: saga id is required")
	}
	if transactionID == "" {
		return Event{}, fmt.Errorf("saga: transaction id is required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("saga: marshal payload: %w", err)
	}

	return Event{
		ID:            uuid.NewString(),
		SagaID:        sagaID,
		TransactionID: transactionID,
		Payload:       body,
		History:       make([]History, 0),
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// WithOutcome derives the next envelope version: new event id, the given
// source and status, and one appended history record. The receiver is left
// untouched; prior history entries are never edited or reordered.
func (e Event) WithOutcome(source Source, status Status, message string) Event {
	next := e.clone()
	next.ID = uuid.NewString()
	next.Source = source
	next.Status = status
	next.CreatedAt = time.Now().UTC()
	next.History = append(next.History, History{
		Source:    source,
		Status:    status,
		Message:   message,
		CreatedAt: next.CreatedAt,
	})
	return next
}

// Routable reports whether the envelope carries the fields the router needs.
func (e Event) Routable() bool {
	return e.Source != "" && e.Status.Valid()
}

// Marshal encodes the envelope for the wire.
func (e Event) Marshal() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("saga: marshal event: %w", err)
	}
	return body, nil
}

// UnmarshalEvent decodes an envelope received from a topic.
func UnmarshalEvent(data []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("saga: invalid event json: %w", err)
	}
	return event, nil
}

func (e Event) clone() Event {
	next := e
	next.Payload = append(json.RawMessage(nil), e.Payload...)
	next.History = make([]History, len(e.History), len(e.History)+1)
	copy(next.History, e.History)
	return next
}
