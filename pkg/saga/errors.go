package saga

import "errors"

var (
	// ErrInvalidEvent is returned when an envelope is missing the source or
	// status fields the router keys on. Surfaced to the caller, never
	// silently retried.
	ErrInvalidEvent = errors.New("saga: event source and status must be informed")

	// ErrNoRoute is returned when no routing table entry matches. The saga
	// graph is incomplete: a fatal configuration error, not a transient
	// condition, so processing of the message must halt.
	ErrNoRoute = errors.New("saga: no route for event source and status")
)
