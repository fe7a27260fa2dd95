package saga

import (
	"encoding/json"
	"fmt"
)

// Status is the outcome a step stamps on the envelope before re-emitting it.
// The set is closed: routing, logging, and duplicate re-derivation all switch
// exhaustively over these three values.
type Status string

const (
	// StatusSuccess marks a completed forward step.
	StatusSuccess Status = "SUCCESS"
	// StatusRollbackPending marks a failed forward step that must first
	// compensate itself before the failure cascades backward.
	StatusRollbackPending Status = "ROLLBACK_PENDING"
	// StatusFail marks a compensated step; routing sends it to the previous
	// step's rollback topic, or to the terminal fail topic at the saga head.
	StatusFail Status = "FAIL"
)

// Valid reports whether s is one of the closed status values.
func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusRollbackPending, StatusFail:
		return true
	default:
		return false
	}
}

// UnmarshalJSON rejects statuses outside the closed set so malformed
// envelopes fail at the decode boundary, not deep inside routing.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	status := Status(raw)
	if raw != "" && !status.Valid() {
		return fmt.Errorf("saga: unknown status %q", raw)
	}
	*s = status
	return nil
}
