package models

import "time"

// BreakerState is a per-target circuit breaker's position in its state
// machine (spec.md §4.5).
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"
	BreakerOpen     BreakerState = "OPEN"
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// BreakerSnapshot is a read-only view of one target's breaker, serialized
// into the state journal and surfaced in the final report's run metadata.
type BreakerSnapshot struct {
	Target        string       `json:"target"`
	State         BreakerState `json:"state"`
	FailureCount  int          `json:"failure_count"`
	OpenedAt      time.Time    `json:"opened_at,omitempty"`
	CooldownUntil time.Time    `json:"cooldown_until,omitempty"`
	TripCount     int          `json:"trip_count"`
}

// JournalRecord is the on-disk shape of a Run's resumable state, written
// atomically by pkg/state after every stage transition.
type JournalRecord struct {
	RunID      string                 `json:"run_id"`
	Target     Target                 `json:"target"`
	ConfigHash string                 `json:"config_hash"`
	StartedAt  time.Time              `json:"started_at"`
	Stages     map[string]StageRecord `json:"stages"`
	Breakers   map[string]BreakerSnapshot `json:"breakers,omitempty"`
}
