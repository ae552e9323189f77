package domain

import (
	"time"
)

// IDs

// ContainerID is the runtime's opaque container identifier.
type ContainerID string

// JobName is the orchestrator-level job derived from a container name.
type JobName string

// TrackedContainer is the per-container activity record. One exists iff the
// container was observed at least once and has neither triggered a stop
// attempt nor disappeared from discovery.
type TrackedContainer struct {
	ID             ContainerID `json:"id"`
	LastTotalBytes int64       `json:"last_total_bytes"`
	LastActiveAt   time.Time   `json:"last_active_at"`
}

// StopOutcome classifies the result of an orchestrator stop call.

type StopOutcome string

const (
	StopSuccess          StopOutcome = "SUCCESS"
	StopTransportFailure StopOutcome = "TRANSPORT_FAILURE"
	StopAuthFailure      StopOutcome = "AUTH_FAILURE"
	StopNotFound         StopOutcome = "NOT_FOUND"
	StopOtherFailure     StopOutcome = "OTHER_FAILURE"
	// StopSkipped marks a dry-run attempt that never left the process.
	StopSkipped StopOutcome = "SKIPPED"
)

// Failed reports whether the outcome represents a stop that did not land.
func (o StopOutcome) Failed() bool {
	return o == StopTransportFailure || o == StopAuthFailure || o == StopOtherFailure
}
