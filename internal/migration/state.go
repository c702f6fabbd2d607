package migration

// State is a step of the engine state machine
type State string

// Engine states. A run moves forward through these in order and may jump to
// StateFailed from any of them. StatePending is used by callers that queue a
// run before the engine picks it up.
const (
	StateIdle         State = "idle"
	StatePending      State = "pending"
	StateConnecting   State = "connecting"
	StateExtracting   State = "extracting"
	StateTransforming State = "transforming"
	StateLoading      State = "loading"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

// Terminal reports whether no further transitions follow s
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Result statuses
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// StateObserver is notified of every state transition of a run
type StateObserver func(from, to State)
