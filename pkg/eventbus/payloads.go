package eventbus

import "github.com/checkdag/checkdag/pkg/model"

// Payload shapes for each Topic (spec.md §4.8's payload table).

type CheckScheduledPayload struct {
	CheckID string
}

type CheckStartedPayload struct {
	CheckID   string
	Iteration int
}

type CheckCompletedPayload struct {
	CheckID   string
	Iteration int
	Result    *model.ReviewSummary
}

type CheckErroredPayload struct {
	CheckID string
	Error   error
}

type StateTransitionPayload struct {
	From string
	To   string
}

type HumanInputRequestedPayload struct {
	CheckID  string
	Prompt   string
	Channel  string
	ThreadTS string
}

type SnapshotSavedPayload struct {
	Channel  string
	ThreadTS string
	FilePath string
}

type ShutdownPayload struct {
	Error error
}

// Run states for StateTransitionPayload.From/To (spec.md §4.8).
const (
	StateIdle      = "Idle"
	StateRunning   = "Running"
	StateCompleted = "Completed"
	StateError     = "Error"
)
