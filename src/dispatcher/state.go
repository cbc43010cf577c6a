package dispatcher

import (
	"time"

	"github.com/google/uuid"

	"ctrl-ai/src/capture"
	"ctrl-ai/src/llm"
	"ctrl-ai/src/review"
)

// State is the position of one trigger in the pipeline.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateCaptureFailed
	StatePromptCancelled
	StateDispatching
	StateProcessing
	StateReviewPending
	StateAccepted
	StateRejected
	StateShown
	StateInjecting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateCaptureFailed:
		return "capture-failed"
	case StatePromptCancelled:
		return "prompt-cancelled"
	case StateDispatching:
		return "dispatching"
	case StateProcessing:
		return "processing"
	case StateReviewPending:
		return "review-pending"
	case StateAccepted:
		return "accepted"
	case StateRejected:
		return "rejected"
	case StateShown:
		return "shown"
	case StateInjecting:
		return "injecting"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	switch s {
	case StateCaptureFailed, StatePromptCancelled, StateRejected, StateShown, StateDone:
		return true
	}
	return false
}

// TriggerContext carries one hotkey activation through the pipeline. It is
// owned by the goroutine running it and never shared.
type TriggerContext struct {
	ID          string
	Mode        llm.Mode
	StartedAt   time.Time
	Snapshot    capture.Snapshot
	Instruction string
	Result      llm.Result
	Decision    review.Decision
	State       State
	History     []State
	// Injected is the text handed to the injector, empty when nothing was pasted.
	Injected string
}

func newTriggerContext(mode llm.Mode) *TriggerContext {
	return &TriggerContext{
		ID:        uuid.NewString(),
		Mode:      mode,
		StartedAt: time.Now(),
		State:     StateIdle,
		History:   []State{StateIdle},
	}
}
