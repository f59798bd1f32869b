package rtb

import "fmt"

// State is the position of an Element in the capture state machine.
//
//	Idle ──► Preparing ──► Rendering ──► Rendered ──► Committed ──► Drawing ──► Idle
//	              ▲             │
//	              └─────────────┘ (subtree not ready, retried next frame)
//
// Any state may drop straight to Idle through Element.FailRender.
type State int

const (
	// StateIdle means no capture is in flight. Elements with cached
	// hardware results sit in the manager's idle list.
	StateIdle State = iota

	// StatePreparing means a capture was requested and waits to be picked up.
	StatePreparing

	// StateRendering means the element was picked up this frame.
	StateRendering

	// StateRendered means the subtree was ready and recorded.
	StateRendered

	// StateCommitted means PreCommit handed the element its completion event.
	StateCommitted

	// StateDrawing means the frame's composition batch owns the element.
	StateDrawing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePreparing:
		return "Preparing"
	case StateRendering:
		return "Rendering"
	case StateRendered:
		return "Rendered"
	case StateCommitted:
		return "Committed"
	case StateDrawing:
		return "Drawing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IsValid reports whether s is one of the defined states.
func (s State) IsValid() bool {
	return s >= StateIdle && s <= StateDrawing
}
