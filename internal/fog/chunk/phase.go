package chunk

import "fmt"

// Phase is the scheduling state shared by a chunk's main-side Tick and its worker
type Phase int32

const (
	// PhaseBlending - presenting the last frame, waiting for the update interval
	PhaseBlending Phase = iota

	// PhaseNeedsUpdate - the worker should run a pass
	PhaseNeedsUpdate

	// PhaseUpdating - the worker owns the buffers and is running a pass
	PhaseUpdating

	// PhasePublishPending - a frame is in the handoff slot for the main side
	PhasePublishPending
)

// String returns the string representation of a Phase
func (p Phase) String() string {
	switch p {
	case PhaseBlending:
		return "Blending"
	case PhaseNeedsUpdate:
		return "NeedsUpdate"
	case PhaseUpdating:
		return "Updating"
	case PhasePublishPending:
		return "PublishPending"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// AllowedTransitions returns the phases this phase can move to
func (p Phase) AllowedTransitions() []Phase {
	switch p {
	case PhaseBlending:
		return []Phase{PhaseNeedsUpdate}
	case PhaseNeedsUpdate:
		return []Phase{PhaseUpdating}
	case PhaseUpdating:
		return []Phase{PhasePublishPending}
	case PhasePublishPending:
		return []Phase{PhaseBlending}
	default:
		return []Phase{}
	}
}

// CanTransitionTo checks if a transition from this phase to the target phase is allowed
func (p Phase) CanTransitionTo(target Phase) bool {
	for _, phase := range p.AllowedTransitions() {
		if phase == target {
			return true
		}
	}
	return false
}
