package system

import "time"

// Phase defines execution ordering within a single frame.
type Phase int

const (
	PhaseInput      Phase = iota // 0: collect the input snapshot
	PhasePreUpdate               // 1: deliver last frame's events
	PhaseScripting               // 2: run entity scripts; writes are buffered
	PhaseWriteBack               // 3: single flush of the mutation buffer
	PhasePostUpdate              // 4: physics/render consumers read committed state
	PhasePersist                 // 5: autosave
	PhaseCleanup                 // 6: destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre-update"
	case PhaseScripting:
		return "scripting"
	case PhaseWriteBack:
		return "write-back"
	case PhasePostUpdate:
		return "post-update"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every frame system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
