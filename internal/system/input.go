package system

import (
	"maps"
	"time"

	coresys "github.com/vibeforge/engine/internal/core/system"
	"github.com/vibeforge/engine/internal/scripting"
)

// InputSource reports device state once per frame (editor viewport, replay
// file, headless runner).
type InputSource interface {
	Poll() scripting.Input
}

// InputFunc adapts a function to InputSource.
type InputFunc func() scripting.Input

func (f InputFunc) Poll() scripting.Input { return f() }

// InputSystem takes the frame's input snapshot so every script in the frame
// sees the same state. Phase 0 (Input).
type InputSystem struct {
	source   InputSource
	snapshot scripting.Input
}

// NewInputSystem returns a system polling source. A nil source yields an
// empty snapshot every frame.
func NewInputSystem(source InputSource) *InputSystem {
	return &InputSystem{source: source}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	if s.source == nil {
		s.snapshot = scripting.Input{}
		return
	}
	in := s.source.Poll()
	in.Keys = maps.Clone(in.Keys)
	in.MouseButtons = maps.Clone(in.MouseButtons)
	s.snapshot = in
}

// Snapshot returns the state captured at the start of the current frame.
func (s *InputSystem) Snapshot() scripting.Input {
	return s.snapshot
}
