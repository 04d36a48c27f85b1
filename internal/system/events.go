package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/vibeforge/engine/internal/core/event"
	coresys "github.com/vibeforge/engine/internal/core/system"
)

// EventDispatchSystem delivers the events emitted during the previous frame.
// Phase 1 (PreUpdate). Script handlers run here, so their buffered writes
// land in this frame's write-back.
type EventDispatchSystem struct {
	bus *event.Bus
	log *zap.Logger
}

func NewEventDispatchSystem(bus *event.Bus, log *zap.Logger) *EventDispatchSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventDispatchSystem{bus: bus, log: log}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	if n := s.bus.DispatchAll(); n > 0 {
		s.log.Debug("events dispatched", zap.Int("deliveries", n))
	}
}
