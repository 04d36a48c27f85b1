package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/vibeforge/engine/internal/core/ecs"
	coresys "github.com/vibeforge/engine/internal/core/system"
)

// CleanupSystem flushes the deferred entity destruction queue at frame end.
// Hooks see every entity of a destroyed subtree, leaves first, while it is
// still readable. Phase 6 (Cleanup).
type CleanupSystem struct {
	world *ecs.World
	hooks []func(ecs.EntityID)
	log   *zap.Logger
}

func NewCleanupSystem(world *ecs.World, log *zap.Logger, hooks ...func(ecs.EntityID)) *CleanupSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &CleanupSystem{world: world, hooks: hooks, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	if s.world.PendingDestruction() == 0 {
		return
	}
	removed := s.world.FlushDestroyQueue(func(id ecs.EntityID) {
		for _, h := range s.hooks {
			h(id)
		}
	})
	s.log.Debug("entities destroyed", zap.Int("count", removed))
}
