package system

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vibeforge/engine/internal/core/ecs"
	coresys "github.com/vibeforge/engine/internal/core/system"
	"github.com/vibeforge/engine/internal/scene"
)

// SceneStore persists exported scenes. Implemented by persist.SceneRepo.
type SceneStore interface {
	Save(ctx context.Context, doc *scene.Document, changes int) (int64, error)
}

// PersistenceSystem periodically exports the world and saves it when it
// changed since the last save. Phase 5 (Persist).
type PersistenceSystem struct {
	world     *ecs.World
	store     SceneStore
	name      string
	log       *zap.Logger
	tickCount int
	interval  int    // autosave every N frames
	last      []byte // JSON of the last saved document
	saves     int
}

func NewPersistenceSystem(world *ecs.World, store SceneStore, sceneName string, intervalFrames int, log *zap.Logger) *PersistenceSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &PersistenceSystem{
		world:    world,
		store:    store,
		name:     sceneName,
		log:      log,
		interval: intervalFrames,
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	if err := s.save(false); err != nil {
		s.log.Error("scene autosave failed", zap.String("scene", s.name), zap.Error(err))
	}
}

// SaveNow saves the scene immediately even if nothing changed. Called on
// graceful shutdown.
func (s *PersistenceSystem) SaveNow() error {
	return s.save(true)
}

// Saves returns how many saves reached the store.
func (s *PersistenceSystem) Saves() int { return s.saves }

func (s *PersistenceSystem) save(force bool) error {
	doc := scene.ExportWorld(s.world, s.name)
	data, err := scene.Encode(doc, scene.FormatJSON)
	if err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	changes := 0
	if s.last != nil {
		changes, err = scene.Changes(s.last, data)
		if err != nil {
			return err
		}
		if changes == 0 && !force {
			return nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rev, err := s.store.Save(ctx, doc, changes)
	if err != nil {
		return err
	}
	s.last = data
	s.saves++
	s.log.Info("scene saved",
		zap.String("scene", s.name),
		zap.Int64("revision", rev),
		zap.Int("changes", changes),
		zap.Int("roots", len(doc.Entities)))
	return nil
}
