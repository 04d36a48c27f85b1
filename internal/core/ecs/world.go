package ecs

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Options configures a World. The zero value is usable.
type Options struct {
	HotReloadComponents bool
	QueryMaxAge         time.Duration
	MaxIDAttempts       int
	NewPersistentID     func() string
	Clock               func() time.Time
}

// World is the top-level container: it owns the entity pool, the component
// registry, the entity store, and a deferred destruction queue flushed by
// CleanupSystem each frame. Worlds share no state, so tests can build as many
// as they like.
type World struct {
	pool         *EntityPool
	registry     *Registry
	store        *EntityStore
	destroyQueue []EntityID
	log          *zap.Logger
}

func NewWorld(opts Options, log *zap.Logger) (*World, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pool := NewEntityPool()
	reg := NewRegistry(pool.Alive, RegistryOptions{
		HotReload:   opts.HotReloadComponents,
		QueryMaxAge: opts.QueryMaxAge,
		Clock:       opts.Clock,
	}, log.Named("registry"))
	store, err := NewEntityStore(pool, reg, EntityStoreOptions{
		MaxIDAttempts:   opts.MaxIDAttempts,
		NewPersistentID: opts.NewPersistentID,
	}, log.Named("entities"))
	if err != nil {
		return nil, fmt.Errorf("new world: %w", err)
	}
	return &World{
		pool:         pool,
		registry:     reg,
		store:        store,
		destroyQueue: make([]EntityID, 0, 64),
		log:          log,
	}, nil
}

func (w *World) Pool() *EntityPool      { return w.pool }
func (w *World) Registry() *Registry    { return w.registry }
func (w *World) Entities() *EntityStore { return w.store }

func (w *World) Alive(id EntityID) bool {
	return w.store.Exists(id)
}

// MarkForDestruction queues an entity for end-of-frame cleanup.
func (w *World) MarkForDestruction(id EntityID) {
	w.destroyQueue = append(w.destroyQueue, id)
}

func (w *World) PendingDestruction() int {
	return len(w.destroyQueue)
}

// FlushDestroyQueue destroys all queued entities with their subtrees.
// beforeDestroy, if set, sees every doomed entity (descendants first) while it
// is still alive. Returns the number of entities removed.
func (w *World) FlushDestroyQueue(beforeDestroy func(EntityID)) int {
	removed := 0
	for _, id := range w.destroyQueue {
		if !w.store.Exists(id) {
			continue // already gone via an ancestor or a direct delete
		}
		subtree := w.store.Descendants(id)
		if beforeDestroy != nil {
			for i := len(subtree) - 1; i >= 0; i-- {
				beforeDestroy(subtree[i])
			}
			beforeDestroy(id)
		}
		if w.store.Delete(id) {
			removed += 1 + len(subtree)
		}
	}
	w.destroyQueue = w.destroyQueue[:0]
	return removed
}
