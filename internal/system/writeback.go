package system

import (
	"slices"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vibeforge/engine/internal/core/ecs"
	"github.com/vibeforge/engine/internal/core/mutation"
	coresys "github.com/vibeforge/engine/internal/core/system"
	"github.com/vibeforge/engine/internal/scene"
	"github.com/vibeforge/engine/internal/scripting"
)

// ReservedSink consumes buffered fields whose name carries the reserved
// prefix (for example a physics bridge owning velocity state).
type ReservedSink interface {
	ApplyReserved(entity ecs.EntityID, typeID ecs.TypeID, field string, value any)
}

// WriteBackStats describes the last write-back pass.
type WriteBackStats struct {
	Commands int
	Writes   int
	Reserved int
	Dropped  int
}

// WriteBackSystem applies everything scripts asked for during the frame:
// structural commands first, in queue order, then one drain of the mutation
// buffer into the registry. Phase 3 (WriteBack).
type WriteBackSystem struct {
	world    *ecs.World
	buffer   *mutation.Buffer
	commands *mutation.Commands
	prefix   string
	sink     ReservedSink
	prefabs  scripting.PrefabSource
	stats    WriteBackStats
	log      *zap.Logger
}

// NewWriteBackSystem wires the pass. sink and prefabs may be nil; without
// prefabs every instantiate command is rejected.
func NewWriteBackSystem(world *ecs.World, buffer *mutation.Buffer, commands *mutation.Commands,
	reservedPrefix string, sink ReservedSink, prefabs scripting.PrefabSource, log *zap.Logger) *WriteBackSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &WriteBackSystem{
		world:    world,
		buffer:   buffer,
		commands: commands,
		prefix:   reservedPrefix,
		sink:     sink,
		prefabs:  prefabs,
		log:      log,
	}
}

func (s *WriteBackSystem) Phase() coresys.Phase { return coresys.PhaseWriteBack }

func (s *WriteBackSystem) Update(_ time.Duration) {
	s.stats = WriteBackStats{}
	for _, cmd := range s.commands.Drain() {
		s.apply(cmd)
		s.stats.Commands++
	}
	s.buffer.Flush(s.write)
	if s.stats.Dropped > 0 {
		s.log.Debug("write-back dropped writes", zap.Int("count", s.stats.Dropped))
	}
}

// Stats returns the counters of the last Update.
func (s *WriteBackSystem) Stats() WriteBackStats { return s.stats }

func (s *WriteBackSystem) write(entity ecs.EntityID, typeID ecs.TypeID, field string, value any) {
	if s.prefix != "" && strings.HasPrefix(field, s.prefix) {
		if s.sink != nil {
			s.sink.ApplyReserved(entity, typeID, field, value)
		}
		s.stats.Reserved++
		return
	}
	reg := s.world.Registry()
	current, ok := reg.ComponentFields(entity, typeID)
	if !ok {
		// entity destroyed or component removed after the write was queued
		s.stats.Dropped++
		return
	}
	current[field] = mergeValue(current[field], value)
	if !reg.UpdateComponent(entity, typeID, current) {
		s.stats.Dropped++
		return
	}
	s.stats.Writes++
}

// mergeValue merges object values one level deep; everything else replaces.
func mergeValue(old, value any) any {
	next, ok := asObject(value)
	if !ok {
		return value
	}
	prev, ok := asObject(old)
	if !ok {
		return value
	}
	out := make(map[string]any, len(prev)+len(next))
	for k, v := range prev {
		out[k] = v
	}
	for k, v := range next {
		out[k] = v
	}
	return out
}

func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case ecs.Fields:
		return t, true
	}
	return nil, false
}

func (s *WriteBackSystem) apply(cmd mutation.Command) {
	store := s.world.Entities()
	switch cmd.Kind {
	case mutation.KindCreate:
		s.create(cmd)
	case mutation.KindClone:
		s.clone(cmd)
	case mutation.KindInstantiate:
		s.instantiate(cmd)
	case mutation.KindDestroy:
		if store.Exists(cmd.Entity) {
			s.world.MarkForDestruction(cmd.Entity)
		}
	case mutation.KindSetParent:
		if !store.SetParent(cmd.Entity, cmd.Parent) {
			s.reject(cmd, "invalid reparent")
		}
	case mutation.KindSetActive:
		if !store.SetActive(cmd.Entity, cmd.Active) {
			s.reject(cmd, "entity not found")
		}
	case mutation.KindAttach:
		s.attach(cmd.Entity, cmd.Components)
	case mutation.KindRemoveComponent:
		if !s.world.Registry().RemoveComponent(cmd.Entity, cmd.Component) {
			s.reject(cmd, "component not attached")
		}
	}
}

func (s *WriteBackSystem) reject(cmd mutation.Command, reason string) {
	s.log.Debug("script command rejected",
		zap.Stringer("kind", cmd.Kind),
		zap.Uint64("entity", uint64(cmd.Entity)),
		zap.Uint64("issuer", uint64(cmd.Issuer)),
		zap.String("reason", reason))
}

func (s *WriteBackSystem) create(cmd mutation.Command) {
	store := s.world.Entities()
	if _, err := store.CreateReserved(cmd.Entity, cmd.Name, cmd.Parent, ""); err != nil {
		store.Release(cmd.Entity)
		s.log.Warn("script entity creation failed",
			zap.String("name", cmd.Name),
			zap.Uint64("issuer", uint64(cmd.Issuer)),
			zap.Error(err))
		return
	}
	reg := s.world.Registry()
	for _, t := range sortedTypes(cmd.Components) {
		reg.AddComponent(cmd.Entity, t, cmd.Components[t])
	}
}

// instantiate creates the prefab root under the reserved id and imports the
// prefab's entities beneath it. A prefab that fails to import leaves nothing
// behind.
func (s *WriteBackSystem) instantiate(cmd mutation.Command) {
	store := s.world.Entities()
	if s.prefabs == nil {
		store.Release(cmd.Entity)
		s.reject(cmd, "no prefab source")
		return
	}
	doc, err := s.prefabs.Load(cmd.Prefab)
	if err != nil {
		store.Release(cmd.Entity)
		s.log.Warn("prefab instantiation failed", zap.String("prefab", cmd.Prefab), zap.Error(err))
		return
	}
	s.create(cmd)
	if !store.Exists(cmd.Entity) {
		return
	}
	if _, err := scene.Import(s.world, scene.Instance(doc.Entities), cmd.Entity); err != nil {
		store.Delete(cmd.Entity)
		s.log.Warn("prefab instantiation failed", zap.String("prefab", cmd.Prefab), zap.Error(err))
	}
}

// clone copies the source subtree. The root takes the reserved id; the
// copies get fresh persistent ids. The subtree is captured before anything
// is created, and a parent inside the source's own subtree is rejected.
func (s *WriteBackSystem) clone(cmd mutation.Command) {
	store := s.world.Entities()
	src, ok := store.Get(cmd.Source)
	if !ok {
		store.Release(cmd.Entity)
		s.reject(cmd, "clone source not found")
		return
	}
	if cmd.Parent == cmd.Source || slices.Contains(store.Descendants(cmd.Source), cmd.Parent) {
		store.Release(cmd.Entity)
		s.reject(cmd, "clone parent inside source subtree")
		return
	}
	plan := s.planClone(cmd.Source)

	name := cmd.Name
	if name == "" {
		name = src.Name
	}
	if _, err := store.CreateReserved(cmd.Entity, name, cmd.Parent, ""); err != nil {
		store.Release(cmd.Entity)
		s.log.Warn("script clone failed", zap.Uint64("source", uint64(cmd.Source)), zap.Error(err))
		return
	}
	s.copyComponents(cmd.Source, cmd.Entity)
	for _, child := range plan.children {
		s.cloneNode(child, cmd.Entity)
	}
}

// clonePlan is a snapshot of a subtree taken before the copy starts.
type clonePlan struct {
	id       ecs.EntityID
	name     string
	active   bool
	children []clonePlan
}

func (s *WriteBackSystem) planClone(id ecs.EntityID) clonePlan {
	store := s.world.Entities()
	e, _ := store.Get(id)
	p := clonePlan{id: id, name: e.Name, active: e.Active}
	for _, child := range store.Children(id) {
		p.children = append(p.children, s.planClone(child))
	}
	return p
}

func (s *WriteBackSystem) cloneNode(p clonePlan, parent ecs.EntityID) {
	store := s.world.Entities()
	copied, err := store.Create(p.name, parent, "")
	if err != nil {
		s.log.Warn("script clone child failed", zap.Uint64("source", uint64(p.id)), zap.Error(err))
		return
	}
	if !p.active {
		store.SetActive(copied.ID, false)
	}
	s.copyComponents(p.id, copied.ID)
	for _, child := range p.children {
		s.cloneNode(child, copied.ID)
	}
}

func (s *WriteBackSystem) copyComponents(from, to ecs.EntityID) {
	reg := s.world.Registry()
	for _, t := range reg.ComponentTypes(from) {
		if reg.IsReadOnly(t) {
			continue
		}
		if f, ok := reg.ComponentFields(from, t); ok {
			reg.AddComponent(to, t, f)
		}
	}
}

// attach adds missing components and merges into existing ones.
func (s *WriteBackSystem) attach(entity ecs.EntityID, comps map[ecs.TypeID]ecs.Fields) {
	reg := s.world.Registry()
	for _, t := range sortedTypes(comps) {
		fields := comps[t]
		current, ok := reg.ComponentFields(entity, t)
		if !ok {
			reg.AddComponent(entity, t, fields)
			continue
		}
		for k, v := range fields {
			current[k] = mergeValue(current[k], v)
		}
		reg.UpdateComponent(entity, t, current)
	}
}

func sortedTypes(comps map[ecs.TypeID]ecs.Fields) []ecs.TypeID {
	out := make([]ecs.TypeID, 0, len(comps))
	for t := range comps {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
