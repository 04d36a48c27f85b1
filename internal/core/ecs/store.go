package ecs

import (
	"fmt"
	"slices"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

const defaultMaxIDAttempts = 8

// Entity is the derived, read-only view of one entity.
type Entity struct {
	ID           EntityID
	Name         string
	Parent       EntityID
	Children     []EntityID
	PersistentID string
	Active       bool

	order uint64
}

type EntityStoreOptions struct {
	// MaxIDAttempts bounds persistent id generation retries on collision.
	MaxIDAttempts int
	// NewPersistentID overrides uuid generation (tests).
	NewPersistentID func() string
}

// EntityStore manages entity lifecycle and hierarchy. Identity and hierarchy
// live in EntityMeta components in the Registry; the cache below is rebuilt
// from them by RebuildCache and holds nothing else.
type EntityStore struct {
	pool     *EntityPool
	reg      *Registry
	cache    map[EntityID]*Entity
	byPID    map[string]EntityID
	reserved map[EntityID]struct{}
	seq      uint64

	newPID      func() string
	maxAttempts int
	log         *zap.Logger
}

func NewEntityStore(pool *EntityPool, reg *Registry, opts EntityStoreOptions, log *zap.Logger) (*EntityStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !reg.IsRegistered(MetaType) {
		if err := Register(reg, metaDescriptor()); err != nil {
			return nil, fmt.Errorf("register entity meta: %w", err)
		}
	}
	s := &EntityStore{
		pool:        pool,
		reg:         reg,
		cache:       make(map[EntityID]*Entity, 256),
		byPID:       make(map[string]EntityID, 256),
		reserved:    make(map[EntityID]struct{}),
		newPID:      opts.NewPersistentID,
		maxAttempts: opts.MaxIDAttempts,
		log:         log,
	}
	if s.newPID == nil {
		s.newPID = uuid.NewString
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxIDAttempts
	}
	return s, nil
}

// Create allocates a new entity. parent 0 creates a root; persistentID ""
// generates one.
func (s *EntityStore) Create(name string, parent EntityID, persistentID string) (Entity, error) {
	pid, err := s.prepare(parent, persistentID)
	if err != nil {
		return Entity{}, err
	}
	return s.commit(s.pool.Create(), name, parent, pid)
}

// Reserve allocates an id whose entity is created later with CreateReserved.
func (s *EntityStore) Reserve() EntityID {
	id := s.pool.Create()
	s.reserved[id] = struct{}{}
	return id
}

// CreateReserved creates the entity for a reserved id. On failure the
// reservation is released.
func (s *EntityStore) CreateReserved(id EntityID, name string, parent EntityID, persistentID string) (Entity, error) {
	if _, ok := s.reserved[id]; !ok {
		return Entity{}, fmt.Errorf("create reserved %d: %w", id, ErrEntityNotFound)
	}
	pid, err := s.prepare(parent, persistentID)
	if err != nil {
		s.Release(id)
		return Entity{}, err
	}
	delete(s.reserved, id)
	e, err := s.commit(id, name, parent, pid)
	if err != nil {
		return Entity{}, err
	}
	return e, nil
}

// Release gives back a reservation that was never used.
func (s *EntityStore) Release(id EntityID) {
	if _, ok := s.reserved[id]; !ok {
		return
	}
	delete(s.reserved, id)
	s.pool.Destroy(id)
}

func (s *EntityStore) prepare(parent EntityID, persistentID string) (string, error) {
	if !parent.IsZero() {
		if _, ok := s.cache[parent]; !ok {
			return "", fmt.Errorf("%w: %d", ErrInvalidParent, parent)
		}
	}
	if persistentID == "" {
		return s.generatePID()
	}
	if !ValidPersistentID(persistentID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, persistentID)
	}
	if _, taken := s.byPID[persistentID]; taken {
		return "", fmt.Errorf("%w: %q", ErrDuplicateID, persistentID)
	}
	return persistentID, nil
}

func (s *EntityStore) generatePID() (string, error) {
	for i := 0; i < s.maxAttempts; i++ {
		pid := s.newPID()
		if !ValidPersistentID(pid) {
			continue
		}
		if _, taken := s.byPID[pid]; !taken {
			return pid, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrGenerationExhausted, s.maxAttempts)
}

func (s *EntityStore) commit(id EntityID, name string, parent EntityID, pid string) (Entity, error) {
	meta := EntityMeta{
		Name:         norm.NFC.String(name),
		Parent:       parent,
		PersistentID: pid,
		Order:        s.nextOrder(),
		Active:       true,
	}
	if err := Set(s.reg, id, MetaType, meta); err != nil {
		s.pool.Destroy(id)
		return Entity{}, fmt.Errorf("create entity %q: %w", name, err)
	}
	e := &Entity{
		ID:           id,
		Name:         meta.Name,
		Parent:       parent,
		PersistentID: pid,
		Active:       true,
		order:        meta.Order,
	}
	s.cache[id] = e
	s.byPID[pid] = id
	if !parent.IsZero() {
		p := s.cache[parent]
		p.Children = append(p.Children, id)
	}
	return e.snapshot(), nil
}

func (s *EntityStore) nextOrder() uint64 {
	s.seq++
	return s.seq
}

// Delete removes id and all of its descendants, children first. It returns
// false when id does not exist.
func (s *EntityStore) Delete(id EntityID) bool {
	e, ok := s.cache[id]
	if !ok {
		return false
	}
	for _, child := range slices.Clone(e.Children) {
		s.Delete(child)
	}
	if p, ok := s.cache[e.Parent]; ok {
		p.Children = removeID(p.Children, id)
	}
	delete(s.byPID, e.PersistentID)
	delete(s.cache, id)
	s.reg.RemoveAll(id)
	s.pool.Destroy(id)
	return true
}

// SetParent moves child under newParent (0 = root). It refuses, without
// mutating anything, moves that would create a cycle.
func (s *EntityStore) SetParent(child, newParent EntityID) bool {
	c, ok := s.cache[child]
	if !ok || child == newParent {
		return false
	}
	if !newParent.IsZero() {
		if _, ok := s.cache[newParent]; !ok {
			return false
		}
		if s.isDescendant(newParent, child) {
			return false
		}
	}
	if c.Parent == newParent {
		return true
	}
	meta, ok := Get[EntityMeta](s.reg, child, MetaType)
	if !ok {
		return false
	}
	meta.Parent = newParent
	meta.Order = s.nextOrder()
	if err := Set(s.reg, child, MetaType, meta); err != nil {
		s.log.Warn("set parent rejected", zap.Uint64("entity", uint64(child)), zap.Error(err))
		return false
	}
	if old, ok := s.cache[c.Parent]; ok {
		old.Children = removeID(old.Children, child)
	}
	if p, ok := s.cache[newParent]; ok {
		p.Children = append(p.Children, child)
	}
	c.Parent = newParent
	c.order = meta.Order
	return true
}

// isDescendant walks node's ancestor chain looking for ancestor.
func (s *EntityStore) isDescendant(node, ancestor EntityID) bool {
	steps := 0
	for e := s.cache[node]; e != nil && !e.Parent.IsZero(); e = s.cache[e.Parent] {
		if e.Parent == ancestor {
			return true
		}
		steps++
		if steps > len(s.cache) {
			s.log.Error("parent chain cycle detected", zap.Uint64("entity", uint64(node)))
			return true
		}
	}
	return false
}

// Rename changes an entity's display name.
func (s *EntityStore) Rename(id EntityID, name string) bool {
	return s.updateMeta(id, func(m *EntityMeta) { m.Name = norm.NFC.String(name) }, func(e *Entity, m EntityMeta) {
		e.Name = m.Name
	})
}

// SetActive toggles the entity's own active flag.
func (s *EntityStore) SetActive(id EntityID, active bool) bool {
	return s.updateMeta(id, func(m *EntityMeta) { m.Active = active }, func(e *Entity, m EntityMeta) {
		e.Active = m.Active
	})
}

func (s *EntityStore) updateMeta(id EntityID, mutate func(*EntityMeta), sync func(*Entity, EntityMeta)) bool {
	e, ok := s.cache[id]
	if !ok {
		return false
	}
	meta, ok := Get[EntityMeta](s.reg, id, MetaType)
	if !ok {
		return false
	}
	mutate(&meta)
	if err := Set(s.reg, id, MetaType, meta); err != nil {
		s.log.Warn("entity meta update rejected", zap.Uint64("entity", uint64(id)), zap.Error(err))
		return false
	}
	sync(e, meta)
	return true
}

func (s *EntityStore) Exists(id EntityID) bool {
	_, ok := s.cache[id]
	return ok
}

func (s *EntityStore) Get(id EntityID) (Entity, bool) {
	e, ok := s.cache[id]
	if !ok {
		return Entity{}, false
	}
	return e.snapshot(), true
}

func (s *EntityStore) Children(id EntityID) []EntityID {
	e, ok := s.cache[id]
	if !ok {
		return nil
	}
	return slices.Clone(e.Children)
}

// Parent returns id's parent; ok is false for roots and unknown ids.
func (s *EntityStore) Parent(id EntityID) (EntityID, bool) {
	e, ok := s.cache[id]
	if !ok || e.Parent.IsZero() {
		return 0, false
	}
	return e.Parent, true
}

// Roots returns parentless entities in creation/attach order.
func (s *EntityStore) Roots() []EntityID {
	var roots []*Entity
	for _, e := range s.cache {
		if e.Parent.IsZero() {
			roots = append(roots, e)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].order < roots[j].order })
	out := make([]EntityID, len(roots))
	for i, e := range roots {
		out[i] = e.ID
	}
	return out
}

// FindByName scans every entity; results are in ascending id order.
func (s *EntityStore) FindByName(name string) []EntityID {
	name = norm.NFC.String(name)
	var out []EntityID
	for id, e := range s.cache {
		if e.Name == name {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *EntityStore) FindByPersistentID(pid string) (EntityID, bool) {
	id, ok := s.byPID[pid]
	return id, ok
}

// Descendants returns id's subtree in depth-first pre-order, excluding id.
func (s *EntityStore) Descendants(id EntityID) []EntityID {
	var out []EntityID
	var walk func(EntityID)
	walk = func(n EntityID) {
		e, ok := s.cache[n]
		if !ok {
			return
		}
		for _, c := range e.Children {
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)
	return out
}

// ActiveInHierarchy reports whether id and all of its ancestors are active.
func (s *EntityStore) ActiveInHierarchy(id EntityID) bool {
	for e, ok := s.cache[id]; ok; e, ok = s.cache[e.Parent] {
		if !e.Active {
			return false
		}
		if e.Parent.IsZero() {
			return true
		}
	}
	return false
}

func (s *EntityStore) Count() int {
	return len(s.cache)
}

// All returns every live entity id in ascending order.
func (s *EntityStore) All() []EntityID {
	out := make([]EntityID, 0, len(s.cache))
	for id := range s.cache {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RebuildCache discards the derived view and reconstructs it from the
// EntityMeta components in the Registry.
func (s *EntityStore) RebuildCache() {
	clear(s.cache)
	clear(s.byPID)
	ms, err := typedStore[EntityMeta](s.reg, MetaType)
	if err != nil {
		s.log.Error("rebuild entity cache", zap.Error(err))
		return
	}
	ms.Each(func(id EntityID, m *EntityMeta) {
		s.cache[id] = &Entity{
			ID:           id,
			Name:         m.Name,
			Parent:       m.Parent,
			PersistentID: m.PersistentID,
			Active:       m.Active,
			order:        m.Order,
		}
		s.byPID[m.PersistentID] = id
		if m.Order > s.seq {
			s.seq = m.Order
		}
	})
	for _, e := range s.cache {
		if e.Parent.IsZero() {
			continue
		}
		p, ok := s.cache[e.Parent]
		if !ok {
			s.log.Warn("orphaned entity in registry", zap.Uint64("entity", uint64(e.ID)), zap.Uint64("parent", uint64(e.Parent)))
			continue
		}
		p.Children = append(p.Children, e.ID)
	}
	for _, e := range s.cache {
		sort.Slice(e.Children, func(i, j int) bool {
			return s.cache[e.Children[i]].order < s.cache[e.Children[j]].order
		})
	}
}

func (e *Entity) snapshot() Entity {
	out := *e
	out.Children = slices.Clone(e.Children)
	return out
}

func removeID(ids []EntityID, id EntityID) []EntityID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
