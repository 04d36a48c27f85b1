package ecs

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RegistryOptions tunes registration and query caching.
type RegistryOptions struct {
	// HotReload lets Register replace an existing descriptor instead of failing.
	HotReload   bool
	QueryMaxAge time.Duration
	Clock       func() time.Time
}

// Registry owns every component store and is the only source of truth for
// component data. Writes from the generic (Fields) API never panic or return
// errors: they log and report false so callers keep running.
type Registry struct {
	stores    map[TypeID]componentStore
	order     []TypeID
	alive     func(EntityID) bool
	queries   *queryCache
	hotReload bool
	log       *zap.Logger
}

func NewRegistry(alive func(EntityID) bool, opts RegistryOptions, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		stores:    make(map[TypeID]componentStore, 16),
		order:     make([]TypeID, 0, 16),
		alive:     alive,
		queries:   newQueryCache(opts.QueryMaxAge, opts.Clock),
		hotReload: opts.HotReload,
		log:       log,
	}
}

// Register adds a component type to the registry.
func Register[T any](r *Registry, d Descriptor[T]) error {
	if d.ID == "" {
		return fmt.Errorf("register component: empty type id")
	}
	if d.Encode == nil || d.Decode == nil {
		return fmt.Errorf("register component %s: encode and decode are required", d.ID)
	}
	next := NewComponentStore(d)
	old, exists := r.stores[d.ID]
	if !exists {
		r.stores[d.ID] = next
		r.order = append(r.order, d.ID)
		return nil
	}
	if !r.hotReload {
		return fmt.Errorf("%w: %s", ErrDuplicateType, d.ID)
	}
	migrated, dropped := 0, 0
	for _, id := range old.ids() {
		f, _ := old.fields(id)
		if err := next.setFields(id, f); err != nil {
			dropped++
			r.log.Warn("component dropped by descriptor reload",
				zap.Uint64("entity", uint64(id)), zap.String("type", string(d.ID)), zap.Error(err))
			continue
		}
		migrated++
	}
	r.stores[d.ID] = next
	r.queries.invalidate(d.ID)
	r.log.Info("component descriptor replaced",
		zap.String("type", string(d.ID)), zap.Int("migrated", migrated), zap.Int("dropped", dropped))
	return nil
}

// Get returns a copy of entity id's component of type typeID.
func Get[T any](r *Registry, id EntityID, typeID TypeID) (T, bool) {
	s, err := typedStore[T](r, typeID)
	if err != nil {
		var zero T
		return zero, false
	}
	return s.Get(id)
}

// Set adds or replaces a typed component, bypassing the read-only flag.
func Set[T any](r *Registry, id EntityID, typeID TypeID, v T) error {
	if !r.alive(id) {
		return fmt.Errorf("set %s on %d: %w", typeID, id, ErrEntityNotFound)
	}
	s, err := typedStore[T](r, typeID)
	if err != nil {
		return err
	}
	added := !s.Has(id)
	if err := s.Set(id, v); err != nil {
		return err
	}
	if added {
		r.queries.invalidate(typeID)
	}
	return nil
}

func typedStore[T any](r *Registry, typeID TypeID) (*ComponentStore[T], error) {
	cs, ok := r.stores[typeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeID)
	}
	s, ok := cs.(*ComponentStore[T])
	if !ok {
		return nil, fmt.Errorf("component %s: type parameter mismatch", typeID)
	}
	return s, nil
}

// AddComponent attaches a new component decoded from f. A nil f attaches the
// type's default value.
func (r *Registry) AddComponent(id EntityID, typeID TypeID, f Fields) bool {
	s, err := r.writable(id, typeID)
	if err != nil {
		r.reject("add", id, typeID, err)
		return false
	}
	if s.Has(id) {
		r.reject("add", id, typeID, fmt.Errorf("component already attached"))
		return false
	}
	if f == nil {
		f = s.defaultFields()
	}
	if err := s.setFields(id, f); err != nil {
		r.reject("add", id, typeID, err)
		return false
	}
	r.queries.invalidate(typeID)
	return true
}

// UpdateComponent replaces the stored value wholesale. Merging partial data is
// the caller's job.
func (r *Registry) UpdateComponent(id EntityID, typeID TypeID, f Fields) bool {
	s, err := r.writable(id, typeID)
	if err != nil {
		r.reject("update", id, typeID, err)
		return false
	}
	if !s.Has(id) {
		r.reject("update", id, typeID, fmt.Errorf("component not attached"))
		return false
	}
	if err := s.setFields(id, f); err != nil {
		r.reject("update", id, typeID, err)
		return false
	}
	return true
}

func (r *Registry) RemoveComponent(id EntityID, typeID TypeID) bool {
	s, err := r.writable(id, typeID)
	if err != nil {
		r.reject("remove", id, typeID, err)
		return false
	}
	if !s.Remove(id) {
		return false
	}
	r.queries.invalidate(typeID)
	return true
}

func (r *Registry) writable(id EntityID, typeID TypeID) (componentStore, error) {
	if !r.alive(id) {
		return nil, ErrEntityNotFound
	}
	s, ok := r.stores[typeID]
	if !ok {
		return nil, ErrUnknownType
	}
	if s.readOnly() {
		return nil, ErrReadOnlyType
	}
	return s, nil
}

func (r *Registry) reject(op string, id EntityID, typeID TypeID, err error) {
	r.log.Warn("component "+op+" rejected",
		zap.Uint64("entity", uint64(id)), zap.String("type", string(typeID)), zap.Error(err))
}

// ComponentFields returns the encoded form of a component.
func (r *Registry) ComponentFields(id EntityID, typeID TypeID) (Fields, bool) {
	s, ok := r.stores[typeID]
	if !ok {
		return nil, false
	}
	return s.fields(id)
}

// DefaultFields returns the encoded default value of a type.
func (r *Registry) DefaultFields(typeID TypeID) (Fields, bool) {
	s, ok := r.stores[typeID]
	if !ok {
		return nil, false
	}
	return s.defaultFields(), true
}

func (r *Registry) HasComponent(id EntityID, typeID TypeID) bool {
	s, ok := r.stores[typeID]
	return ok && s.Has(id)
}

// ComponentTypes lists the types attached to id in registration order.
func (r *Registry) ComponentTypes(id EntityID) []TypeID {
	var out []TypeID
	for _, t := range r.order {
		if r.stores[t].Has(id) {
			out = append(out, t)
		}
	}
	return out
}

// Types lists registered types in registration order.
func (r *Registry) Types() []TypeID {
	out := make([]TypeID, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) IsRegistered(typeID TypeID) bool {
	_, ok := r.stores[typeID]
	return ok
}

func (r *Registry) IsReadOnly(typeID TypeID) bool {
	s, ok := r.stores[typeID]
	return ok && s.readOnly()
}

func (r *Registry) Category(typeID TypeID) (Category, bool) {
	s, ok := r.stores[typeID]
	if !ok {
		return "", false
	}
	return s.Category(), true
}

// EntitiesWith returns the ids (ascending) of entities carrying typeID. The
// result is shared with the cache and must not be modified.
func (r *Registry) EntitiesWith(typeID TypeID) []EntityID {
	s, ok := r.stores[typeID]
	if !ok {
		return nil
	}
	return r.queries.get(typeID, s.ids)
}

// QueryGeneration reports how many times typeID's entity set has changed.
func (r *Registry) QueryGeneration(typeID TypeID) uint64 {
	return r.queries.generation(typeID)
}

// QueryStats returns cache hits and misses of EntitiesWith.
func (r *Registry) QueryStats() (hits, misses uint64) {
	return r.queries.hits, r.queries.misses
}

// RemoveAll clears the given entity from every registered component store.
func (r *Registry) RemoveAll(id EntityID) {
	for _, t := range r.order {
		if r.stores[t].Remove(id) {
			r.queries.invalidate(t)
		}
	}
}
