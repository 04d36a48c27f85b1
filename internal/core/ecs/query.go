package ecs

import "time"

// queryEntry is one cached EntitiesWith result. It is fresh while its
// generation matches the type's current generation.
type queryEntry struct {
	ids        []EntityID
	generation uint64
	computedAt time.Time
}

// queryCache maps a component type to the sorted ids of entities carrying it.
// Every add/remove of a type bumps that type's generation; maxAge (0 = off)
// is only a fallback for callers that mutate stores behind the registry's back.
type queryCache struct {
	entries     map[TypeID]*queryEntry
	generations map[TypeID]uint64
	maxAge      time.Duration
	now         func() time.Time

	hits   uint64
	misses uint64
}

func newQueryCache(maxAge time.Duration, now func() time.Time) *queryCache {
	if now == nil {
		now = time.Now
	}
	return &queryCache{
		entries:     make(map[TypeID]*queryEntry, 16),
		generations: make(map[TypeID]uint64, 16),
		maxAge:      maxAge,
		now:         now,
	}
}

func (q *queryCache) invalidate(t TypeID) {
	q.generations[t]++
}

func (q *queryCache) generation(t TypeID) uint64 {
	return q.generations[t]
}

func (q *queryCache) get(t TypeID, compute func() []EntityID) []EntityID {
	gen := q.generations[t]
	if e, ok := q.entries[t]; ok && e.generation == gen && !q.expired(e) {
		q.hits++
		return e.ids
	}
	q.misses++
	ids := compute()
	q.entries[t] = &queryEntry{ids: ids, generation: gen, computedAt: q.now()}
	return ids
}

func (q *queryCache) expired(e *queryEntry) bool {
	return q.maxAge > 0 && q.now().Sub(e.computedAt) > q.maxAge
}

func (q *queryCache) reset() {
	clear(q.entries)
}
