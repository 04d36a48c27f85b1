package mutation

import (
	"sync"

	"github.com/vibeforge/engine/internal/core/ecs"
)

// Key identifies one buffered field write.
type Key struct {
	Entity    ecs.EntityID
	Component ecs.TypeID
	Field     string
}

type entry struct {
	key   Key
	value any
}

// ApplyFunc receives one flushed write.
type ApplyFunc func(entity ecs.EntityID, component ecs.TypeID, field string, value any)

// Buffer defers script-time field writes until the write-back phase.
// A key keeps the position of its first Queue call; later calls only replace
// the value (last write wins). Safe for concurrent Queue calls.
type Buffer struct {
	mu      sync.Mutex
	index   map[Key]int
	entries []entry
}

func NewBuffer() *Buffer {
	return &Buffer{
		index:   make(map[Key]int, 128),
		entries: make([]entry, 0, 128),
	}
}

func (b *Buffer) Queue(entity ecs.EntityID, component ecs.TypeID, field string, value any) {
	k := Key{Entity: entity, Component: component, Field: field}
	b.mu.Lock()
	defer b.mu.Unlock()
	if i, ok := b.index[k]; ok {
		b.entries[i].value = value
		return
	}
	b.index[k] = len(b.entries)
	b.entries = append(b.entries, entry{key: k, value: value})
}

// Peek returns the pending value for a key, if any.
func (b *Buffer) Peek(entity ecs.EntityID, component ecs.TypeID, field string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := b.index[Key{Entity: entity, Component: component, Field: field}]
	if !ok {
		return nil, false
	}
	return b.entries[i].value, true
}

// Flush calls apply once per distinct key in first-insertion order and leaves
// the buffer empty. Writes queued by apply land in the next cycle.
func (b *Buffer) Flush(apply ApplyFunc) int {
	b.mu.Lock()
	if len(b.entries) == 0 {
		b.mu.Unlock()
		return 0
	}
	pending := b.entries
	b.entries = make([]entry, 0, cap(pending))
	clear(b.index)
	b.mu.Unlock()

	for _, e := range pending {
		apply(e.key.Entity, e.key.Component, e.key.Field, e.value)
	}
	return len(pending)
}

func (b *Buffer) HasPending() bool {
	return b.Size() > 0
}

func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Clear drops every pending write without applying it.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = b.entries[:0]
	clear(b.index)
}
