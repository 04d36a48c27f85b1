package event

import (
	"sort"
	"sync"

	"github.com/vibeforge/engine/internal/core/ecs"
)

// Event is a named message emitted by a script or by the host.
type Event struct {
	Name    string
	Source  ecs.EntityID
	Payload any
}

// Handler receives a dispatched event.
type Handler func(Event)

// SubscriptionID identifies one Subscribe call.
type SubscriptionID uint64

type subscription struct {
	id    SubscriptionID
	owner ecs.EntityID
	fn    Handler
}

// Bus is a double-buffered event bus. Events emitted in frame N are readable
// in frame N+1. SwapBuffers() is called at frame start by EventDispatchSystem.
type Bus struct {
	mu       sync.Mutex
	front    map[string][]Event
	back     map[string][]Event
	order    []string // front-buffer names, sorted so dispatch is deterministic
	handlers map[string][]subscription
	nextID   SubscriptionID
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[string][]Event),
		back:     make(map[string][]Event),
		handlers: make(map[string][]subscription),
	}
}

// Emit queues an event into the back buffer (will be readable next frame).
func (b *Bus) Emit(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.back[ev.Name] = append(b.back[ev.Name], ev)
}

// Subscribe registers a handler for events called name. owner (0 for the
// host) lets UnsubscribeOwner drop every handler of a script context at once.
func (b *Bus) Subscribe(name string, owner ecs.EntityID, fn Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[name] = append(b.handlers[name], subscription{id: b.nextID, owner: owner, fn: fn})
	return b.nextID
}

func (b *Bus) Unsubscribe(id SubscriptionID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, subs := range b.handlers {
		for i, s := range subs {
			if s.id == id {
				b.handlers[name] = append(subs[:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// UnsubscribeOwner removes every handler registered by owner, optionally only
// for one event name ("" = all names). Returns the number removed.
func (b *Bus) UnsubscribeOwner(owner ecs.EntityID, name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for n, subs := range b.handlers {
		if name != "" && n != name {
			continue
		}
		kept := subs[:0]
		for _, s := range subs {
			if s.owner == owner {
				removed++
				continue
			}
			kept = append(kept, s)
		}
		b.handlers[n] = kept
	}
	return removed
}

// SwapBuffers rotates back→front and clears the new back buffer.
// Called once at frame start.
func (b *Bus) SwapBuffers() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
	b.order = b.order[:0]
	for name, events := range b.front {
		if len(events) > 0 {
			b.order = append(b.order, name)
		}
	}
	sort.Strings(b.order)
}

// DispatchAll delivers all front-buffer events to their subscribed handlers.
// Handlers may Emit (next frame) and Subscribe/Unsubscribe freely.
func (b *Bus) DispatchAll() int {
	b.mu.Lock()
	names := append([]string(nil), b.order...)
	b.mu.Unlock()

	delivered := 0
	for _, name := range names {
		b.mu.Lock()
		events := append([]Event(nil), b.front[name]...)
		subs := append([]subscription(nil), b.handlers[name]...)
		b.mu.Unlock()
		for _, ev := range events {
			for _, s := range subs {
				s.fn(ev)
				delivered++
			}
		}
	}
	return delivered
}

// Pending reports how many events wait in the back buffer.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, events := range b.back {
		n += len(events)
	}
	return n
}
