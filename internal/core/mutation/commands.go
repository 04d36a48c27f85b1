package mutation

import (
	"sync"

	"github.com/vibeforge/engine/internal/core/ecs"
)

// Kind enumerates structural script writes.
type Kind int

const (
	KindCreate Kind = iota
	KindClone
	KindDestroy
	KindSetParent
	KindSetActive
	KindAttach
	KindRemoveComponent
	KindInstantiate
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindClone:
		return "clone"
	case KindDestroy:
		return "destroy"
	case KindSetParent:
		return "setParent"
	case KindSetActive:
		return "setActive"
	case KindAttach:
		return "attach"
	case KindRemoveComponent:
		return "removeComponent"
	case KindInstantiate:
		return "instantiate"
	}
	return "unknown"
}

// Command is one structural change requested by a script. Entity is a
// reserved id for KindCreate, KindClone and KindInstantiate.
type Command struct {
	Kind       Kind
	Entity     ecs.EntityID
	Source     ecs.EntityID // clone source
	Parent     ecs.EntityID
	Name       string
	Active     bool
	Component  ecs.TypeID
	Components map[ecs.TypeID]ecs.Fields
	Prefab     string // prefab path for KindInstantiate
	Issuer     ecs.EntityID
}

// Commands is an ordered queue of structural changes, applied before field
// writes during write-back.
type Commands struct {
	mu    sync.Mutex
	queue []Command
}

func NewCommands() *Commands {
	return &Commands{queue: make([]Command, 0, 32)}
}

func (c *Commands) Push(cmd Command) {
	c.mu.Lock()
	c.queue = append(c.queue, cmd)
	c.mu.Unlock()
}

// Drain returns every queued command and empties the queue.
func (c *Commands) Drain() []Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return nil
	}
	out := c.queue
	c.queue = make([]Command, 0, cap(out))
	return out
}

func (c *Commands) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
