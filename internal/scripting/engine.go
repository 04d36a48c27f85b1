package scripting

import (
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/vibeforge/engine/internal/core/ecs"
	"github.com/vibeforge/engine/internal/core/event"
	"github.com/vibeforge/engine/internal/core/mutation"
)

// Options configures a Manager.
type Options struct {
	// FrameBudget is the default soft budget per ExecuteScript call.
	// Exceeding it is logged, never enforced. 0 disables the check.
	FrameBudget   time.Duration
	CallStackSize int
	RegistrySize  int
	Audio         Audio
	Spatial       Spatial

	// Prefabs backs prefab.instantiate; nil makes it return nil.
	Prefabs PrefabSource
	// Save backs the save capability; nil makes reads return defaults and
	// writes do nothing.
	Save    SaveStore
}

// Manager owns one isolated script context per entity and dispatches
// lifecycle calls into them. Scripts never write the registry: field writes
// go to the mutation buffer and structural changes to the command queue.
// Single-goroutine access only (game loop).
type Manager struct {
	compiler *Compiler
	world    *ecs.World
	buffer   *mutation.Buffer
	commands *mutation.Commands
	bus      *event.Bus
	opts     Options
	contexts map[ecs.EntityID]*Context
	calls    uint64
	log      *zap.Logger
}

func NewManager(compiler *Compiler, world *ecs.World, buffer *mutation.Buffer, commands *mutation.Commands,
	bus *event.Bus, opts Options, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Audio == nil {
		opts.Audio = &NopAudio{}
	}
	if opts.CallStackSize <= 0 {
		opts.CallStackSize = lua.CallStackSize
	}
	if opts.RegistrySize <= 0 {
		opts.RegistrySize = lua.RegistrySize
	}
	return &Manager{
		compiler: compiler,
		world:    world,
		buffer:   buffer,
		commands: commands,
		bus:      bus,
		opts:     opts,
		contexts: make(map[ecs.EntityID]*Context, 64),
		log:      log,
	}
}

func (m *Manager) Compiler() *Compiler { return m.compiler }

// ExecuteScript runs one lifecycle handler of scriptID for opts.EntityID.
// Errors raised by the script, and Go panics under it, are returned in the
// result and never escape; other contexts and the compiler cache are not
// touched by a failing call.
func (m *Manager) ExecuteScript(scriptID string, opts ExecOptions, lc Lifecycle) (res ExecResult) {
	b, ok := m.compiler.Lookup(scriptID)
	if !ok {
		return ExecResult{Err: fmt.Errorf("%w: %s", ErrNotCompiled, scriptID)}
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = ExecResult{Err: &ScriptError{
				ScriptID:  scriptID,
				Entity:    opts.EntityID,
				Lifecycle: lc,
				Message:   fmt.Sprintf("panic: %v", r),
			}}
		}
		res.Duration = time.Since(start)
		m.calls++
		budget := opts.Budget
		if budget <= 0 {
			budget = m.opts.FrameBudget
		}
		if budget > 0 && res.Duration > budget {
			res.OverBudget = true
			m.log.Warn("script over time budget",
				zap.String("script", scriptID),
				zap.Uint64("entity", uint64(opts.EntityID)),
				zap.String("lifecycle", string(lc)),
				zap.Duration("took", res.Duration),
				zap.Duration("budget", budget))
		}
		if res.Err != nil {
			m.log.Error("script error",
				zap.String("script", scriptID),
				zap.Uint64("entity", uint64(opts.EntityID)),
				zap.String("lifecycle", string(lc)),
				zap.Error(res.Err))
		}
	}()

	c, err := m.context(opts.EntityID)
	if err != nil {
		return ExecResult{Err: err}
	}
	c.refresh(opts)

	inst, err := c.materialize(b)
	if err != nil {
		return ExecResult{Err: c.scriptError(scriptID, lc, err)}
	}
	fn := inst.handlers[lc]
	if fn == nil {
		return ExecResult{Success: true}
	}
	var args []lua.LValue
	if lc == OnUpdate {
		args = append(args, lua.LNumber(opts.Time.DeltaTime))
	}
	if _, err := c.call(scriptID, fn, 0, args...); err != nil {
		return ExecResult{Err: c.scriptError(scriptID, lc, err)}
	}
	return ExecResult{Success: true}
}

// HasHandler reports whether the materialized script on entity defines lc.
// Unmaterialized scripts report false.
func (m *Manager) HasHandler(entity ecs.EntityID, scriptID string, lc Lifecycle) bool {
	c, ok := m.contexts[entity]
	if !ok {
		return false
	}
	inst, ok := c.instances[scriptID]
	return ok && inst.handlers[lc] != nil
}

// AdvanceTimers moves entity's timers forward by dt and runs the ones due.
// Returns the number of callbacks run.
func (m *Manager) AdvanceTimers(entity ecs.EntityID, dt time.Duration) int {
	c, ok := m.contexts[entity]
	if !ok {
		return 0
	}
	return c.advanceTimers(float64(dt) / float64(time.Millisecond))
}

// RemoveScriptContext releases entity's context: timers, audio handles,
// event subscriptions and the interpreter. Safe to call repeatedly.
func (m *Manager) RemoveScriptContext(entity ecs.EntityID) bool {
	c, ok := m.contexts[entity]
	if !ok {
		return false
	}
	c.close()
	delete(m.contexts, entity)
	m.log.Debug("script context removed", zap.Uint64("entity", uint64(entity)))
	return true
}

// ClearAll releases every context and every compiled bundle.
func (m *Manager) ClearAll() {
	for id := range m.contexts {
		m.RemoveScriptContext(id)
	}
	m.compiler.Clear()
}

func (m *Manager) Has(entity ecs.EntityID) bool {
	_, ok := m.contexts[entity]
	return ok
}

func (m *Manager) Len() int { return len(m.contexts) }

// DispatchCount returns the number of ExecuteScript calls that reached a bundle.
func (m *Manager) DispatchCount() uint64 { return m.calls }

func (m *Manager) context(entity ecs.EntityID) (*Context, error) {
	if c, ok := m.contexts[entity]; ok {
		return c, nil
	}
	if !m.world.Alive(entity) {
		return nil, fmt.Errorf("script context for entity %d: %w", entity, ecs.ErrEntityNotFound)
	}
	c, err := newContext(m, entity)
	if err != nil {
		return nil, fmt.Errorf("script context for entity %d: %w", entity, err)
	}
	m.contexts[entity] = c
	m.log.Debug("script context created", zap.Uint64("entity", uint64(entity)))
	return c, nil
}

func lNum(t *lua.LTable, key string, def float64) float64 {
	if n, ok := t.RawGetString(key).(lua.LNumber); ok {
		return float64(n)
	}
	return def
}

func lStr(t *lua.LTable, key, def string) string {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return def
}

func lBool(t *lua.LTable, key string, def bool) bool {
	if b, ok := t.RawGetString(key).(lua.LBool); ok {
		return bool(b)
	}
	return def
}
