package scripting

import (
	"errors"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/vibeforge/engine/internal/core/ecs"
	"github.com/vibeforge/engine/internal/core/event"
)

// Context is the execution state of one entity: its own interpreter,
// capability tables and the script instances running in it.
type Context struct {
	m      *Manager
	entity ecs.EntityID
	L      *lua.LState
	log    *zap.Logger

	caps      []lua.LValue
	entityTbl *lua.LTable
	timeTbl   *lua.LTable
	params    *lua.LTable
	proxies   map[ecs.EntityID]*lua.LTable

	opts      ExecOptions
	scriptID  string // script currently running, for attribution
	instances map[string]*instance

	timers    []*timer
	nextTimer int
	audio     []AudioHandle
	closed    bool
}

// instance is one script bound into a context. Until its first call it is
// the raw compiled chunk; calling that yields the handler set.
type instance struct {
	version  uint64
	raw      *lua.LFunction
	handlers map[Lifecycle]*lua.LFunction
	subs     []event.SubscriptionID
}

type timer struct {
	id        int
	script    string
	fn        *lua.LFunction
	remaining float64 // ms
	interval  float64 // ms
	repeat    bool
	cancelled bool
}

func newContext(m *Manager, entity ecs.EntityID) (*Context, error) {
	L, err := newState(m.opts.CallStackSize, m.opts.RegistrySize)
	if err != nil {
		return nil, err
	}
	c := &Context{
		m:         m,
		entity:    entity,
		L:         L,
		log:       m.log.Named("script").With(zap.Uint64("entity", uint64(entity))),
		proxies:   make(map[ecs.EntityID]*lua.LTable),
		instances: make(map[string]*instance),
	}
	c.bindCapabilities()
	return c, nil
}

func (c *Context) bindCapabilities() {
	c.entityTbl = c.entityProxy(c.entity)
	c.timeTbl = c.L.NewTable()
	c.params = c.L.NewTable()
	byName := map[string]lua.LValue{
		"entity":     c.entityTbl,
		"math":       c.mathAPI(),
		"input":      c.inputAPI(),
		"time":       c.timeTbl,
		"console":    c.consoleAPI(),
		"events":     c.eventsAPI(),
		"audio":      c.audioAPI(),
		"timer":      c.timerAPI(),
		"query":      c.queryAPI(),
		"GameObject": c.gameObjectAPI(),
		"params":     c.params,
		"prefab":     c.prefabAPI(),
		"save":       c.saveAPI(),
	}
	c.caps = make([]lua.LValue, len(Capabilities))
	for i, name := range Capabilities {
		c.caps[i] = byName[name]
	}
}

// refresh rebinds the transient state in place so closures captured at
// materialization keep seeing current values.
func (c *Context) refresh(opts ExecOptions) {
	c.opts = opts
	c.timeTbl.RawSetString("time", lua.LNumber(opts.Time.Time))
	c.timeTbl.RawSetString("deltaTime", lua.LNumber(opts.Time.DeltaTime))
	c.timeTbl.RawSetString("frameCount", lua.LNumber(opts.Time.FrameCount))

	if e, ok := c.m.world.Entities().Get(c.entity); ok {
		c.entityTbl.RawSetString("name", lua.LString(e.Name))
	}

	var stale []lua.LValue
	c.params.ForEach(func(k, _ lua.LValue) { stale = append(stale, k) })
	for _, k := range stale {
		c.params.RawSet(k, lua.LNil)
	}
	for k, v := range opts.Parameters {
		c.params.RawSetString(k, toLua(c.L, v))
	}
}

// materialize returns the instance for b, building a fresh one when the
// bundle was recompiled and running the raw chunk on first use.
func (c *Context) materialize(b *Bundle) (*instance, error) {
	inst := c.instances[b.ScriptID]
	if inst != nil && inst.version != b.Version {
		c.dropInstance(b.ScriptID)
		inst = nil
	}
	if inst == nil {
		fn := c.L.NewFunctionFromProto(b.Proto)
		fn.Env = newEnv(c.L, c.print)
		inst = &instance{version: b.Version, raw: fn}
		c.instances[b.ScriptID] = inst
	}
	if inst.handlers != nil {
		return inst, nil
	}

	ret, err := c.call(b.ScriptID, inst.raw, 1, c.caps...)
	if err != nil {
		// start clean next time instead of stacking half-registered state
		c.dropInstance(b.ScriptID)
		return nil, err
	}
	inst.handlers = make(map[Lifecycle]*lua.LFunction, len(lifecycles))
	if tbl, ok := ret.(*lua.LTable); ok {
		for _, lc := range lifecycles {
			if fn, ok := tbl.RawGetString(string(lc)).(*lua.LFunction); ok {
				inst.handlers[lc] = fn
			}
		}
	}
	inst.raw = nil
	return inst, nil
}

// dropInstance releases what one script instance registered.
func (c *Context) dropInstance(scriptID string) {
	inst, ok := c.instances[scriptID]
	if !ok {
		return
	}
	for _, id := range inst.subs {
		c.m.bus.Unsubscribe(id)
	}
	for _, t := range c.timers {
		if t.script == scriptID {
			t.cancelled = true
		}
	}
	c.compactTimers()
	delete(c.instances, scriptID)
}

// call runs fn in protected mode, attributing API calls to scriptID.
func (c *Context) call(scriptID string, fn *lua.LFunction, nret int, args ...lua.LValue) (lua.LValue, error) {
	if c.closed {
		return lua.LNil, errors.New("script context closed")
	}
	prev := c.scriptID
	c.scriptID = scriptID
	defer func() { c.scriptID = prev }()

	if err := c.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    nret,
		Protect: true,
	}, args...); err != nil {
		return lua.LNil, err
	}
	if nret == 0 {
		return lua.LNil, nil
	}
	ret := c.L.Get(-1)
	c.L.Pop(1)
	return ret, nil
}

func (c *Context) scriptError(scriptID string, lc Lifecycle, err error) *ScriptError {
	se := &ScriptError{
		ScriptID:  scriptID,
		Entity:    c.entity,
		Lifecycle: lc,
		Message:   err.Error(),
		cause:     err,
	}
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		se.Message = apiErr.Object.String()
		se.Traceback = apiErr.StackTrace
	}
	return se
}

func (c *Context) current() *instance {
	return c.instances[c.scriptID]
}

func (c *Context) addTimer(fn *lua.LFunction, delay float64, repeat bool) int {
	if delay < 0 {
		delay = 0
	}
	c.nextTimer++
	c.timers = append(c.timers, &timer{
		id:        c.nextTimer,
		script:    c.scriptID,
		fn:        fn,
		remaining: delay,
		interval:  delay,
		repeat:    repeat,
	})
	return c.nextTimer
}

func (c *Context) cancelTimer(id int) bool {
	for _, t := range c.timers {
		if t.id == id && !t.cancelled {
			t.cancelled = true
			return true
		}
	}
	return false
}

// advanceTimers fires due timers in creation order, each at most once.
// Timers added by a callback start counting on the next advance.
func (c *Context) advanceTimers(dtMs float64) int {
	due := append([]*timer(nil), c.timers...)
	fired := 0
	for _, t := range due {
		if t.cancelled || c.closed {
			continue
		}
		t.remaining -= dtMs
		if t.remaining > 0 {
			continue
		}
		if t.repeat {
			t.remaining += t.interval
			if t.remaining <= 0 {
				t.remaining = t.interval
			}
		} else {
			t.cancelled = true
		}
		fired++
		if _, err := c.call(t.script, t.fn, 0); err != nil {
			c.log.Warn("timer callback failed", zap.String("script", t.script), zap.Int("timer", t.id), zap.Error(err))
		}
	}
	c.compactTimers()
	return fired
}

func (c *Context) compactTimers() {
	kept := c.timers[:0]
	for _, t := range c.timers {
		if !t.cancelled {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(c.timers); i++ {
		c.timers[i] = nil
	}
	c.timers = kept
}

func (c *Context) close() {
	if c.closed {
		return
	}
	for _, h := range c.audio {
		c.m.opts.Audio.Stop(h)
	}
	c.audio = nil
	c.timers = nil
	c.m.bus.UnsubscribeOwner(c.entity, "")
	c.instances = nil
	c.closed = true
	c.L.Close()
}

// print joins its arguments like Lua's print and logs them.
func (c *Context) print(L *lua.LState) int {
	c.log.Info(joinArgs(L, 1), zap.String("script", c.scriptID))
	return 0
}

func joinArgs(L *lua.LState, from int) string {
	var sb strings.Builder
	for i := from; i <= L.GetTop(); i++ {
		if i > from {
			sb.WriteByte(' ')
		}
		sb.WriteString(luaString(L.Get(i)))
	}
	return sb.String()
}

func luaString(v lua.LValue) string {
	if t, ok := v.(*lua.LTable); ok {
		return formatValue(fromLua(t))
	}
	return v.String()
}

func formatValue(v any) string {
	switch t := v.(type) {
	case map[string]any:
		var sb strings.Builder
		sb.WriteByte('{')
		for i, k := range sortedKeys(ecs.Fields(t)) {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(" = ")
			sb.WriteString(formatValue(t[k]))
		}
		sb.WriteByte('}')
		return sb.String()
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = formatValue(e)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case string:
		return t
	case nil:
		return "nil"
	}
	return fmt.Sprint(v)
}
