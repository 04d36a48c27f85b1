package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/vibeforge/engine/internal/component"
	"github.com/vibeforge/engine/internal/core/ecs"
	"github.com/vibeforge/engine/internal/core/event"
)

// eventsAPI: handlers receive (payload, sourceEntityId). Emitted events are
// delivered on the next frame.
func (c *Context) eventsAPI() *lua.LTable {
	L := c.L
	tbl := L.NewTable()
	tbl.RawSetString("on", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		fn := L.CheckFunction(2)
		script := c.scriptID
		id := c.m.bus.Subscribe(name, c.entity, func(ev event.Event) {
			if c.closed {
				return
			}
			payload := toLua(c.L, ev.Payload)
			if _, err := c.call(script, fn, 0, payload, lua.LNumber(ev.Source)); err != nil {
				c.log.Warn("event handler failed",
					zap.String("script", script), zap.String("event", name), zap.Error(err))
			}
		})
		if inst := c.current(); inst != nil {
			inst.subs = append(inst.subs, id)
		}
		L.Push(lua.LNumber(id))
		return 1
	}))
	tbl.RawSetString("off", L.NewFunction(func(L *lua.LState) int {
		switch v := L.Get(1).(type) {
		case lua.LNumber:
			L.Push(lua.LBool(c.m.bus.Unsubscribe(event.SubscriptionID(v))))
		case lua.LString:
			L.Push(lua.LBool(c.m.bus.UnsubscribeOwner(c.entity, string(v)) > 0))
		default:
			L.ArgError(1, "subscription id or event name expected")
		}
		return 1
	}))
	tbl.RawSetString("emit", L.NewFunction(func(L *lua.LState) int {
		c.m.bus.Emit(event.Event{
			Name:    L.CheckString(1),
			Source:  c.entity,
			Payload: fromLua(L.Get(2)),
		})
		return 0
	}))
	return tbl
}

// audioAPI plays through the Audio collaborator. Handles are released when
// the context is removed.
func (c *Context) audioAPI() *lua.LTable {
	L := c.L
	tbl := L.NewTable()
	tbl.RawSetString("play", L.NewFunction(func(L *lua.LState) int {
		snd, hasSound := ecs.Get[component.Sound](c.m.world.Registry(), c.entity, component.SoundType)
		url := L.OptString(1, snd.URL)
		opts := PlayOptions{Volume: 1, Loop: snd.Loop}
		if hasSound {
			opts.Volume = snd.Volume
		}
		if t, ok := L.Get(2).(*lua.LTable); ok {
			opts.Volume = lNum(t, "volume", opts.Volume)
			opts.Loop = lBool(t, "loop", opts.Loop)
		}
		if url == "" {
			L.Push(lua.LNil)
			return 1
		}
		h, err := c.m.opts.Audio.Play(c.entity, url, opts)
		if err != nil {
			c.log.Warn("audio play failed", zap.String("url", url), zap.Error(err))
			L.Push(lua.LNil)
			return 1
		}
		c.audio = append(c.audio, h)
		L.Push(lua.LNumber(h))
		return 1
	}))
	tbl.RawSetString("stop", L.NewFunction(func(L *lua.LState) int {
		h := AudioHandle(L.CheckInt64(1))
		c.m.opts.Audio.Stop(h)
		for i, owned := range c.audio {
			if owned == h {
				c.audio = append(c.audio[:i], c.audio[i+1:]...)
				break
			}
		}
		return 0
	}))
	tbl.RawSetString("setVolume", L.NewFunction(func(L *lua.LState) int {
		c.m.opts.Audio.SetVolume(AudioHandle(L.CheckInt64(1)), float64(L.CheckNumber(2)))
		return 0
	}))
	tbl.RawSetString("isPlaying", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(c.m.opts.Audio.IsPlaying(AudioHandle(L.CheckInt64(1)))))
		return 1
	}))
	return tbl
}
