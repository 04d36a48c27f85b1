package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func (c *Context) inputAPI() *lua.LTable {
	L := c.L
	tbl := L.NewTable()
	tbl.RawSetString("isKeyDown", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(c.opts.Input.Keys[L.CheckString(1)]))
		return 1
	}))
	tbl.RawSetString("isMouseButtonDown", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(c.opts.Input.MouseButtons[L.CheckInt(1)]))
		return 1
	}))
	tbl.RawSetString("getMousePosition", L.NewFunction(func(L *lua.LState) int {
		pos := L.CreateTable(0, 2)
		pos.RawSetString("x", lua.LNumber(c.opts.Input.MouseX))
		pos.RawSetString("y", lua.LNumber(c.opts.Input.MouseY))
		L.Push(pos)
		return 1
	}))
	return tbl
}

func (c *Context) consoleAPI() *lua.LTable {
	L := c.L
	tbl := L.NewTable()
	for name, level := range map[string]zapcore.Level{
		"log":   zapcore.InfoLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"debug": zapcore.DebugLevel,
	} {
		tbl.RawSetString(name, L.NewFunction(func(L *lua.LState) int {
			if ce := c.log.Check(level, joinArgs(L, 1)); ce != nil {
				ce.Write(zap.String("script", c.scriptID))
			}
			return 0
		}))
	}
	return tbl
}

// timerAPI delays are in milliseconds and advance with frame time.
func (c *Context) timerAPI() *lua.LTable {
	L := c.L
	tbl := L.NewTable()
	schedule := func(repeat bool) lua.LGFunction {
		return func(L *lua.LState) int {
			fn := L.CheckFunction(1)
			delay := float64(L.OptNumber(2, 0))
			L.Push(lua.LNumber(c.addTimer(fn, delay, repeat)))
			return 1
		}
	}
	clearFn := func(L *lua.LState) int {
		L.Push(lua.LBool(c.cancelTimer(L.CheckInt(1))))
		return 1
	}
	tbl.RawSetString("setTimeout", L.NewFunction(schedule(false)))
	tbl.RawSetString("setInterval", L.NewFunction(schedule(true)))
	tbl.RawSetString("clearTimeout", L.NewFunction(clearFn))
	tbl.RawSetString("clearInterval", L.NewFunction(clearFn))
	return tbl
}
