package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// pureBuiltins are the base functions copied into every script environment.
// Nothing here reaches the filesystem, the loader or other environments.
var pureBuiltins = []string{
	"assert", "error", "ipairs", "next", "pairs", "pcall", "select",
	"tonumber", "tostring", "type", "unpack", "xpcall",
	"rawequal", "rawget", "rawset", "setmetatable", "getmetatable",
}

// pureLibs are copied table by table so a script cannot patch them for others.
var pureLibs = []string{lua.StringLibName, lua.TabLibName, lua.CoroutineLibName}

// unsafeGlobals are removed from the state's own globals as well.
var unsafeGlobals = []string{
	"dofile", "load", "loadfile", "loadstring", "require", "module",
	"getfenv", "setfenv", "collectgarbage", "newproxy", "_printregs",
}

// newState builds an interpreter with only the pure standard libraries.
func newState(callStackSize, registrySize int) (*lua.LState, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: callStackSize,
		RegistrySize:  registrySize,
	})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
		{lua.CoroutineLibName, lua.OpenCoroutine},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("open lua lib %q: %w", lib.name, err)
		}
	}
	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	// the string metatable is shared by every environment on this state
	if mt, ok := L.GetMetatable(lua.LString("")).(*lua.LTable); ok {
		mt.RawSetString("__metatable", lua.LFalse)
	}
	return L, nil
}

// newEnv creates the global table seen by one script instance.
func newEnv(L *lua.LState, print lua.LGFunction) *lua.LTable {
	env := L.NewTable()
	for _, name := range pureBuiltins {
		env.RawSetString(name, L.GetGlobal(name))
	}
	for _, name := range pureLibs {
		env.RawSetString(name, copyTable(L, L.GetGlobal(name)))
	}
	env.RawSetString("print", L.NewFunction(print))
	env.RawSetString("_G", env)
	return env
}

func copyTable(L *lua.LState, v lua.LValue) lua.LValue {
	src, ok := v.(*lua.LTable)
	if !ok {
		return lua.LNil
	}
	dst := L.NewTable()
	src.ForEach(func(k, v lua.LValue) { dst.RawSet(k, v) })
	return dst
}
