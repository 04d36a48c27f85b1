package scripting

import (
	"math"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// saveAPI exposes the persistent key/value store. Without a store, reads
// return the caller's default and writes are dropped.
func (c *Context) saveAPI() *lua.LTable {
	L := c.L
	tbl := L.NewTable()
	store := c.m.opts.Save
	set := func(name string, fn lua.LGFunction) { tbl.RawSetString(name, L.NewFunction(fn)) }

	put := func(key string, v any) {
		if store == nil {
			return
		}
		if err := store.Set(key, v); err != nil {
			c.log.Error("save write failed", zap.String("key", key), zap.Error(err))
		}
	}
	get := func(key string) (any, bool) {
		if store == nil {
			return nil, false
		}
		return store.Get(key)
	}
	// getter pushes the stored value when conv accepts it, else the default
	getter := func(conv func(any) (lua.LValue, bool)) lua.LGFunction {
		return func(L *lua.LState) int {
			if v, ok := get(L.CheckString(1)); ok {
				if lv, ok := conv(v); ok {
					L.Push(lv)
					return 1
				}
			}
			L.Push(L.Get(2))
			return 1
		}
	}

	set("setInt", func(L *lua.LState) int {
		put(L.CheckString(1), int64(L.CheckNumber(2)))
		return 0
	})
	set("getInt", getter(func(v any) (lua.LValue, bool) {
		n, ok := number(v)
		if !ok || n != math.Trunc(n) {
			return nil, false
		}
		return lua.LNumber(n), true
	}))
	set("setFloat", func(L *lua.LState) int {
		put(L.CheckString(1), float64(L.CheckNumber(2)))
		return 0
	})
	set("getFloat", getter(func(v any) (lua.LValue, bool) {
		n, ok := number(v)
		return lua.LNumber(n), ok
	}))
	set("setString", func(L *lua.LState) int {
		put(L.CheckString(1), L.CheckString(2))
		return 0
	})
	set("getString", getter(func(v any) (lua.LValue, bool) {
		s, ok := v.(string)
		return lua.LString(s), ok
	}))
	set("setObject", func(L *lua.LState) int {
		put(L.CheckString(1), fromLua(L.CheckAny(2)))
		return 0
	})
	set("getObject", func(L *lua.LState) int {
		v, ok := get(L.CheckString(1))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(toLua(L, v))
		return 1
	})
	set("hasKey", func(L *lua.LState) int {
		_, ok := get(L.CheckString(1))
		L.Push(lua.LBool(ok))
		return 1
	})
	set("deleteKey", func(L *lua.LState) int {
		key := L.CheckString(1)
		if store == nil {
			return 0
		}
		if err := store.Delete(key); err != nil {
			c.log.Error("save delete failed", zap.String("key", key), zap.Error(err))
		}
		return 0
	})
	set("clear", func(L *lua.LState) int {
		if store == nil {
			return 0
		}
		if err := store.Clear(); err != nil {
			c.log.Error("save clear failed", zap.Error(err))
		}
		return 0
	})
	set("save", func(L *lua.LState) int {
		L.Push(lua.LBool(c.storeOp("save", store, SaveStore.Flush)))
		return 1
	})
	set("load", func(L *lua.LState) int {
		L.Push(lua.LBool(c.storeOp("load", store, SaveStore.Reload)))
		return 1
	})
	return tbl
}

func (c *Context) storeOp(name string, store SaveStore, op func(SaveStore) error) bool {
	if store == nil {
		return false
	}
	if err := op(store); err != nil {
		c.log.Error("save "+name+" failed", zap.Error(err))
		return false
	}
	return true
}

// number accepts the numeric types a SaveStore may hand back.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
