package scripting

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	lua "github.com/yuin/gopher-lua"
)

// mathAPI extends a copy of Lua's math library with engine helpers.
func (c *Context) mathAPI() *lua.LTable {
	L := c.L
	tbl, _ := copyTable(L, L.GetGlobal(lua.MathLibName)).(*lua.LTable)
	if tbl == nil {
		tbl = L.NewTable()
	}
	set := func(name string, fn lua.LGFunction) { tbl.RawSetString(name, L.NewFunction(fn)) }

	tbl.RawSetString("PI", lua.LNumber(math.Pi))
	tbl.RawSetString("E", lua.LNumber(math.E))
	set("clamp", func(L *lua.LState) int {
		v, lo, hi := L.CheckNumber(1), L.CheckNumber(2), L.CheckNumber(3)
		L.Push(lua.LNumber(mgl64.Clamp(float64(v), float64(lo), float64(hi))))
		return 1
	})
	set("lerp", func(L *lua.LState) int {
		a, b, t := float64(L.CheckNumber(1)), float64(L.CheckNumber(2)), float64(L.CheckNumber(3))
		L.Push(lua.LNumber(a + (b-a)*t))
		return 1
	})
	set("radToDeg", func(L *lua.LState) int {
		L.Push(lua.LNumber(mgl64.RadToDeg(float64(L.CheckNumber(1)))))
		return 1
	})
	set("degToRad", func(L *lua.LState) int {
		L.Push(lua.LNumber(mgl64.DegToRad(float64(L.CheckNumber(1)))))
		return 1
	})
	// distance(x1, y1, z1, x2, y2, z2) or distance(a, b) with vector tables
	set("distance", func(L *lua.LState) int {
		var a, b mgl64.Vec3
		if _, ok := L.Get(1).(*lua.LTable); ok {
			a, b = vec3Arg(L, 1), vec3Arg(L, 2)
		} else {
			a, b = vec3Arg(L, 1), vec3Arg(L, 4)
		}
		L.Push(lua.LNumber(a.Sub(b).Len()))
		return 1
	})
	set("round", func(L *lua.LState) int {
		L.Push(lua.LNumber(math.Round(float64(L.CheckNumber(1)))))
		return 1
	})
	set("sign", func(L *lua.LState) int {
		v := float64(L.CheckNumber(1))
		switch {
		case v > 0:
			L.Push(lua.LNumber(1))
		case v < 0:
			L.Push(lua.LNumber(-1))
		default:
			L.Push(lua.LNumber(0))
		}
		return 1
	})
	tbl.RawSetString("vec3", c.vec3API())
	return tbl
}

// vec3API works on {x, y, z} tables (arrays are accepted as input).
func (c *Context) vec3API() *lua.LTable {
	L := c.L
	tbl := L.NewTable()
	unary := func(name string, fn func(mgl64.Vec3) lua.LValue) {
		tbl.RawSetString(name, L.NewFunction(func(L *lua.LState) int {
			L.Push(fn(vec3Arg(L, 1)))
			return 1
		}))
	}
	binary := func(name string, fn func(a, b mgl64.Vec3) lua.LValue) {
		tbl.RawSetString(name, L.NewFunction(func(L *lua.LState) int {
			L.Push(fn(vec3Arg(L, 1), vec3Arg(L, 2)))
			return 1
		}))
	}

	tbl.RawSetString("new", L.NewFunction(func(L *lua.LState) int {
		L.Push(vecTable(L, mgl64.Vec3{
			float64(L.OptNumber(1, 0)),
			float64(L.OptNumber(2, 0)),
			float64(L.OptNumber(3, 0)),
		}))
		return 1
	}))
	binary("add", func(a, b mgl64.Vec3) lua.LValue { return vecTable(L, a.Add(b)) })
	binary("sub", func(a, b mgl64.Vec3) lua.LValue { return vecTable(L, a.Sub(b)) })
	binary("dot", func(a, b mgl64.Vec3) lua.LValue { return lua.LNumber(a.Dot(b)) })
	binary("cross", func(a, b mgl64.Vec3) lua.LValue { return vecTable(L, a.Cross(b)) })
	unary("length", func(v mgl64.Vec3) lua.LValue { return lua.LNumber(v.Len()) })
	unary("normalize", func(v mgl64.Vec3) lua.LValue {
		if v.Len() == 0 {
			return vecTable(L, v)
		}
		return vecTable(L, v.Normalize())
	})
	tbl.RawSetString("scale", L.NewFunction(func(L *lua.LState) int {
		L.Push(vecTable(L, vec3Arg(L, 1).Mul(float64(L.CheckNumber(2)))))
		return 1
	}))
	tbl.RawSetString("lerp", L.NewFunction(func(L *lua.LState) int {
		a, b, t := vec3Arg(L, 1), vec3Arg(L, 2), float64(L.CheckNumber(3))
		L.Push(vecTable(L, a.Add(b.Sub(a).Mul(t))))
		return 1
	}))
	return tbl
}
