package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/vibeforge/engine/internal/core/ecs"
)

func idList(L *lua.LState, ids []ecs.EntityID) *lua.LTable {
	out := L.CreateTable(len(ids), 0)
	for _, id := range ids {
		out.Append(lua.LNumber(id))
	}
	return out
}

// queryAPI answers lookups against committed state. Ids are returned as
// numbers; getEntity turns one into an accessor.
func (c *Context) queryAPI() *lua.LTable {
	L := c.L
	tbl := L.NewTable()
	store := c.m.world.Entities()
	tbl.RawSetString("findByName", L.NewFunction(func(L *lua.LState) int {
		L.Push(idList(L, store.FindByName(L.CheckString(1))))
		return 1
	}))
	tbl.RawSetString("findByPersistentId", L.NewFunction(func(L *lua.LState) int {
		id, ok := store.FindByPersistentID(L.CheckString(1))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LNumber(id))
		return 1
	}))
	tbl.RawSetString("withComponent", L.NewFunction(func(L *lua.LState) int {
		L.Push(idList(L, c.m.world.Registry().EntitiesWith(ecs.TypeID(L.CheckString(1)))))
		return 1
	}))
	tbl.RawSetString("getEntity", L.NewFunction(func(L *lua.LState) int {
		id, ok := entityArg(L, 1)
		if !ok || !store.Exists(id) {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(c.entityProxy(id))
		return 1
	}))
	// raycastFirst(origin, direction[, maxDistance]) -> {entity, point, distance} | nil
	tbl.RawSetString("raycastFirst", L.NewFunction(func(L *lua.LState) int {
		origin, dir := vec3Arg(L, 1), vec3Arg(L, 2)
		maxDist := float64(L.OptNumber(3, 0))
		if c.m.opts.Spatial == nil || dir.Len() == 0 {
			L.Push(lua.LNil)
			return 1
		}
		hit, ok := c.m.opts.Spatial.RaycastFirst(Ray{Origin: origin, Direction: dir.Normalize(), MaxDistance: maxDist})
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		res := L.CreateTable(0, 3)
		res.RawSetString("entity", lua.LNumber(hit.Entity))
		res.RawSetString("point", vecTable(L, hit.Point))
		res.RawSetString("distance", lua.LNumber(hit.Distance))
		L.Push(res)
		return 1
	}))
	return tbl
}
