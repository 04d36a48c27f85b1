package scripting

import (
	"github.com/go-gl/mathgl/mgl64"
	lua "github.com/yuin/gopher-lua"

	"github.com/vibeforge/engine/internal/component"
	"github.com/vibeforge/engine/internal/core/ecs"
	"github.com/vibeforge/engine/internal/core/mutation"
)

// argBase returns the index of the first real argument, skipping self when
// a method was called with ':'.
func argBase(L *lua.LState, self *lua.LTable) int {
	if t, ok := L.Get(1).(*lua.LTable); ok && t == self {
		return 2
	}
	return 1
}

// vec3Arg reads either a vector table or three numbers starting at n.
func vec3Arg(L *lua.LState, n int) mgl64.Vec3 {
	if t, ok := L.Get(n).(*lua.LTable); ok {
		v, err := component.ToVec3(fromLua(t))
		if err != nil {
			L.ArgError(n, err.Error())
		}
		return v
	}
	return mgl64.Vec3{
		float64(L.CheckNumber(n)),
		float64(L.CheckNumber(n + 1)),
		float64(L.CheckNumber(n + 2)),
	}
}

func pushVec3(L *lua.LState, v mgl64.Vec3) int {
	L.Push(lua.LNumber(v[0]))
	L.Push(lua.LNumber(v[1]))
	L.Push(lua.LNumber(v[2]))
	return 3
}

// entityArg accepts an entity proxy or a numeric id.
func entityArg(L *lua.LState, n int) (ecs.EntityID, bool) {
	switch v := L.Get(n).(type) {
	case lua.LNumber:
		return ecs.EntityID(uint64(v)), true
	case *lua.LTable:
		if id, ok := v.RawGetString("id").(lua.LNumber); ok {
			return ecs.EntityID(uint64(id)), true
		}
	}
	return 0, false
}

func (c *Context) transform(id ecs.EntityID) (component.Transform, bool) {
	return ecs.Get[component.Transform](c.m.world.Registry(), id, component.TransformType)
}

// pendingVec returns the vector a transform field will hold after write-back:
// the buffered value when one exists, else the committed one.
func (c *Context) pendingVec(id ecs.EntityID, field string) (mgl64.Vec3, bool) {
	if v, ok := c.m.buffer.Peek(id, component.TransformType, field); ok {
		if vec, err := component.ToVec3(v); err == nil {
			return vec, true
		}
	}
	t, ok := c.transform(id)
	if !ok {
		return mgl64.Vec3{}, false
	}
	switch field {
	case "position":
		return t.Position, true
	case "rotation":
		return t.Rotation, true
	}
	return t.Scale, true
}

func (c *Context) queueVec(id ecs.EntityID, field string, v mgl64.Vec3) {
	c.m.buffer.Queue(id, component.TransformType, field, []float64{v[0], v[1], v[2]})
}

func (c *Context) push(cmd mutation.Command) {
	cmd.Issuer = c.entity
	c.m.commands.Push(cmd)
}

// entityProxy returns the accessor table for id. Component reads see
// committed state, transform reads include buffered writes, and every write
// is buffered for write-back.
func (c *Context) entityProxy(id ecs.EntityID) *lua.LTable {
	if t, ok := c.proxies[id]; ok {
		return t
	}
	L := c.L
	tbl := L.NewTable()
	c.proxies[id] = tbl
	store := c.m.world.Entities()
	reg := c.m.world.Registry()

	tbl.RawSetString("id", lua.LNumber(id))
	if e, ok := store.Get(id); ok {
		tbl.RawSetString("name", lua.LString(e.Name))
		tbl.RawSetString("persistentId", lua.LString(e.PersistentID))
	}
	tbl.RawSetString("transform", c.transformAPI(id))

	method := func(name string, fn func(L *lua.LState, base int) int) {
		tbl.RawSetString(name, L.NewFunction(func(L *lua.LState) int {
			return fn(L, argBase(L, tbl))
		}))
	}

	method("exists", func(L *lua.LState, _ int) int {
		L.Push(lua.LBool(store.Exists(id)))
		return 1
	})
	method("getComponent", func(L *lua.LState, base int) int {
		f, ok := reg.ComponentFields(id, ecs.TypeID(L.CheckString(base)))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(toLua(L, f))
		return 1
	})
	method("hasComponent", func(L *lua.LState, base int) int {
		L.Push(lua.LBool(reg.HasComponent(id, ecs.TypeID(L.CheckString(base)))))
		return 1
	})
	method("setComponent", func(L *lua.LState, base int) int {
		typeID := ecs.TypeID(L.CheckString(base))
		fields := toFields(L.CheckTable(base + 1))
		if !reg.HasComponent(id, typeID) {
			c.push(mutation.Command{
				Kind:       mutation.KindAttach,
				Entity:     id,
				Components: map[ecs.TypeID]ecs.Fields{typeID: fields},
			})
			return 0
		}
		for _, k := range sortedKeys(fields) {
			c.m.buffer.Queue(id, typeID, k, fields[k])
		}
		return 0
	})
	method("addComponent", func(L *lua.LState, base int) int {
		typeID := ecs.TypeID(L.CheckString(base))
		if !reg.IsRegistered(typeID) {
			L.Push(lua.LFalse)
			return 1
		}
		var fields ecs.Fields
		if t, ok := L.Get(base + 1).(*lua.LTable); ok {
			fields = toFields(t)
		}
		c.push(mutation.Command{
			Kind:       mutation.KindAttach,
			Entity:     id,
			Components: map[ecs.TypeID]ecs.Fields{typeID: fields},
		})
		L.Push(lua.LTrue)
		return 1
	})
	method("removeComponent", func(L *lua.LState, base int) int {
		c.push(mutation.Command{
			Kind:      mutation.KindRemoveComponent,
			Entity:    id,
			Component: ecs.TypeID(L.CheckString(base)),
		})
		return 0
	})
	method("getParent", func(L *lua.LState, _ int) int {
		p, ok := store.Parent(id)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(c.entityProxy(p))
		return 1
	})
	method("getChildren", func(L *lua.LState, _ int) int {
		children := store.Children(id)
		out := L.CreateTable(len(children), 0)
		for _, ch := range children {
			out.Append(c.entityProxy(ch))
		}
		L.Push(out)
		return 1
	})
	method("findChild", func(L *lua.LState, base int) int {
		named := map[ecs.EntityID]bool{}
		for _, m := range store.FindByName(L.CheckString(base)) {
			named[m] = true
		}
		// direct children win over deeper matches
		for _, ch := range store.Children(id) {
			if named[ch] {
				L.Push(c.entityProxy(ch))
				return 1
			}
		}
		for _, d := range store.Descendants(id) {
			if named[d] {
				L.Push(c.entityProxy(d))
				return 1
			}
		}
		L.Push(lua.LNil)
		return 1
	})
	method("isActive", func(L *lua.LState, _ int) int {
		L.Push(lua.LBool(store.ActiveInHierarchy(id)))
		return 1
	})
	method("setActive", func(L *lua.LState, base int) int {
		c.push(mutation.Command{Kind: mutation.KindSetActive, Entity: id, Active: L.ToBool(base)})
		return 0
	})
	method("destroy", func(L *lua.LState, _ int) int {
		c.push(mutation.Command{Kind: mutation.KindDestroy, Entity: id})
		return 0
	})
	return tbl
}

// transformAPI binds entity.transform. Rotation crosses the boundary in
// radians and is stored in degrees. Getters, translate and rotate all see
// the value the field will hold after write-back: a write buffered earlier
// this frame by any script wins over the committed component.
func (c *Context) transformAPI(id ecs.EntityID) *lua.LTable {
	L := c.L
	tbl := L.NewTable()
	method := func(name string, fn func(L *lua.LState, base int) int) {
		tbl.RawSetString(name, L.NewFunction(func(L *lua.LState) int {
			return fn(L, argBase(L, tbl))
		}))
	}
	read := func(field string) (mgl64.Vec3, bool) {
		v, ok := c.pendingVec(id, field)
		if ok && field == "rotation" {
			v = degToRadVec(v)
		}
		return v, ok
	}

	for _, f := range []struct {
		field, getter, tableGetter, setter string
	}{
		{"position", "position", "getPosition", "setPosition"},
		{"rotation", "rotation", "getRotation", "setRotation"},
		{"scale", "scale", "getScale", "setScale"},
	} {
		field := f.field
		method(f.getter, func(L *lua.LState, _ int) int {
			v, ok := read(field)
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			return pushVec3(L, v)
		})
		method(f.tableGetter, func(L *lua.LState, _ int) int {
			v, ok := read(field)
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(vecTable(L, v))
			return 1
		})
		method(f.setter, func(L *lua.LState, base int) int {
			v := vec3Arg(L, base)
			if field == "rotation" {
				v = radToDegVec(v)
			}
			c.queueVec(id, field, v)
			return 0
		})
	}

	method("translate", func(L *lua.LState, base int) int {
		d := vec3Arg(L, base)
		cur, ok := c.pendingVec(id, "position")
		if !ok {
			return 0
		}
		c.queueVec(id, "position", cur.Add(d))
		return 0
	})
	method("rotate", func(L *lua.LState, base int) int {
		d := radToDegVec(vec3Arg(L, base))
		cur, ok := c.pendingVec(id, "rotation")
		if !ok {
			return 0
		}
		c.queueVec(id, "rotation", cur.Add(d))
		return 0
	})
	return tbl
}

func degToRadVec(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{mgl64.DegToRad(v[0]), mgl64.DegToRad(v[1]), mgl64.DegToRad(v[2])}
}

func radToDegVec(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{mgl64.RadToDeg(v[0]), mgl64.RadToDeg(v[1]), mgl64.RadToDeg(v[2])}
}
