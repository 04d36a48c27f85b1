package scripting

import (
	"path"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/vibeforge/engine/internal/component"
	"github.com/vibeforge/engine/internal/core/ecs"
	"github.com/vibeforge/engine/internal/core/mutation"
)

// gameObjectAPI creates and restructures entities. Every call becomes a
// command applied at write-back; created entities get their id up front so
// the script can keep working with them this frame.
func (c *Context) gameObjectAPI() *lua.LTable {
	L := c.L
	tbl := L.NewTable()
	store := c.m.world.Entities()

	create := func(L *lua.LState, name string, parent ecs.EntityID, comps map[ecs.TypeID]ecs.Fields) int {
		id := store.Reserve()
		c.push(mutation.Command{
			Kind:       mutation.KindCreate,
			Entity:     id,
			Name:       name,
			Parent:     parent,
			Components: comps,
		})
		L.Push(c.entityProxy(id))
		return 1
	}

	// createEntity(name?, parent?)
	tbl.RawSetString("createEntity", L.NewFunction(func(L *lua.LState) int {
		parent, _ := entityArg(L, 2)
		return create(L, L.OptString(1, "Entity"), parent, nil)
	}))

	// createPrimitive(kind, {name, parent, position, rotation, scale, color, physics})
	tbl.RawSetString("createPrimitive", L.NewFunction(func(L *lua.LState) int {
		kind := L.CheckString(1)
		if !component.IsPrimitive(kind) {
			L.ArgError(1, "unknown primitive "+kind)
		}
		opts := L.OptTable(2, L.NewTable())
		comps := c.spawnComponents(opts)
		mesh := ecs.Fields{"meshId": kind}
		if color := lStr(opts, "color", ""); color != "" {
			mesh["color"] = color
		}
		comps[component.MeshRendererType] = mesh
		parent, _ := optEntity(opts)
		return create(L, lStr(opts, "name", strings.ToUpper(kind[:1])+kind[1:]), parent, comps)
	}))

	// createModel(path, {name, parent, position, rotation, scale})
	tbl.RawSetString("createModel", L.NewFunction(func(L *lua.LState) int {
		modelPath := L.CheckString(1)
		opts := L.OptTable(2, L.NewTable())
		comps := c.spawnComponents(opts)
		comps[component.MeshRendererType] = ecs.Fields{"meshId": "", "modelPath": modelPath}
		def := strings.TrimSuffix(path.Base(modelPath), path.Ext(modelPath))
		parent, _ := optEntity(opts)
		return create(L, lStr(opts, "name", def), parent, comps)
	}))

	// clone(target, {name, parent})
	tbl.RawSetString("clone", L.NewFunction(func(L *lua.LState) int {
		src, ok := entityArg(L, 1)
		if !ok || !store.Exists(src) {
			L.Push(lua.LNil)
			return 1
		}
		opts := L.OptTable(2, L.NewTable())
		id := store.Reserve()
		cmd := mutation.Command{
			Kind:   mutation.KindClone,
			Entity: id,
			Source: src,
			Name:   lStr(opts, "name", ""),
		}
		if p, ok := optEntity(opts); ok {
			cmd.Parent = p
		} else if p, ok := store.Parent(src); ok {
			cmd.Parent = p
		}
		c.push(cmd)
		L.Push(c.entityProxy(id))
		return 1
	}))

	tbl.RawSetString("destroy", L.NewFunction(func(L *lua.LState) int {
		id := checkEntity(L, 1)
		c.push(mutation.Command{Kind: mutation.KindDestroy, Entity: id})
		return 0
	}))
	// setParent(target, parent|nil)
	tbl.RawSetString("setParent", L.NewFunction(func(L *lua.LState) int {
		id := checkEntity(L, 1)
		parent, _ := entityArg(L, 2)
		c.push(mutation.Command{Kind: mutation.KindSetParent, Entity: id, Parent: parent})
		return 0
	}))
	tbl.RawSetString("setActive", L.NewFunction(func(L *lua.LState) int {
		id := checkEntity(L, 1)
		c.push(mutation.Command{Kind: mutation.KindSetActive, Entity: id, Active: L.ToBool(2)})
		return 0
	}))
	// attachComponents(target, {Type = data, ...}) adds or updates each component
	tbl.RawSetString("attachComponents", L.NewFunction(func(L *lua.LState) int {
		id := checkEntity(L, 1)
		comps := make(map[ecs.TypeID]ecs.Fields)
		L.CheckTable(2).ForEach(func(k, v lua.LValue) {
			data, _ := v.(*lua.LTable)
			var f ecs.Fields
			if data != nil {
				f = toFields(data)
			}
			comps[ecs.TypeID(k.String())] = f
		})
		c.push(mutation.Command{Kind: mutation.KindAttach, Entity: id, Components: comps})
		return 0
	}))
	return tbl
}

// spawnComponents builds the Transform (and optional RigidBody) of a new entity.
func (c *Context) spawnComponents(opts *lua.LTable) map[ecs.TypeID]ecs.Fields {
	tr := ecs.Fields{}
	for _, field := range []string{"position", "rotation", "scale"} {
		if v, ok := opts.RawGetString(field).(*lua.LTable); ok {
			tr[field] = fromLua(v)
		}
	}
	comps := map[ecs.TypeID]ecs.Fields{component.TransformType: tr}
	if phys, ok := opts.RawGetString("physics").(*lua.LTable); ok {
		comps[component.RigidBodyType] = ecs.Fields{
			"bodyType": lStr(phys, "body", "dynamic"),
			"mass":     lNum(phys, "mass", 1),
		}
	}
	return comps
}

func optEntity(opts *lua.LTable) (ecs.EntityID, bool) {
	switch v := opts.RawGetString("parent").(type) {
	case lua.LNumber:
		return ecs.EntityID(uint64(v)), true
	case *lua.LTable:
		if id, ok := v.RawGetString("id").(lua.LNumber); ok {
			return ecs.EntityID(uint64(id)), true
		}
	}
	return 0, false
}

func checkEntity(L *lua.LState, n int) ecs.EntityID {
	id, ok := entityArg(L, n)
	if !ok {
		L.ArgError(n, "entity or entity id expected")
	}
	return id
}
