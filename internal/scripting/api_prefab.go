package scripting

import (
	"path"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/vibeforge/engine/internal/component"
	"github.com/vibeforge/engine/internal/core/ecs"
	"github.com/vibeforge/engine/internal/core/mutation"
)

// prefabAPI instantiates prefab files. Instances are created at
// write-back; the returned proxy is usable right away, but the lookups
// below only see instances that already exist.
func (c *Context) prefabAPI() *lua.LTable {
	L := c.L
	tbl := L.NewTable()
	reg := c.m.world.Registry()
	store := c.m.world.Entities()

	// instantiate(path, position?, parent?)
	tbl.RawSetString("instantiate", L.NewFunction(func(L *lua.LState) int {
		prefabPath := L.CheckString(1)
		if c.m.opts.Prefabs == nil {
			c.log.Warn("prefab.instantiate without a prefab source", zap.String("prefab", prefabPath))
			L.Push(lua.LNil)
			return 1
		}
		doc, err := c.m.opts.Prefabs.Load(prefabPath)
		if err != nil {
			c.log.Error("prefab load failed", zap.String("prefab", prefabPath), zap.Error(err))
			L.Push(lua.LNil)
			return 1
		}
		tr := ecs.Fields{}
		if _, ok := L.Get(2).(*lua.LTable); ok {
			p := vec3Arg(L, 2)
			tr["position"] = []float64{p[0], p[1], p[2]}
		}
		parent, _ := entityArg(L, 3)
		name := doc.Name
		if name == "" {
			name = strings.TrimSuffix(path.Base(prefabPath), path.Ext(prefabPath))
		}
		id := store.Reserve()
		c.push(mutation.Command{
			Kind:   mutation.KindInstantiate,
			Entity: id,
			Name:   name,
			Parent: parent,
			Prefab: prefabPath,
			Components: map[ecs.TypeID]ecs.Fields{
				component.TransformType:      tr,
				component.PrefabInstanceType: {"path": prefabPath},
			},
		})
		L.Push(c.entityProxy(id))
		return 1
	}))

	instancePath := func(id ecs.EntityID) (string, bool) {
		p, ok := ecs.Get[component.PrefabInstance](reg, id, component.PrefabInstanceType)
		return p.Path, ok
	}

	tbl.RawSetString("destroy", L.NewFunction(func(L *lua.LState) int {
		id := checkEntity(L, 1)
		if _, ok := instancePath(id); !ok {
			L.Push(lua.LFalse)
			return 1
		}
		c.push(mutation.Command{Kind: mutation.KindDestroy, Entity: id})
		L.Push(lua.LTrue)
		return 1
	}))
	tbl.RawSetString("getInstances", L.NewFunction(func(L *lua.LState) int {
		want := L.CheckString(1)
		out := L.NewTable()
		for _, id := range reg.EntitiesWith(component.PrefabInstanceType) {
			if p, ok := instancePath(id); ok && p == want {
				out.Append(c.entityProxy(id))
			}
		}
		L.Push(out)
		return 1
	}))
	tbl.RawSetString("isInstance", L.NewFunction(func(L *lua.LState) int {
		_, ok := instancePath(checkEntity(L, 1))
		L.Push(lua.LBool(ok))
		return 1
	}))
	tbl.RawSetString("getPath", L.NewFunction(func(L *lua.LState) int {
		p, ok := instancePath(checkEntity(L, 1))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(p))
		return 1
	}))
	return tbl
}
