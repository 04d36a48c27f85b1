package scripting

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/cast"
	lua "github.com/yuin/gopher-lua"

	"github.com/vibeforge/engine/internal/core/ecs"
)

// maxConvertDepth bounds table nesting when crossing the Lua/Go boundary.
// Deeper values (and cycles) are cut off as nil.
const maxConvertDepth = 32

// toLua converts a Go value from component data or an event payload.
func toLua(L *lua.LState, v any) lua.LValue {
	return toLuaDepth(L, v, 0)
}

func toLuaDepth(L *lua.LState, v any, depth int) lua.LValue {
	if depth > maxConvertDepth {
		return lua.LNil
	}
	switch t := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return t
	case bool:
		return lua.LBool(t)
	case string:
		return lua.LString(t)
	case float64:
		return lua.LNumber(t)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32:
		return lua.LNumber(cast.ToFloat64(t))
	case ecs.EntityID:
		return lua.LNumber(t)
	case mgl64.Vec3:
		return vecTable(L, t)
	case []float64:
		tbl := L.CreateTable(len(t), 0)
		for _, n := range t {
			tbl.Append(lua.LNumber(n))
		}
		return tbl
	case []string:
		tbl := L.CreateTable(len(t), 0)
		for _, s := range t {
			tbl.Append(lua.LString(s))
		}
		return tbl
	case []any:
		tbl := L.CreateTable(len(t), 0)
		for _, e := range t {
			tbl.Append(toLuaDepth(L, e, depth+1))
		}
		return tbl
	case ecs.Fields:
		return mapTable(L, t, depth)
	case map[string]any:
		return mapTable(L, t, depth)
	}
	return lua.LString(fmt.Sprint(v))
}

func mapTable(L *lua.LState, m map[string]any, depth int) *lua.LTable {
	tbl := L.CreateTable(0, len(m))
	for k, e := range m {
		tbl.RawSetString(k, toLuaDepth(L, e, depth+1))
	}
	return tbl
}

func vecTable(L *lua.LState, v mgl64.Vec3) *lua.LTable {
	tbl := L.CreateTable(0, 3)
	tbl.RawSetString("x", lua.LNumber(v[0]))
	tbl.RawSetString("y", lua.LNumber(v[1]))
	tbl.RawSetString("z", lua.LNumber(v[2]))
	return tbl
}

// fromLua converts a Lua value into plain Go data: sequences become []any,
// other tables map[string]any, numbers float64. Functions, userdata and
// threads do not cross and become nil.
func fromLua(v lua.LValue) any {
	return fromLuaDepth(v, 0)
}

func fromLuaDepth(v lua.LValue, depth int) any {
	if depth > maxConvertDepth {
		return nil
	}
	switch t := v.(type) {
	case lua.LBool:
		return bool(t)
	case lua.LNumber:
		return float64(t)
	case lua.LString:
		return string(t)
	case *lua.LTable:
		if n := sequenceLen(t); n > 0 {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, fromLuaDepth(t.RawGetInt(i), depth+1))
			}
			return out
		}
		out := make(map[string]any)
		t.ForEach(func(k, e lua.LValue) {
			if e.Type() == lua.LTFunction {
				return
			}
			out[k.String()] = fromLuaDepth(e, depth+1)
		})
		return out
	}
	return nil
}

// sequenceLen returns n when the table's keys are exactly 1..n, else 0.
func sequenceLen(t *lua.LTable) int {
	n := t.MaxN()
	if n == 0 {
		return 0
	}
	count := 0
	t.ForEach(func(lua.LValue, lua.LValue) { count++ })
	if count != n {
		return 0
	}
	return n
}

// toFields converts a Lua table to component Fields.
func toFields(t *lua.LTable) ecs.Fields {
	m, ok := fromLua(t).(map[string]any)
	if !ok {
		return ecs.Fields{}
	}
	return ecs.Fields(m)
}

// sortedKeys is used where deterministic iteration over Fields matters.
func sortedKeys(f ecs.Fields) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
