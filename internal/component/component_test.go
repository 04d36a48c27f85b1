package component

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"

	"github.com/vibeforge/engine/internal/core/ecs"
)

func newWorld(t *testing.T) *ecs.World {
	t.Helper()
	w, err := ecs.NewWorld(ecs.Options{}, nil)
	require.NoError(t, err)
	require.NoError(t, RegisterBuiltins(w.Registry()))
	return w
}

func TestRegisterBuiltins(t *testing.T) {
	w := newWorld(t)
	for _, id := range []ecs.TypeID{TransformType, MeshRendererType, LightType, CameraType, ScriptType, RigidBodyType, SoundType, PrefabInstanceType} {
		require.True(t, w.Registry().IsRegistered(id), id)
	}
	err := RegisterBuiltins(w.Registry())
	require.True(t, errors.Is(err, ecs.ErrDuplicateType))
}

func TestTransform(t *testing.T) {
	w := newWorld(t)
	reg := w.Registry()
	e, err := w.Entities().Create("cube", 0, "")
	require.NoError(t, err)

	require.True(t, reg.AddComponent(e.ID, TransformType, nil))
	tr, ok := ecs.Get[Transform](reg, e.ID, TransformType)
	require.True(t, ok)
	require.Equal(t, mgl64.Vec3{1, 1, 1}, tr.Scale)

	ok = reg.UpdateComponent(e.ID, TransformType, ecs.Fields{
		"position": []any{1, 2.5, "3"},
		"rotation": map[string]any{"x": 0, "y": 90, "z": 0},
	})
	require.True(t, ok)
	tr, _ = ecs.Get[Transform](reg, e.ID, TransformType)
	require.Equal(t, mgl64.Vec3{1, 2.5, 3}, tr.Position)
	require.Equal(t, mgl64.Vec3{0, 90, 0}, tr.Rotation)
	require.Equal(t, mgl64.Vec3{1, 1, 1}, tr.Scale, "missing fields fall back to defaults")

	f, _ := reg.ComponentFields(e.ID, TransformType)
	require.Equal(t, []float64{1, 2.5, 3}, f["position"])

	t.Run("rejects non-finite and malformed vectors", func(t *testing.T) {
		require.False(t, reg.UpdateComponent(e.ID, TransformType, ecs.Fields{"position": []float64{math.NaN(), 0, 0}}))
		require.False(t, reg.UpdateComponent(e.ID, TransformType, ecs.Fields{"scale": []any{1, 2}}))
		require.False(t, reg.UpdateComponent(e.ID, TransformType, ecs.Fields{"rotation": "up"}))
		tr, _ := ecs.Get[Transform](reg, e.ID, TransformType)
		require.Equal(t, mgl64.Vec3{1, 2.5, 3}, tr.Position)
	})

	t.Run("matrix translates", func(t *testing.T) {
		m := Transform{Position: mgl64.Vec3{4, 5, 6}, Scale: mgl64.Vec3{1, 1, 1}}.Matrix()
		require.InDelta(t, 4, m.At(0, 3), 1e-9)
		require.InDelta(t, 5, m.At(1, 3), 1e-9)
		require.InDelta(t, 6, m.At(2, 3), 1e-9)
	})
}

func TestValidation(t *testing.T) {
	w := newWorld(t)
	reg := w.Registry()
	e, _ := w.Entities().Create("thing", 0, "")

	cases := []struct {
		name string
		typ  ecs.TypeID
		f    ecs.Fields
		ok   bool
	}{
		{"script needs id", ScriptType, ecs.Fields{"path": "a.lua"}, false},
		{"script ok", ScriptType, ecs.Fields{"scriptId": "spin", "parameters": map[string]any{"speed": 2}}, true},
		{"camera fov range", CameraType, ecs.Fields{"fov": 180}, false},
		{"camera far after near", CameraType, ecs.Fields{"near": 5, "far": 1}, false},
		{"camera ok", CameraType, ecs.Fields{"fov": 75, "isMain": true}, true},
		{"light type", LightType, ecs.Fields{"lightType": "laser"}, false},
		{"light color", LightType, ecs.Fields{"color": "red"}, false},
		{"light ok", LightType, ecs.Fields{"lightType": "spot", "color": "#FFAA00"}, true},
		{"mesh needs source", MeshRendererType, ecs.Fields{"meshId": ""}, false},
		{"mesh model", MeshRendererType, ecs.Fields{"meshId": "", "modelPath": "models/tree.glb"}, true},
		{"dynamic body mass", RigidBodyType, ecs.Fields{"mass": 0}, false},
		{"static body massless", RigidBodyType, ecs.Fields{"bodyType": "static", "mass": 0}, true},
		{"sound volume", SoundType, ecs.Fields{"volume": 1.5}, false},
		{"sound ok", SoundType, ecs.Fields{"url": "sfx/hit.ogg", "loop": true}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.ok, reg.AddComponent(e.ID, tc.typ, tc.f))
			if tc.ok {
				require.True(t, reg.RemoveComponent(e.ID, tc.typ))
			}
			require.False(t, reg.HasComponent(e.ID, tc.typ))
		})
	}
}

func TestScriptParametersAreCopied(t *testing.T) {
	w := newWorld(t)
	reg := w.Registry()
	e, _ := w.Entities().Create("s", 0, "")
	params := map[string]any{"speed": 1.0}
	require.True(t, reg.AddComponent(e.ID, ScriptType, ecs.Fields{"scriptId": "spin", "parameters": params}))
	params["speed"] = 9.0

	s, ok := ecs.Get[Script](reg, e.ID, ScriptType)
	require.True(t, ok)
	require.Equal(t, 1.0, s.Parameters["speed"])
	require.True(t, s.Enabled)
}

func TestIsPrimitive(t *testing.T) {
	require.True(t, IsPrimitive("cube"))
	require.False(t, IsPrimitive("teapot"))
}
