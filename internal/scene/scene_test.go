package scene

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vibeforge/engine/internal/component"
	"github.com/vibeforge/engine/internal/core/ecs"
)

const sampleJSON = `{
  "name": "level-1",
  "version": 1,
  "entities": [
    {
      "name": "Player",
      "persistentId": "player",
      "components": {
        "Transform": {"position": [1, 2, 3]},
        "Script": {"scriptId": "player", "path": "player.lua", "parameters": {"speed": 4}}
      },
      "children": [
        {"name": "Camera", "components": {"Camera": {"fov": 70, "isMain": true}}},
        {"name": "Torch", "active": false, "components": {"Light": {"lightType": "point", "range": 5}}}
      ]
    },
    {"name": "Floor", "components": {"MeshRenderer": {"meshId": "plane", "color": "#808080"}}}
  ]
}`

func newWorld(t *testing.T) *ecs.World {
	t.Helper()
	w, err := ecs.NewWorld(ecs.Options{}, nil)
	require.NoError(t, err)
	require.NoError(t, component.RegisterBuiltins(w.Registry()))
	return w
}

func TestImport(t *testing.T) {
	doc, err := Decode([]byte(sampleJSON), FormatJSON)
	require.NoError(t, err)
	w := newWorld(t)

	roots, err := Import(w, doc.Entities, 0)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	store := w.Entities()
	require.Equal(t, 4, store.Count())

	player, ok := store.FindByPersistentID("player")
	require.True(t, ok)
	require.Equal(t, roots[0], player)
	kids := store.Children(player)
	require.Len(t, kids, 2)
	torch, _ := store.Get(kids[1])
	require.Equal(t, "Torch", torch.Name)
	require.False(t, torch.Active)

	tr, ok := ecs.Get[component.Transform](w.Registry(), player, component.TransformType)
	require.True(t, ok)
	require.Equal(t, 3.0, tr.Position.Z())
	sc, ok := ecs.Get[component.Script](w.Registry(), player, component.ScriptType)
	require.True(t, ok)
	require.Equal(t, 4.0, sc.Parameters["speed"])
}

func TestImport_AllOrNothing(t *testing.T) {
	w := newWorld(t)
	existing, err := w.Entities().Create("Existing", 0, "")
	require.NoError(t, err)

	nodes := []Node{
		{Name: "Good", Children: []Node{{Name: "Child"}}},
		{Name: "Bad", Children: []Node{
			{Name: "Camera", Components: map[string]map[string]any{"Camera": {"fov": 500}}},
		}},
	}
	_, err = Import(w, nodes, 0)
	require.True(t, errors.Is(err, ecs.ErrValidation))
	require.Equal(t, []ecs.EntityID{existing.ID}, w.Entities().Roots())
	require.Equal(t, 1, w.Entities().Count())
	require.Empty(t, w.Registry().EntitiesWith(component.CameraType))

	_, err = Import(w, []Node{{Name: "X", Components: map[string]map[string]any{"Hologram": {}}}}, 0)
	require.True(t, errors.Is(err, ecs.ErrUnknownType))

	_, err = Import(w, []Node{{Name: "A", PersistentID: "dup"}, {Name: "B", PersistentID: "dup"}}, 0)
	require.True(t, errors.Is(err, ecs.ErrDuplicateID))
	_, found := w.Entities().FindByPersistentID("dup")
	require.False(t, found)

	_, err = Import(w, nodes[:1], ecs.EntityID(9999))
	require.True(t, errors.Is(err, ecs.ErrInvalidParent))
	require.Equal(t, 1, w.Entities().Count())
}

func TestImport_UnderParent(t *testing.T) {
	w := newWorld(t)
	parent, err := w.Entities().Create("Prefabs", 0, "")
	require.NoError(t, err)
	ids, err := Import(w, []Node{{Name: "Crate"}}, parent.ID)
	require.NoError(t, err)
	require.Equal(t, ids, w.Entities().Children(parent.ID))
}

func TestRoundTrip(t *testing.T) {
	doc, err := Decode([]byte(sampleJSON), FormatJSON)
	require.NoError(t, err)
	w := newWorld(t)
	_, err = Import(w, doc.Entities, 0)
	require.NoError(t, err)
	first := ExportWorld(w, "level-1")
	require.Equal(t, FormatVersion, first.Version)
	require.Len(t, first.Entities, 2)
	require.NotContains(t, first.Entities[0].Components, string(ecs.MetaType))
	require.NotNil(t, first.Entities[0].Children[1].Active)

	for _, name := range []string{"scene.json", "scene.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Save(path, first))
			loaded, err := Load(path)
			require.NoError(t, err)
			require.Equal(t, "level-1", loaded.Name)

			w2 := newWorld(t)
			_, err = Import(w2, loaded.Entities, 0)
			require.NoError(t, err)
			// YAML turns whole floats into ints, so compare the JSON forms
			want, err := Encode(first, FormatJSON)
			require.NoError(t, err)
			got, err := Encode(ExportWorld(w2, "level-1"), FormatJSON)
			require.NoError(t, err)
			require.JSONEq(t, string(want), string(got))
		})
	}
}

func TestFormats(t *testing.T) {
	_, err := FormatForPath("scene.txt")
	require.True(t, errors.Is(err, ErrUnsupportedFormat))
	f, err := FormatForPath("Scene.YML")
	require.NoError(t, err)
	require.Equal(t, FormatYAML, f)

	_, err = Decode([]byte("{"), FormatJSON)
	require.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestChanges(t *testing.T) {
	w := newWorld(t)
	e, err := w.Entities().Create("Cube", 0, "cube")
	require.NoError(t, err)
	require.True(t, w.Registry().AddComponent(e.ID, component.TransformType, nil))

	a, err := Encode(ExportWorld(w, "s"), FormatJSON)
	require.NoError(t, err)
	same, err := Encode(ExportWorld(w, "s"), FormatJSON)
	require.NoError(t, err)
	n, err := Changes(a, same)
	require.NoError(t, err)
	require.Zero(t, n)

	require.True(t, w.Registry().UpdateComponent(e.ID, component.TransformType, ecs.Fields{"position": []float64{0, 5, 0}}))
	b, err := Encode(ExportWorld(w, "s"), FormatJSON)
	require.NoError(t, err)
	n, err = Changes(a, b)
	require.NoError(t, err)
	require.Positive(t, n)
}

func TestLibrary(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "props"), 0o755))
	path := filepath.Join(dir, "props", "crate.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o644))
	lib := NewLibrary(dir)

	doc, err := lib.Load("props/crate.json")
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))
	cached, err := lib.Load("props/./crate.json")
	require.NoError(t, err)
	require.Same(t, doc, cached)

	lib.Forget()
	_, err = lib.Load("props/crate.json")
	require.ErrorIs(t, err, fs.ErrNotExist)

	for _, bad := range []string{"../outside.json", "/etc/passwd", ""} {
		_, err := lib.Load(bad)
		require.ErrorIs(t, err, ErrInvalidPrefabPath, bad)
	}

	t.Run("instances import twice", func(t *testing.T) {
		w := newWorld(t)
		for i := 0; i < 2; i++ {
			_, err := Import(w, Instance(doc.Entities), 0)
			require.NoError(t, err)
		}
		require.NotEmpty(t, doc.Entities[0].PersistentID, "source document untouched")
	})
}
