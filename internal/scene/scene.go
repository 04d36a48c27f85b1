// Package scene converts between the live World and the serialized scene
// tree used by scene files, prefabs and the scene repository.
package scene

import (
	"errors"
	"fmt"

	"github.com/vibeforge/engine/internal/core/ecs"
)

// FormatVersion is written into every exported Document.
const FormatVersion = 1

var ErrUnsupportedFormat = errors.New("unsupported scene format")

// Node is one serialized entity. Components map a type id to its field data.
type Node struct {
	Name         string                    `json:"name" yaml:"name"`
	PersistentID string                    `json:"persistentId,omitempty" yaml:"persistentId,omitempty"`
	Active       *bool                     `json:"active,omitempty" yaml:"active,omitempty"`
	Components   map[string]map[string]any `json:"components,omitempty" yaml:"components,omitempty"`
	Children     []Node                    `json:"children,omitempty" yaml:"children,omitempty"`
}

// Document is a whole scene: its root nodes plus metadata.
type Document struct {
	Name     string `json:"name" yaml:"name"`
	Version  int    `json:"version" yaml:"version"`
	Entities []Node `json:"entities" yaml:"entities"`
}

// Import creates nodes (recursively) under parent, 0 meaning the root.
// It is all-or-nothing: on the first failure every entity created by this
// call is deleted again and the error is returned.
func Import(w *ecs.World, nodes []Node, parent ecs.EntityID) ([]ecs.EntityID, error) {
	store := w.Entities()
	if parent != 0 && !store.Exists(parent) {
		return nil, fmt.Errorf("import: %w: %d", ecs.ErrInvalidParent, parent)
	}
	roots := make([]ecs.EntityID, 0, len(nodes))
	for i := range nodes {
		id, err := importNode(w, &nodes[i], parent)
		if id != 0 {
			roots = append(roots, id)
		}
		if err != nil {
			for _, r := range roots {
				store.Delete(r)
			}
			return nil, fmt.Errorf("import: %w", err)
		}
	}
	return roots, nil
}

// importNode returns the id it created even on failure so the caller can
// roll it back.
func importNode(w *ecs.World, n *Node, parent ecs.EntityID) (ecs.EntityID, error) {
	store := w.Entities()
	reg := w.Registry()
	e, err := store.Create(n.Name, parent, n.PersistentID)
	if err != nil {
		return 0, fmt.Errorf("entity %q: %w", n.Name, err)
	}
	for _, t := range sortedKeys(n.Components) {
		typeID := ecs.TypeID(t)
		if !reg.IsRegistered(typeID) {
			return e.ID, fmt.Errorf("entity %q: %w: %s", n.Name, ecs.ErrUnknownType, t)
		}
		if !reg.AddComponent(e.ID, typeID, ecs.Fields(n.Components[t])) {
			return e.ID, fmt.Errorf("entity %q: %w: %s", n.Name, ecs.ErrValidation, t)
		}
	}
	if n.Active != nil && !*n.Active {
		store.SetActive(e.ID, false)
	}
	for i := range n.Children {
		if _, err := importNode(w, &n.Children[i], e.ID); err != nil {
			return e.ID, err
		}
	}
	return e.ID, nil
}

// Export serializes the subtrees rooted at ids. Missing ids are skipped.
func Export(w *ecs.World, ids []ecs.EntityID) []Node {
	out := make([]Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := exportNode(w, id); ok {
			out = append(out, n)
		}
	}
	return out
}

// ExportWorld serializes every root of the world.
func ExportWorld(w *ecs.World, name string) *Document {
	return &Document{
		Name:     name,
		Version:  FormatVersion,
		Entities: Export(w, w.Entities().Roots()),
	}
}

func exportNode(w *ecs.World, id ecs.EntityID) (Node, bool) {
	e, ok := w.Entities().Get(id)
	if !ok {
		return Node{}, false
	}
	reg := w.Registry()
	n := Node{Name: e.Name, PersistentID: e.PersistentID}
	if !e.Active {
		inactive := false
		n.Active = &inactive
	}
	for _, t := range reg.ComponentTypes(id) {
		if reg.IsReadOnly(t) {
			continue
		}
		f, ok := reg.ComponentFields(id, t)
		if !ok {
			continue
		}
		if n.Components == nil {
			n.Components = make(map[string]map[string]any)
		}
		n.Components[string(t)] = map[string]any(f)
	}
	if kids := Export(w, e.Children); len(kids) > 0 {
		n.Children = kids
	}
	return n, true
}
