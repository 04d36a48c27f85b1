package component

import (
	"fmt"

	"github.com/vibeforge/engine/internal/core/ecs"
)

const PrefabInstanceType ecs.TypeID = "PrefabInstance"

// PrefabInstance marks the root entity created from a prefab file.
type PrefabInstance struct {
	Path string
}

func PrefabInstanceDescriptor() ecs.Descriptor[PrefabInstance] {
	return ecs.Descriptor[PrefabInstance]{
		ID:       PrefabInstanceType,
		Category: "scene",
		Default:  func() PrefabInstance { return PrefabInstance{} },
		Validate: func(p *PrefabInstance) error {
			if p.Path == "" {
				return fmt.Errorf("path is required")
			}
			return nil
		},
		Encode: func(p *PrefabInstance) ecs.Fields {
			return ecs.Fields{"path": p.Path}
		},
		Decode: func(f ecs.Fields) (PrefabInstance, error) {
			var p PrefabInstance
			r := reader{f: f}
			r.str("path", &p.Path)
			return p, r.err
		},
	}
}
