package component

import (
	"fmt"

	"github.com/vibeforge/engine/internal/core/ecs"
)

// Primitives recognised by GameObject.createPrimitive.
var Primitives = []string{"cube", "sphere", "plane", "cylinder", "cone", "torus", "capsule"}

func IsPrimitive(kind string) bool {
	return oneOf(kind, Primitives...)
}

// RegisterBuiltins registers every built-in component type with reg.
func RegisterBuiltins(reg *ecs.Registry) error {
	steps := []func() error{
		func() error { return ecs.Register(reg, TransformDescriptor()) },
		func() error { return ecs.Register(reg, MeshRendererDescriptor()) },
		func() error { return ecs.Register(reg, LightDescriptor()) },
		func() error { return ecs.Register(reg, CameraDescriptor()) },
		func() error { return ecs.Register(reg, ScriptDescriptor()) },
		func() error { return ecs.Register(reg, RigidBodyDescriptor()) },
		func() error { return ecs.Register(reg, SoundDescriptor()) },
		func() error { return ecs.Register(reg, PrefabInstanceDescriptor()) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("register builtins: %w", err)
		}
	}
	return nil
}
