package component

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/multierr"

	"github.com/vibeforge/engine/internal/core/ecs"
)

const TransformType ecs.TypeID = "Transform"

// Transform is an entity's local transform. Rotation is Euler degrees.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Vec3
	Scale    mgl64.Vec3
}

func DefaultTransform() Transform {
	return Transform{Scale: mgl64.Vec3{1, 1, 1}}
}

// Matrix composes translation * rotation(Y, X, Z) * scale.
func (t Transform) Matrix() mgl64.Mat4 {
	r := t.Rotation
	rot := mgl64.AnglesToQuat(mgl64.DegToRad(r[1]), mgl64.DegToRad(r[0]), mgl64.DegToRad(r[2]), mgl64.YXZ)
	return mgl64.Translate3D(t.Position[0], t.Position[1], t.Position[2]).
		Mul4(rot.Mat4()).
		Mul4(mgl64.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

func TransformDescriptor() ecs.Descriptor[Transform] {
	return ecs.Descriptor[Transform]{
		ID:       TransformType,
		Category: "core",
		Default:  DefaultTransform,
		Validate: func(t *Transform) error {
			var err error
			if !finite(t.Position) {
				err = multierr.Append(err, fmt.Errorf("position must be finite"))
			}
			if !finite(t.Rotation) {
				err = multierr.Append(err, fmt.Errorf("rotation must be finite"))
			}
			if !finite(t.Scale) {
				err = multierr.Append(err, fmt.Errorf("scale must be finite"))
			}
			return err
		},
		Encode: func(t *Transform) ecs.Fields {
			return ecs.Fields{
				"position": encodeVec3(t.Position),
				"rotation": encodeVec3(t.Rotation),
				"scale":    encodeVec3(t.Scale),
			}
		},
		Decode: func(f ecs.Fields) (Transform, error) {
			t := DefaultTransform()
			r := reader{f: f}
			r.vec3("position", &t.Position)
			r.vec3("rotation", &t.Rotation)
			r.vec3("scale", &t.Scale)
			return t, r.err
		},
	}
}
