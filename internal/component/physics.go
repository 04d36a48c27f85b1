package component

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/vibeforge/engine/internal/core/ecs"
)

const RigidBodyType ecs.TypeID = "RigidBody"

type RigidBody struct {
	BodyType     string
	Mass         float64
	GravityScale float64
	Enabled      bool
}

func RigidBodyDescriptor() ecs.Descriptor[RigidBody] {
	return ecs.Descriptor[RigidBody]{
		ID:       RigidBodyType,
		Category: "physics",
		Default: func() RigidBody {
			return RigidBody{BodyType: "dynamic", Mass: 1, GravityScale: 1, Enabled: true}
		},
		Validate: func(b *RigidBody) error {
			var err error
			if !oneOf(b.BodyType, "dynamic", "static", "kinematic") {
				err = multierr.Append(err, fmt.Errorf("bodyType %q is not supported", b.BodyType))
			}
			switch {
			case b.Mass < 0:
				err = multierr.Append(err, fmt.Errorf("mass must be >= 0"))
			case b.BodyType == "dynamic" && b.Mass == 0:
				err = multierr.Append(err, fmt.Errorf("dynamic bodies need mass > 0"))
			}
			return err
		},
		Encode: func(b *RigidBody) ecs.Fields {
			return ecs.Fields{
				"bodyType":     b.BodyType,
				"mass":         b.Mass,
				"gravityScale": b.GravityScale,
				"enabled":      b.Enabled,
			}
		},
		Decode: func(f ecs.Fields) (RigidBody, error) {
			b := RigidBody{BodyType: "dynamic", Mass: 1, GravityScale: 1, Enabled: true}
			r := reader{f: f}
			r.str("bodyType", &b.BodyType)
			r.float("mass", &b.Mass)
			r.float("gravityScale", &b.GravityScale)
			r.boolean("enabled", &b.Enabled)
			return b, r.err
		},
	}
}
