package component

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/vibeforge/engine/internal/core/ecs"
)

const (
	MeshRendererType ecs.TypeID = "MeshRenderer"
	LightType        ecs.TypeID = "Light"
	CameraType       ecs.TypeID = "Camera"
)

// MeshRenderer is consumed by the renderer after write-back. Exactly one of
// MeshID (primitive or registered mesh) and ModelPath is expected.
type MeshRenderer struct {
	MeshID         string
	ModelPath      string
	MaterialID     string
	Color          string
	Enabled        bool
	CastShadows    bool
	ReceiveShadows bool
}

func MeshRendererDescriptor() ecs.Descriptor[MeshRenderer] {
	return ecs.Descriptor[MeshRenderer]{
		ID:       MeshRendererType,
		Category: "rendering",
		Default: func() MeshRenderer {
			return MeshRenderer{MeshID: "cube", Enabled: true, CastShadows: true, ReceiveShadows: true}
		},
		Validate: func(m *MeshRenderer) error {
			var err error
			if m.MeshID == "" && m.ModelPath == "" {
				err = multierr.Append(err, fmt.Errorf("meshId or modelPath is required"))
			}
			return checkColor(err, "color", m.Color)
		},
		Encode: func(m *MeshRenderer) ecs.Fields {
			return ecs.Fields{
				"meshId":         m.MeshID,
				"modelPath":      m.ModelPath,
				"materialId":     m.MaterialID,
				"color":          m.Color,
				"enabled":        m.Enabled,
				"castShadows":    m.CastShadows,
				"receiveShadows": m.ReceiveShadows,
			}
		},
		Decode: func(f ecs.Fields) (MeshRenderer, error) {
			m := MeshRenderer{Enabled: true, CastShadows: true, ReceiveShadows: true}
			r := reader{f: f}
			r.str("meshId", &m.MeshID)
			r.str("modelPath", &m.ModelPath)
			r.str("materialId", &m.MaterialID)
			r.str("color", &m.Color)
			r.boolean("enabled", &m.Enabled)
			r.boolean("castShadows", &m.CastShadows)
			r.boolean("receiveShadows", &m.ReceiveShadows)
			return m, r.err
		},
	}
}

type Light struct {
	LightType string
	Color     string
	Intensity float64
	Range     float64
	Enabled   bool
}

func LightDescriptor() ecs.Descriptor[Light] {
	return ecs.Descriptor[Light]{
		ID:       LightType,
		Category: "rendering",
		Default: func() Light {
			return Light{LightType: "point", Color: "#ffffff", Intensity: 1, Range: 10, Enabled: true}
		},
		Validate: func(l *Light) error {
			var err error
			if !oneOf(l.LightType, "directional", "point", "spot", "ambient") {
				err = multierr.Append(err, fmt.Errorf("lightType %q is not supported", l.LightType))
			}
			if l.Intensity < 0 {
				err = multierr.Append(err, fmt.Errorf("intensity must be >= 0"))
			}
			if l.Range < 0 {
				err = multierr.Append(err, fmt.Errorf("range must be >= 0"))
			}
			return checkColor(err, "color", l.Color)
		},
		Encode: func(l *Light) ecs.Fields {
			return ecs.Fields{
				"lightType": l.LightType,
				"color":     l.Color,
				"intensity": l.Intensity,
				"range":     l.Range,
				"enabled":   l.Enabled,
			}
		},
		Decode: func(f ecs.Fields) (Light, error) {
			l := Light{LightType: "point", Color: "#ffffff", Intensity: 1, Range: 10, Enabled: true}
			r := reader{f: f}
			r.str("lightType", &l.LightType)
			r.str("color", &l.Color)
			r.float("intensity", &l.Intensity)
			r.float("range", &l.Range)
			r.boolean("enabled", &l.Enabled)
			return l, r.err
		},
	}
}

type Camera struct {
	FOV    float64
	Near   float64
	Far    float64
	IsMain bool
}

func CameraDescriptor() ecs.Descriptor[Camera] {
	return ecs.Descriptor[Camera]{
		ID:       CameraType,
		Category: "rendering",
		Default:  func() Camera { return Camera{FOV: 60, Near: 0.1, Far: 1000} },
		Validate: func(c *Camera) error {
			var err error
			if c.FOV <= 0 || c.FOV >= 180 {
				err = multierr.Append(err, fmt.Errorf("fov must be in (0, 180)"))
			}
			if c.Near <= 0 {
				err = multierr.Append(err, fmt.Errorf("near must be > 0"))
			}
			if c.Far <= c.Near {
				err = multierr.Append(err, fmt.Errorf("far must be > near"))
			}
			return err
		},
		Encode: func(c *Camera) ecs.Fields {
			return ecs.Fields{"fov": c.FOV, "near": c.Near, "far": c.Far, "isMain": c.IsMain}
		},
		Decode: func(f ecs.Fields) (Camera, error) {
			c := Camera{FOV: 60, Near: 0.1, Far: 1000}
			r := reader{f: f}
			r.float("fov", &c.FOV)
			r.float("near", &c.Near)
			r.float("far", &c.Far)
			r.boolean("isMain", &c.IsMain)
			return c, r.err
		},
	}
}
