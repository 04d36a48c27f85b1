package component

import (
	"fmt"
	"math"
	"regexp"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/cast"
	"go.uber.org/multierr"

	"github.com/vibeforge/engine/internal/core/ecs"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// reader pulls typed values out of loosely typed Fields. Missing keys leave
// the destination untouched so decoders start from the type's default.
// Errors accumulate; check err once at the end.
type reader struct {
	f   ecs.Fields
	err error
}

func (r *reader) fail(key string, err error) {
	r.err = multierr.Append(r.err, fmt.Errorf("%s: %w", key, err))
}

func (r *reader) float(key string, dst *float64) {
	v, ok := r.f[key]
	if !ok || v == nil {
		return
	}
	n, err := cast.ToFloat64E(v)
	if err != nil {
		r.fail(key, err)
		return
	}
	*dst = n
}

func (r *reader) str(key string, dst *string) {
	v, ok := r.f[key]
	if !ok || v == nil {
		return
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		r.fail(key, err)
		return
	}
	*dst = s
}

func (r *reader) boolean(key string, dst *bool) {
	v, ok := r.f[key]
	if !ok || v == nil {
		return
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		r.fail(key, err)
		return
	}
	*dst = b
}

func (r *reader) object(key string, dst *map[string]any) {
	v, ok := r.f[key]
	if !ok || v == nil {
		return
	}
	m, err := cast.ToStringMapE(v)
	if err != nil {
		r.fail(key, err)
		return
	}
	*dst = m
}

func (r *reader) vec3(key string, dst *mgl64.Vec3) {
	v, ok := r.f[key]
	if !ok || v == nil {
		return
	}
	vec, err := ToVec3(v)
	if err != nil {
		r.fail(key, err)
		return
	}
	*dst = vec
}

// ToVec3 accepts [x,y,z] in any numeric slice form, {x=,y=,z=} maps, or a Vec3.
func ToVec3(v any) (mgl64.Vec3, error) {
	var out mgl64.Vec3
	switch t := v.(type) {
	case mgl64.Vec3:
		return t, nil
	case []float64:
		if len(t) != 3 {
			return out, fmt.Errorf("expected 3 components, got %d", len(t))
		}
		copy(out[:], t)
		return out, nil
	case []any:
		if len(t) != 3 {
			return out, fmt.Errorf("expected 3 components, got %d", len(t))
		}
		for i, c := range t {
			n, err := cast.ToFloat64E(c)
			if err != nil {
				return out, fmt.Errorf("component %d: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		for i, k := range []string{"x", "y", "z"} {
			n, err := cast.ToFloat64E(t[k])
			if err != nil {
				return out, fmt.Errorf("component %s: %w", k, err)
			}
			out[i] = n
		}
		return out, nil
	}
	return out, fmt.Errorf("unable to cast %#v of type %T to vec3", v, v)
}

func encodeVec3(v mgl64.Vec3) []float64 {
	return []float64{v[0], v[1], v[2]}
}

func finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func oneOf(s string, allowed ...string) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

func checkColor(err error, field, color string) error {
	if color != "" && !hexColor.MatchString(color) {
		err = multierr.Append(err, fmt.Errorf("%s: %q is not a #rrggbb color", field, color))
	}
	return err
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
