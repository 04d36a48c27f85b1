package component

import (
	"fmt"

	"github.com/vibeforge/engine/internal/core/ecs"
)

const ScriptType ecs.TypeID = "Script"

// Script attaches a behavior script to an entity. Source holds inline code;
// otherwise Path is resolved against the configured scripts directory.
type Script struct {
	ScriptID   string
	Path       string
	Source     string
	Parameters map[string]any
	Enabled    bool
}

func ScriptDescriptor() ecs.Descriptor[Script] {
	return ecs.Descriptor[Script]{
		ID:       ScriptType,
		Category: "scripting",
		Default:  func() Script { return Script{Enabled: true} },
		Validate: func(s *Script) error {
			if s.ScriptID == "" {
				return fmt.Errorf("scriptId is required")
			}
			return nil
		},
		Encode: func(s *Script) ecs.Fields {
			f := ecs.Fields{
				"scriptId": s.ScriptID,
				"enabled":  s.Enabled,
			}
			if s.Path != "" {
				f["path"] = s.Path
			}
			if s.Source != "" {
				f["source"] = s.Source
			}
			if s.Parameters != nil {
				f["parameters"] = copyMap(s.Parameters)
			}
			return f
		},
		Decode: func(f ecs.Fields) (Script, error) {
			s := Script{Enabled: true}
			r := reader{f: f}
			r.str("scriptId", &s.ScriptID)
			r.str("path", &s.Path)
			r.str("source", &s.Source)
			r.object("parameters", &s.Parameters)
			r.boolean("enabled", &s.Enabled)
			s.Parameters = copyMap(s.Parameters)
			return s, r.err
		},
	}
}
