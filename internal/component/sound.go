package component

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/vibeforge/engine/internal/core/ecs"
)

const SoundType ecs.TypeID = "Sound"

type Sound struct {
	URL      string
	Volume   float64
	Pitch    float64
	Loop     bool
	Autoplay bool
}

func SoundDescriptor() ecs.Descriptor[Sound] {
	return ecs.Descriptor[Sound]{
		ID:       SoundType,
		Category: "audio",
		Default:  func() Sound { return Sound{Volume: 1, Pitch: 1} },
		Validate: func(s *Sound) error {
			var err error
			if s.Volume < 0 || s.Volume > 1 {
				err = multierr.Append(err, fmt.Errorf("volume must be in [0, 1]"))
			}
			if s.Pitch <= 0 {
				err = multierr.Append(err, fmt.Errorf("pitch must be > 0"))
			}
			return err
		},
		Encode: func(s *Sound) ecs.Fields {
			return ecs.Fields{
				"url":      s.URL,
				"volume":   s.Volume,
				"pitch":    s.Pitch,
				"loop":     s.Loop,
				"autoplay": s.Autoplay,
			}
		},
		Decode: func(f ecs.Fields) (Sound, error) {
			s := Sound{Volume: 1, Pitch: 1}
			r := reader{f: f}
			r.str("url", &s.URL)
			r.float("volume", &s.Volume)
			r.float("pitch", &s.Pitch)
			r.boolean("loop", &s.Loop)
			r.boolean("autoplay", &s.Autoplay)
			return s, r.err
		},
	}
}
