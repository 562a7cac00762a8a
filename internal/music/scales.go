package music

import (
	"errors"
	"fmt"
)

var ErrUnknownScale = errors.New("unknown scale")

// Scale is a named, ordered set of notes laid out together on the canvas.
type Scale struct {
	Name  string `json:"name"`
	Notes []Note `json:"notes"`
}

// DefaultScale is the scale selected for a new session.
const DefaultScale = "chromatic"

var scales = []Scale{
	{"chromatic", []Note{"C4", "C#4", "D4", "D#4", "E4", "F4", "F#4", "G4", "G#4", "A4", "A#4", "B4", "C5"}},
	{"bigChromatic", Notes()},
	{"major", []Note{"C4", "D4", "E4", "F4", "G4", "A4", "B4", "C5"}},
	{"minor", []Note{"C4", "D4", "D#4", "F4", "G4", "G#4", "A#4", "C5"}},
	{"pentatonic", []Note{"C4", "D4", "E4", "G4", "A4", "C5"}},
	{"blues", []Note{"C4", "D#4", "F4", "F#4", "G4", "A#4", "C5"}},
	{"harmonicMinor", []Note{"C4", "D4", "D#4", "F4", "G4", "G#4", "B4", "C5"}},
	{"melodicMinor", []Note{"C4", "D4", "D#4", "F4", "G4", "A4", "B4", "C5"}},
	{"ionian", []Note{"C4", "D4", "E4", "F4", "G4", "A4", "B4", "C5"}},
}

// Scales returns the built-in scales in catalog order.
func Scales() []Scale {
	out := make([]Scale, len(scales))
	for i, s := range scales {
		out[i] = Scale{Name: s.Name, Notes: append([]Note(nil), s.Notes...)}
	}
	return out
}

func ScaleNamed(name string) (Scale, error) {
	for _, s := range scales {
		if s.Name == name {
			return Scale{Name: s.Name, Notes: append([]Note(nil), s.Notes...)}, nil
		}
	}
	return Scale{}, fmt.Errorf("%w: %q", ErrUnknownScale, name)
}
