package music

import (
	"errors"
	"fmt"
)

var ErrUnknownSong = errors.New("unknown song")

// Song is a built-in demo melody.
type Song struct {
	Name   string `json:"name"`
	Melody Melody `json:"melody"`
}

var songs = []Song{
	{"Happy Birthday", Melody{
		{"C4", 250}, {"C4", 750}, {"D4", 1000}, {"C4", 1500}, {"F4", 2000}, {"E4", 2500},
		{"C4", 3500}, {"C4", 4000}, {"D4", 4500}, {"C4", 5000}, {"G4", 5500}, {"F4", 6000},
		{"C4", 7000}, {"C4", 7500}, {"C5", 8000}, {"A4", 8500}, {"F4", 9000}, {"E4", 9500}, {"D4", 10000},
		{"A#4", 10500}, {"A#4", 11000}, {"A4", 11500}, {"F4", 12000}, {"G4", 12500}, {"F4", 13000},
	}},
	{"Twinkle Twinkle", Melody{
		{"C4", 0}, {"C4", 500}, {"G4", 1000}, {"G4", 1500}, {"A4", 2000}, {"A4", 2500}, {"G4", 3000},
		{"F4", 4000}, {"F4", 4500}, {"E4", 5000}, {"E4", 5500}, {"D4", 6000}, {"D4", 6500}, {"C4", 7000},
	}},
}

// Songs returns the demo songs in catalog order.
func Songs() []Song {
	out := make([]Song, len(songs))
	for i, s := range songs {
		out[i] = Song{Name: s.Name, Melody: s.Melody.Clone()}
	}
	return out
}

func SongNamed(name string) (Song, error) {
	for _, s := range songs {
		if s.Name == name {
			return Song{Name: s.Name, Melody: s.Melody.Clone()}, nil
		}
	}
	return Song{}, fmt.Errorf("%w: %q", ErrUnknownSong, name)
}
