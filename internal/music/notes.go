package music

import (
	"errors"
	"fmt"
	"math"
)

// Note names a pitch in the note table, e.g. "C4" or "A#4".
type Note string

// ErrUnknownNote is returned when a note name is not in the note table.
var ErrUnknownNote = errors.New("unknown note")

// Mapping between obstacle length (px) and pitch (Hz):
//
//	frequency = FrequencyFloor + LengthScale/length
//	length    = LengthScale / (frequency - FrequencyFloor)
//
// Both directions are defined only for frequency > FrequencyFloor.
const (
	LengthScale    = 20000.0
	FrequencyFloor = 200.0
)

type noteEntry struct {
	note Note
	freq float64
}

// C4..B5 in ascending pitch order.
var noteTable = []noteEntry{
	{"C4", 261.63}, {"C#4", 277.18}, {"D4", 293.66}, {"D#4", 311.13},
	{"E4", 329.63}, {"F4", 349.23}, {"F#4", 369.99}, {"G4", 392.00},
	{"G#4", 415.30}, {"A4", 440.00}, {"A#4", 466.16}, {"B4", 493.88},
	{"C5", 523.25}, {"C#5", 554.37}, {"D5", 587.33}, {"D#5", 622.25},
	{"E5", 659.25}, {"F5", 698.46}, {"F#5", 739.99}, {"G5", 783.99},
	{"G#5", 830.61}, {"A5", 880.00}, {"A#5", 932.33}, {"B5", 987.77},
}

var noteIndex = func() map[Note]float64 {
	idx := make(map[Note]float64, len(noteTable))
	for _, e := range noteTable {
		idx[e.note] = e.freq
	}
	return idx
}()

// Notes returns every note in the table, lowest first.
func Notes() []Note {
	out := make([]Note, len(noteTable))
	for i, e := range noteTable {
		out[i] = e.note
	}
	return out
}

// Known reports whether n is in the note table.
func Known(n Note) bool {
	_, ok := noteIndex[n]
	return ok
}

// FrequencyOf returns the pitch of n in Hz.
func FrequencyOf(n Note) (float64, error) {
	f, ok := noteIndex[n]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownNote, string(n))
	}
	return f, nil
}

// LengthOf returns the obstacle length that sounds n.
func LengthOf(n Note) (float64, error) {
	f, err := FrequencyOf(n)
	if err != nil {
		return 0, err
	}
	return LengthFor(f), nil
}

// LengthFor converts a frequency into an obstacle length in px.
func LengthFor(freq float64) float64 {
	return LengthScale / (freq - FrequencyFloor)
}

// FrequencyFor converts an obstacle length into the frequency it sounds.
func FrequencyFor(length float64) float64 {
	return FrequencyFloor + LengthScale/length
}

// NearestNote returns the table note closest in pitch to freq.
// On an exact tie the lower note wins.
func NearestNote(freq float64) Note {
	return nearestIn(noteTable, freq)
}

// nearestIn scans table in order, so the earlier entry wins a tie.
func nearestIn(table []noteEntry, freq float64) Note {
	best := table[0].note
	bestDist := math.Inf(1)
	for _, e := range table {
		if d := math.Abs(e.freq - freq); d < bestDist {
			best, bestDist = e.note, d
		}
	}
	return best
}
