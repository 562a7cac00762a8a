package music

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidMelody is returned when melody text fails structural validation.
var ErrInvalidMelody = errors.New("invalid melody")

// Bounds on a melody's size. Later events or longer lists are rejected
// before they reach the scheduler, the library or the renderer.
const (
	MaxEventTime = 3_600_000.0 // one hour, in ms
	MaxEvents    = 10_000
)

// Event is one note of a melody, Time in ms from the melody start.
type Event struct {
	Note Note    `json:"note"`
	Time float64 `json:"time"`
}

// Melody is an ordered list of note events.
type Melody []Event

func (m Melody) Clone() Melody {
	if m == nil {
		return nil
	}
	return append(Melody(nil), m...)
}

// Duration returns the time of the latest event in ms.
func (m Melody) Duration() float64 {
	var d float64
	for _, e := range m {
		if e.Time > d {
			d = e.Time
		}
	}
	return d
}

// Validate checks every note against the table.
func (m Melody) Validate() error {
	for i, e := range m {
		if !Known(e.Note) {
			return fmt.Errorf("event %d: %w: %q", i, ErrUnknownNote, string(e.Note))
		}
	}
	return nil
}

// CheckBounds rejects melodies with too many events or an event time that is
// negative, not a number or past MaxEventTime.
func (m Melody) CheckBounds() error {
	if len(m) > MaxEvents {
		return fmt.Errorf("%w: %d events, limit %d", ErrInvalidMelody, len(m), MaxEvents)
	}
	for i, e := range m {
		if !(e.Time >= 0 && e.Time <= MaxEventTime) {
			return fmt.Errorf("%w: event %d time %v out of range", ErrInvalidMelody, i, e.Time)
		}
	}
	return nil
}

// DistinctNotes returns the notes used by m, lowest pitch first.
func (m Melody) DistinctNotes() ([]Note, error) {
	seen := make(map[Note]bool)
	var out []Note
	for _, e := range m {
		if seen[e.Note] {
			continue
		}
		if !Known(e.Note) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownNote, string(e.Note))
		}
		seen[e.Note] = true
		out = append(out, e.Note)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return noteIndex[out[i]] < noteIndex[out[j]]
	})
	return out, nil
}

// Encode renders m as indented JSON with two-space indentation.
func (m Melody) Encode() (string, error) {
	if m == nil {
		m = Melody{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseMelody decodes melody text. The text must be a non-empty JSON array
// whose records each carry a string "note" and a numeric "time" in
// [0, MaxEventTime], with at most MaxEvents records.
// Note names are not checked against the table here.
func ParseMelody(text string) (Melody, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidMelody)
	}

	var records []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMelody, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no events", ErrInvalidMelody)
	}
	if len(records) > MaxEvents {
		return nil, fmt.Errorf("%w: %d events, limit %d", ErrInvalidMelody, len(records), MaxEvents)
	}

	out := make(Melody, 0, len(records))
	for i, rec := range records {
		rawNote, hasNote := rec["note"]
		rawTime, hasTime := rec["time"]
		if !hasNote || !hasTime || isNull(rawNote) || isNull(rawTime) {
			return nil, fmt.Errorf("%w: event %d needs note and time", ErrInvalidMelody, i)
		}
		var ev Event
		if err := json.Unmarshal(rawNote, &ev.Note); err != nil {
			return nil, fmt.Errorf("%w: event %d note: %v", ErrInvalidMelody, i, err)
		}
		if err := json.Unmarshal(rawTime, &ev.Time); err != nil {
			return nil, fmt.Errorf("%w: event %d time: %v", ErrInvalidMelody, i, err)
		}
		if ev.Time < 0 {
			return nil, fmt.Errorf("%w: event %d has negative time", ErrInvalidMelody, i)
		}
		if ev.Time > MaxEventTime {
			return nil, fmt.Errorf("%w: event %d time past %v ms", ErrInvalidMelody, i, MaxEventTime)
		}
		out = append(out, ev)
	}
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
