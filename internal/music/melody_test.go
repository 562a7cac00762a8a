package music

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestParseMelodyAcceptsValidText(t *testing.T) {
	m, err := ParseMelody(`[{"note":"C4","time":0},{"note":"E4","time":250.5}]`)
	if err != nil {
		t.Fatalf("ParseMelody: %v", err)
	}
	if len(m) != 2 || m[1].Note != "E4" || m[1].Time != 250.5 {
		t.Errorf("unexpected melody: %+v", m)
	}
}

func TestParseMelodyRejectsMalformedInput(t *testing.T) {
	inputs := []string{
		``,
		`   `,
		`not json`,
		`[]`,
		`{"note":"C4","time":0}`,
		`[{"note":"C4"}]`,
		`[{"time":10}]`,
		`[{"note":"C4","time":0}, null]`,
		`[{"note":null,"time":0}]`,
		`[{"note":"C4","time":"soon"}]`,
		`[{"note":"C4","time":-5}]`,
		`[{"note":"C4","time":3600001}]`,
		`[{"note":"C4","time":1e300}]`,
	}
	for _, in := range inputs {
		if _, err := ParseMelody(in); !errors.Is(err, ErrInvalidMelody) {
			t.Errorf("ParseMelody(%q): expected ErrInvalidMelody, got %v", in, err)
		}
	}
}

func TestParseMelodyRejectsTooManyEvents(t *testing.T) {
	var b strings.Builder
	b.WriteString("[")
	for i := 0; i <= MaxEvents; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"note":"C4","time":0}`)
	}
	b.WriteString("]")
	if _, err := ParseMelody(b.String()); !errors.Is(err, ErrInvalidMelody) {
		t.Errorf("expected ErrInvalidMelody for %d events, got %v", MaxEvents+1, err)
	}
}

func TestCheckBounds(t *testing.T) {
	cases := []struct {
		name string
		m    Melody
		ok   bool
	}{
		{"last allowed time", Melody{{Note: "C4", Time: MaxEventTime}}, true},
		{"too late", Melody{{Note: "C4", Time: MaxEventTime + 1}}, false},
		{"negative", Melody{{Note: "C4", Time: -1}}, false},
		{"not a number", Melody{{Note: "C4", Time: math.NaN()}}, false},
		{"too many", make(Melody, MaxEvents+1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.m.CheckBounds()
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidMelody) {
				t.Errorf("expected ErrInvalidMelody, got %v", err)
			}
		})
	}
}

func TestParseMelodyLeavesNoteCheckingToCaller(t *testing.T) {
	m, err := ParseMelody(`[{"note":"Z9","time":0}]`)
	if err != nil {
		t.Fatalf("unexpected structural error: %v", err)
	}
	if err := m.Validate(); !errors.Is(err, ErrUnknownNote) {
		t.Errorf("expected ErrUnknownNote from Validate, got %v", err)
	}
}

func TestEncodeIsIndentedAndParsesBack(t *testing.T) {
	in := Melody{{"A4", 0}, {"C5", 480}}
	text, err := in.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(text, "\n  {\n    \"note\": \"A4\",\n    \"time\": 0\n  }") {
		t.Errorf("unexpected layout:\n%s", text)
	}
	out, err := ParseMelody(text)
	if err != nil {
		t.Fatalf("ParseMelody: %v", err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestDistinctNotesSortedByPitch(t *testing.T) {
	m := Melody{{"G4", 0}, {"C4", 10}, {"G4", 20}, {"A#4", 30}, {"C4", 40}}
	notes, err := m.DistinctNotes()
	if err != nil {
		t.Fatalf("DistinctNotes: %v", err)
	}
	want := []Note{"C4", "G4", "A#4"}
	if len(notes) != len(want) {
		t.Fatalf("got %v, want %v", notes, want)
	}
	for i := range want {
		if notes[i] != want[i] {
			t.Errorf("notes[%d] = %s, want %s", i, notes[i], want[i])
		}
	}
	if m.Duration() != 40 {
		t.Errorf("Duration = %v, want 40", m.Duration())
	}
}
