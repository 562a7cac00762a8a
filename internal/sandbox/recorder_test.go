package sandbox

import (
	"errors"
	"testing"
	"time"

	"github.com/linechime/backend/internal/music"
	"github.com/linechime/backend/internal/physics"
)

func TestRecorderCapturesStrike(t *testing.T) {
	var events []Event
	s := newTestSession(&events)
	length, _ := music.LengthOf("A4")
	line := s.AddLine(LineSpec{Center: physics.NewVec2(300, 300), Length: length, Template: "A4"})
	ball := s.SpawnBall(physics.NewVec2(300, 290))

	if !s.ToggleRecording() {
		t.Fatal("recorder should be armed")
	}
	s.dispatch([]physics.Collision{{A: ball, B: line}})

	m := s.RecordedMelody()
	if len(m) != 1 || m[0].Note != "A4" || m[0].Time != 0 {
		t.Fatalf("recorded %+v, want [A4 @ 0]", m)
	}

	var tone *Event
	for i := range events {
		if events[i].Type == EventTone {
			tone = &events[i]
		}
	}
	if tone == nil {
		t.Fatal("no tone event")
	}
	if tone.Fields["note"] != music.Note("A4") {
		t.Errorf("tone note = %v", tone.Fields["note"])
	}
}

func TestRecorderCapturesScheduledDrop(t *testing.T) {
	s := newTestSession(nil)
	s.ToggleRecording()
	if err := s.PlayMelody(music.Melody{{Note: "A4", Time: 0}}); err != nil {
		t.Fatal(err)
	}

	s.Advance(1500 * time.Millisecond)

	m := s.RecordedMelody()
	if len(m) != 1 {
		t.Fatalf("recorded %d notes, want 1: %+v", len(m), m)
	}
	if m[0].Note != "A4" {
		t.Errorf("note = %s, want A4", m[0].Note)
	}
	// the ball falls about 140px before it strikes
	if m[0].Time <= 0 || m[0].Time > 1000 {
		t.Errorf("strike time = %vms", m[0].Time)
	}
	if n := s.World().Count(physics.KindBall); n != 0 {
		t.Errorf("disposable ball not removed, %d left", n)
	}
}

func TestRecorderIgnoresStrikesWhileDisarmed(t *testing.T) {
	var r Recorder
	r.Record(440, time.Second)
	if r.Len() != 0 {
		t.Error("disarmed recorder captured a note")
	}

	r.Toggle(time.Second)
	r.Record(261.63, 1250*time.Millisecond+400*time.Microsecond)
	r.Toggle(2 * time.Second)
	r.Record(440, 3*time.Second)

	m := r.Melody()
	if len(m) != 1 || m[0].Note != "C4" || m[0].Time != 250 {
		t.Errorf("recorded %+v", m)
	}

	// re-arming clears the buffer
	r.Toggle(4 * time.Second)
	if r.Len() != 0 {
		t.Error("arming should clear the buffer")
	}
}

func TestExportEmptyRecording(t *testing.T) {
	s := newTestSession(nil)
	if _, err := s.ExportRecording(); !errors.Is(err, ErrNothingRecorded) {
		t.Errorf("expected ErrNothingRecorded, got %v", err)
	}
}

func TestImportDoesNotTouchRecorder(t *testing.T) {
	s := newTestSession(nil)
	s.recorder.buffer = music.Melody{{Note: "G4", Time: 5}}

	if err := s.ImportAndPlay(`[{"note":"C4","time":0},{"note":"E4","time":200}]`); err != nil {
		t.Fatal(err)
	}
	if s.PendingSongEvents() != 2 {
		t.Errorf("pending = %d, want 2", s.PendingSongEvents())
	}
	m := s.RecordedMelody()
	if len(m) != 1 || m[0].Note != "G4" {
		t.Errorf("recorder buffer changed: %+v", m)
	}

	if err := s.ImportAndPlay(`{"note":"C4"}`); !errors.Is(err, music.ErrInvalidMelody) {
		t.Errorf("expected ErrInvalidMelody, got %v", err)
	}
	if s.PendingSongEvents() != 2 {
		t.Error("malformed import changed the schedule")
	}
}

func TestExportRoundTrip(t *testing.T) {
	s := newTestSession(nil)
	s.recorder.buffer = music.Melody{{Note: "C4", Time: 0}, {Note: "G4", Time: 480}}
	text, err := s.ExportRecording()
	if err != nil {
		t.Fatal(err)
	}
	m, err := music.ParseMelody(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 2 || m[1] != (music.Event{Note: "G4", Time: 480}) {
		t.Errorf("round trip = %+v", m)
	}
}
