package sandbox

import (
	"errors"
	"testing"
	"time"

	"github.com/linechime/backend/internal/music"
	"github.com/linechime/backend/internal/physics"
)

func maxBallID(s *Session) physics.BodyID {
	var max physics.BodyID
	for _, b := range s.World().Bodies(physics.KindBall) {
		if b.ID > max {
			max = b.ID
		}
	}
	return max
}

func TestStopSongPreventsLaterDrops(t *testing.T) {
	s := newTestSession(nil)
	if err := s.PlaySong("Twinkle Twinkle"); err != nil {
		t.Fatal(err)
	}
	s.Advance(600 * time.Millisecond)
	if s.World().Count(physics.KindBall) == 0 {
		t.Fatal("expected the first notes to have dropped")
	}

	pending := s.StopSong()
	if pending != 12 {
		t.Errorf("pending at stop = %d, want 12", pending)
	}
	last := maxBallID(s)
	for i := 0; i < 100; i++ {
		s.Advance(100 * time.Millisecond)
		if id := maxBallID(s); id > last {
			t.Fatalf("ball %d dropped after the song was stopped", id)
		}
	}
	if s.PendingSongEvents() != 0 {
		t.Errorf("pending = %d, want 0", s.PendingSongEvents())
	}
}

func TestDeletedSpawnerIsSkipped(t *testing.T) {
	s := newTestSession(nil)
	err := s.PlayMelody(music.Melody{{Note: "C4", Time: 0}, {Note: "D4", Time: 100}})
	if err != nil {
		t.Fatal(err)
	}
	sp, ok := s.spawners.musicalFor("D4")
	if !ok {
		t.Fatal("no spawner laid out for D4")
	}
	if kind, _ := s.DeleteAt(sp.Position); kind != "musical_spawner" {
		t.Fatalf("deleted %q", kind)
	}

	s.Advance(50 * time.Millisecond)
	if n := s.World().Count(physics.KindBall); n != 1 {
		t.Fatalf("balls = %d, want 1", n)
	}
	s.Advance(100 * time.Millisecond)
	if n := s.World().Count(physics.KindBall); n != 1 {
		t.Errorf("balls = %d, want 1 (D4 spawner was deleted)", n)
	}
}

func TestUnknownNoteLeavesSessionUntouched(t *testing.T) {
	s := newTestSession(nil)
	if err := s.ApplyScale("major"); err != nil {
		t.Fatal(err)
	}
	before := s.Snapshot()

	err := s.PlayMelody(music.Melody{{Note: "C4", Time: 0}, {Note: "H9", Time: 10}})
	if !errors.Is(err, music.ErrUnknownNote) {
		t.Fatalf("expected ErrUnknownNote, got %v", err)
	}
	after := s.Snapshot()
	if after.Lines != before.Lines || len(after.Keys) != len(before.Keys) || after.PendingSong != 0 {
		t.Errorf("session changed: before %+v after %+v", before, after)
	}
}

func TestPlayMelodyRejectsEmpty(t *testing.T) {
	s := newTestSession(nil)
	if err := s.PlayMelody(nil); !errors.Is(err, music.ErrInvalidMelody) {
		t.Errorf("expected ErrInvalidMelody, got %v", err)
	}
	late := music.Melody{{Note: "C4", Time: music.MaxEventTime * 2}}
	if err := s.PlayMelody(late); !errors.Is(err, music.ErrInvalidMelody) {
		t.Errorf("expected ErrInvalidMelody for late event, got %v", err)
	}
	if s.PendingSongEvents() != 0 || len(s.keys) != 0 {
		t.Error("rejected melody changed the session")
	}
}

func TestPlayMelodyReplacesRunningSong(t *testing.T) {
	s := newTestSession(nil)
	s.PlaySong("Happy Birthday")
	if s.PendingSongEvents() != 25 {
		t.Fatalf("pending = %d, want 25", s.PendingSongEvents())
	}
	if err := s.PlayMelody(music.Melody{{Note: "E4", Time: 0}}); err != nil {
		t.Fatal(err)
	}
	if s.PendingSongEvents() != 1 {
		t.Errorf("pending = %d, want 1", s.PendingSongEvents())
	}
	snap := s.Snapshot()
	if len(snap.Keys) != 1 || snap.Keys[0].Note != "E4" {
		t.Errorf("keys = %+v", snap.Keys)
	}
}

func TestPlaySong(t *testing.T) {
	s := newTestSession(nil)
	if err := s.PlaySong("Nope"); !errors.Is(err, music.ErrUnknownSong) {
		t.Errorf("expected ErrUnknownSong, got %v", err)
	}
	if err := s.PlaySong("Twinkle Twinkle"); err != nil {
		t.Fatal(err)
	}
	if s.Params().Song != "Twinkle Twinkle" {
		t.Errorf("song = %q", s.Params().Song)
	}
	// C4 D4 E4 F4 G4 A4
	if got := len(s.Snapshot().Keys); got != 6 {
		t.Errorf("keys = %d, want 6", got)
	}
}
