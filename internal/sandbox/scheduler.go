package sandbox

import (
	"log"
	"time"

	"github.com/linechime/backend/internal/music"
)

// PlayMelody lays out the melody's distinct notes as a scale, then schedules
// one ball drop per event from the spawner bound to its note. Notes are
// looked up when each event fires, so spawners deleted mid-song are skipped.
// Unknown notes and out-of-range events fail the call before anything changes.
func (s *Session) PlayMelody(m music.Melody) error {
	if len(m) == 0 {
		return music.ErrInvalidMelody
	}
	if err := m.CheckBounds(); err != nil {
		return err
	}
	notes, err := m.DistinctNotes()
	if err != nil {
		return err
	}
	if err := s.layoutNotes(notes); err != nil {
		return err
	}
	s.StopSong()

	for _, ev := range m {
		note := ev.Note
		delay := time.Duration(ev.Time * float64(time.Millisecond))
		s.songs.Add(s.timeline.After(delay, func() {
			s.dropNote(note)
		}))
	}
	log.Printf("[SCHED] Playing melody session=%s events=%d notes=%d", s.ID, len(m), len(notes))
	return nil
}

// PlaySong plays a demo song. An empty name uses the selected one.
func (s *Session) PlaySong(name string) error {
	if name == "" {
		name = s.params.Song
	}
	song, err := music.SongNamed(name)
	if err != nil {
		return err
	}
	if err := s.PlayMelody(song.Melody); err != nil {
		return err
	}
	s.params.Song = song.Name
	return nil
}

// StopSong cancels every pending melody event. It returns how many were
// still pending.
func (s *Session) StopSong() int {
	return s.songs.CancelAll()
}

// PendingSongEvents counts melody events that have not fired yet.
func (s *Session) PendingSongEvents() int {
	return s.songs.Len()
}

func (s *Session) dropNote(note music.Note) {
	sp, ok := s.spawners.musicalFor(note)
	if !ok {
		return
	}
	s.spawnBall(sp.Position)
}
