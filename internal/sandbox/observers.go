package sandbox

import (
	"time"

	"github.com/linechime/backend/internal/music"
	"github.com/linechime/backend/internal/physics"
)

// disposeDelay is how long a ball survives its first strike on a note line.
const disposeDelay = 100 * time.Millisecond

// Strike is a ball hitting a line.
type Strike struct {
	Ball      *physics.Body
	Line      *physics.Body
	Frequency float64
	At        time.Duration
}

// CollisionObserver reacts to strikes. Observers run in registration order
// and do not depend on each other.
type CollisionObserver interface {
	Strike(s *Session, st Strike)
}

type ObserverFunc func(s *Session, st Strike)

func (f ObserverFunc) Strike(s *Session, st Strike) { f(s, st) }

func defaultObservers() []CollisionObserver {
	return []CollisionObserver{
		ObserverFunc(playTone),
		ObserverFunc(recordStrike),
		ObserverFunc(disposeBall),
	}
}

func playTone(s *Session, st Strike) {
	s.emit(EventTone, map[string]interface{}{
		"frequency":   st.Frequency,
		"note":        music.NearestNote(st.Frequency),
		"duration_ms": s.voice.Duration.Milliseconds(),
		"attack_ms":   s.voice.Attack.Milliseconds(),
		"decay_ms":    s.voice.Decay.Milliseconds(),
		"sustain":     s.voice.Sustain,
		"release_ms":  s.voice.Release.Milliseconds(),
		"ball_id":     st.Ball.ID,
		"line_id":     st.Line.ID,
	})
}

func recordStrike(s *Session, st Strike) {
	s.recorder.Record(st.Frequency, st.At)
}

// disposeBall schedules removal of any ball that strikes a line drawn from
// a note template. Custom lines never dispose. Removal is scheduled once per
// ball and is a no-op if the ball is already gone.
func disposeBall(s *Session, st Strike) {
	if st.Line.Template == CustomTemplate || st.Line.Template == "" || s.disposing[st.Ball.ID] {
		return
	}
	id := st.Ball.ID
	st.Ball.Disposable = true
	s.disposing[id] = true
	s.disposals.Add(s.timeline.After(disposeDelay, func() {
		delete(s.disposing, id)
		s.world.Remove(id)
	}))
}

// dispatch turns the world's new contacts into strikes.
func (s *Session) dispatch(collisions []physics.Collision) {
	for _, c := range collisions {
		ball, line, ok := c.BallAndLine()
		if !ok || line.Length <= 0 {
			continue
		}
		st := Strike{
			Ball:      ball,
			Line:      line,
			Frequency: music.FrequencyFor(line.Length),
			At:        s.timeline.Now(),
		}
		for _, o := range s.observers {
			o.Strike(s, st)
		}
	}
}
