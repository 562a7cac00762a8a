package sandbox

import (
	"github.com/linechime/backend/internal/physics"
)

// Snapshot summarises a session for REST callers and Redis.
type Snapshot struct {
	SessionID       string           `json:"session_id"`
	TimeMs          int64            `json:"time_ms"`
	Width           float64          `json:"width"`
	Height          float64          `json:"height"`
	Params          Params           `json:"params"`
	Balls           int              `json:"balls"`
	Lines           int              `json:"lines"`
	Spawners        []Spawner        `json:"spawners"`
	MusicalSpawners []MusicalSpawner `json:"musical_spawners"`
	Keys            []Key            `json:"keys"`
	Recording       bool             `json:"recording"`
	RecordedNotes   int              `json:"recorded_notes"`
	PendingSong     int              `json:"pending_song_events"`
	Drawing         bool             `json:"drawing"`
}

func (s *Session) Snapshot() Snapshot {
	free, musical := s.spawners.snapshot()
	return Snapshot{
		SessionID:       s.ID,
		TimeMs:          s.timeline.Now().Milliseconds(),
		Width:           s.width,
		Height:          s.height,
		Params:          s.params,
		Balls:           s.world.Count(physics.KindBall),
		Lines:           s.world.Count(physics.KindLine),
		Spawners:        free,
		MusicalSpawners: musical,
		Keys:            append([]Key(nil), s.keys...),
		Recording:       s.recorder.Armed(),
		RecordedNotes:   s.recorder.Len(),
		PendingSong:     s.songs.Len(),
		Drawing:         s.input.State() == StateDrawing,
	}
}

type BallView struct {
	ID         physics.BodyID `json:"id"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Disposable bool           `json:"disposable,omitempty"`
}

type SegmentView struct {
	ID        physics.BodyID `json:"id"`
	Kind      physics.Kind   `json:"kind"`
	From      physics.Vec2   `json:"from"`
	To        physics.Vec2   `json:"to"`
	Thickness float64        `json:"thickness"`
	Template  string         `json:"template,omitempty"`
}

type PreviewView struct {
	From physics.Vec2 `json:"from"`
	To   physics.Vec2 `json:"to"`
}

// Frame is what a client needs to draw one picture of the world.
type Frame struct {
	TimeMs          int64            `json:"time_ms"`
	Balls           []BallView       `json:"balls"`
	Segments        []SegmentView    `json:"segments"`
	Spawners        []Spawner        `json:"spawners"`
	MusicalSpawners []MusicalSpawner `json:"musical_spawners"`
	Preview         *PreviewView     `json:"preview,omitempty"`
}

func (s *Session) Frame() Frame {
	f := Frame{TimeMs: s.timeline.Now().Milliseconds()}
	for _, b := range s.world.Bodies() {
		if b.Kind == physics.KindBall {
			f.Balls = append(f.Balls, BallView{ID: b.ID, X: b.Position.X, Y: b.Position.Y, Disposable: b.Disposable})
			continue
		}
		from, to := b.Endpoints()
		f.Segments = append(f.Segments, SegmentView{
			ID:        b.ID,
			Kind:      b.Kind,
			From:      physics.NewVec2(from.X, from.Y),
			To:        physics.NewVec2(to.X, to.Y),
			Thickness: b.Thickness,
			Template:  b.Template,
		})
	}
	f.Spawners, f.MusicalSpawners = s.spawners.snapshot()
	if from, to, ok := s.input.Preview(s.params.LineTemplate); ok {
		f.Preview = &PreviewView{From: from, To: to}
	}
	return f
}

// fields wraps a frame for the event stream.
func (f Frame) fields() map[string]interface{} {
	return map[string]interface{}{"frame": f}
}
