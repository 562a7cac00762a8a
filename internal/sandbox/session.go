package sandbox

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/linechime/backend/internal/audio"
	"github.com/linechime/backend/internal/music"
	"github.com/linechime/backend/internal/physics"
)

const (
	BallRadius    = 5.0
	LineThickness = 5.0
	wallThickness = 50.0
	cullMargin    = 200.0

	DefaultWidth     = 1280.0
	DefaultHeight    = 720.0
	DefaultPhysicsHz = 240
)

// Options configures a new Session.
type Options struct {
	Width     float64
	Height    float64
	PhysicsHz int
	DrawMode  DrawMode
	Voice     audio.Voice
	Emit      func(Event)
}

// Session is one sandbox: its world, parameters, spawners, timers, recorder
// and input state. A Session is not safe for concurrent use; a Runner
// serializes access to it.
type Session struct {
	ID string

	width, height float64
	step          time.Duration
	voice         audio.Voice
	emitFn        func(Event)

	params    Params
	world     *physics.World
	timeline  *Timeline
	songs     TaskGroup
	disposals TaskGroup
	periodic  *PeriodicSpawner
	recorder  Recorder
	input     *InputMachine
	spawners  spawnerSet
	keys      []Key
	observers []CollisionObserver
	disposing map[physics.BodyID]bool
	closed    bool
}

func NewSession(id string, opts Options) *Session {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.PhysicsHz <= 0 {
		opts.PhysicsHz = DefaultPhysicsHz
	}
	if opts.Voice.Duration == 0 {
		opts.Voice = audio.DefaultVoice
	}

	params := DefaultParams()
	s := &Session{
		ID:        id,
		width:     opts.Width,
		height:    opts.Height,
		step:      time.Second / time.Duration(opts.PhysicsHz),
		voice:     opts.Voice,
		emitFn:    opts.Emit,
		params:    params,
		world:     physics.NewWorld(params.Gravity),
		timeline:  NewTimeline(),
		input:     NewInputMachine(opts.DrawMode),
		observers: defaultObservers(),
		disposing: make(map[physics.BodyID]bool),
	}
	s.periodic = newPeriodicSpawner(s.timeline, s.spawnFromFreeSpawners)
	s.periodic.SetInterval(time.Duration(params.SpawnInterval) * time.Millisecond)
	s.buildWalls()
	return s
}

func (s *Session) emit(typ string, fields map[string]interface{}) {
	if s.emitFn != nil {
		s.emitFn(NewEvent(s.ID, typ, fields))
	}
}

// Now is the session's virtual time.
func (s *Session) Now() time.Duration {
	return s.timeline.Now()
}

func (s *Session) Step() time.Duration {
	return s.step
}

func (s *Session) Size() (float64, float64) {
	return s.width, s.height
}

func (s *Session) Params() Params {
	return s.params
}

func (s *Session) World() *physics.World {
	return s.world
}

func (s *Session) Closed() bool {
	return s.closed
}

// AddObserver appends a collision observer after the built-in ones.
func (s *Session) AddObserver(o CollisionObserver) {
	s.observers = append(s.observers, o)
}

func (s *Session) buildWalls() {
	s.world.RemoveWhere(func(b *physics.Body) bool { return b.Kind == physics.KindWall })
	m := physics.Material{Friction: s.params.Friction, Restitution: s.params.Restitution}
	w, h := s.width, s.height
	for _, spec := range []physics.SegmentSpec{
		{Center: physics.NewVec2(w/2, 0), Length: w},                     // top
		{Center: physics.NewVec2(0, h/2), Length: h, Angle: math.Pi / 2}, // left
		{Center: physics.NewVec2(w, h/2), Length: h, Angle: math.Pi / 2}, // right
	} {
		spec.Kind = physics.KindWall
		spec.Thickness = wallThickness
		spec.Material = m
		s.world.AddSegment(spec)
	}
}

// UpdateParams validates and applies a partial update. Ball materials and
// collision groups are pushed to existing balls; other values apply to
// bodies created afterwards.
func (s *Session) UpdateParams(patch ParamsPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	old := s.params
	s.params.apply(patch)

	s.world.Gravity = s.params.Gravity
	if s.params.ballMaterial() != old.ballMaterial() {
		s.world.SetMaterial(physics.KindBall, s.params.ballMaterial())
	}
	if s.params.Collision != old.Collision {
		s.world.SetGroup(physics.KindBall, s.params.ballGroup())
	}
	if s.params.SpawnInterval != old.SpawnInterval {
		s.periodic.SetInterval(time.Duration(s.params.SpawnInterval) * time.Millisecond)
	}
	return nil
}

func (s *Session) spawnBall(p physics.Vec2) *physics.Body {
	return s.world.AddDisc(physics.DiscSpec{
		Center:   p,
		Radius:   BallRadius,
		Material: s.params.ballMaterial(),
		Group:    s.params.ballGroup(),
	})
}

// SpawnBall drops a ball at p using the current parameters.
func (s *Session) SpawnBall(p physics.Vec2) *physics.Body {
	return s.spawnBall(p)
}

func (s *Session) spawnFromFreeSpawners() {
	for _, sp := range s.spawners.free {
		s.spawnBall(sp.Position)
	}
}

func (s *Session) AddSpawner(p physics.Vec2) Spawner {
	return s.spawners.addFree(p)
}

// AddLine adds a static line using the current parameters.
func (s *Session) AddLine(l LineSpec) *physics.Body {
	return s.world.AddSegment(physics.SegmentSpec{
		Kind:      physics.KindLine,
		Center:    l.Center,
		Length:    l.Length,
		Thickness: LineThickness,
		Angle:     l.Angle,
		Material:  physics.Material{Friction: s.params.Friction, Restitution: s.params.Restitution},
		Template:  l.Template,
	})
}

// DeleteAt removes the first thing under p, probing free spawners, then
// musical spawners, then balls, then lines. It reports what was removed.
func (s *Session) DeleteAt(p physics.Vec2) (string, bool) {
	if s.spawners.removeFreeNear(p) {
		return "spawner", true
	}
	if s.spawners.removeMusicalNear(p) {
		return "musical_spawner", true
	}
	for _, kind := range []physics.Kind{physics.KindBall, physics.KindLine} {
		if hits := s.world.BodiesAt(p, kind); len(hits) > 0 {
			s.world.Remove(hits[0].ID)
			return kind.String(), true
		}
	}
	return "", false
}

// HandlePointer feeds one pointer event through the input machine and
// applies the resulting intent.
func (s *Session) HandlePointer(ev PointerEvent) (Intent, error) {
	intent, err := s.input.Handle(ev, s.params.LineTemplate)
	if err != nil {
		return intent, err
	}
	switch intent.Kind {
	case IntentSpawnBall:
		s.SpawnBall(intent.At)
	case IntentAddSpawner:
		s.AddSpawner(intent.At)
	case IntentCommitLine:
		s.AddLine(intent.Line)
	case IntentDelete:
		s.DeleteAt(intent.At)
	}
	return intent, nil
}

// ApplyScale lays out a built-in scale. An empty name uses the selected one.
func (s *Session) ApplyScale(name string) error {
	if name == "" {
		name = s.params.Scale
	}
	scale, err := music.ScaleNamed(name)
	if err != nil {
		return err
	}
	if err := s.layoutNotes(scale.Notes); err != nil {
		return err
	}
	s.params.Scale = scale.Name
	return nil
}

// layoutNotes replaces the world's lines, balls and spawners with a key per
// note. An empty list changes nothing.
func (s *Session) layoutNotes(notes []music.Note) error {
	if len(notes) == 0 {
		return nil
	}
	keys, err := LayoutScale(notes, s.width, s.height)
	if err != nil {
		return err
	}

	s.ClearAll()
	for _, k := range keys {
		s.AddLine(LineSpec{Center: k.Center, Length: k.Length, Template: string(k.Note)})
	}
	s.spawners.rebuildMusical(keys)
	s.keys = keys

	s.emit(EventLayout, map[string]interface{}{"keys": keys})
	return nil
}

// ClearAll stops the song, cancels pending disposals and removes every
// ball, line and spawner. Walls stay.
func (s *Session) ClearAll() {
	s.StopSong()
	s.disposals.CancelAll()
	s.disposing = make(map[physics.BodyID]bool)
	s.spawners.clear()
	s.keys = nil
	s.world.RemoveWhere(func(b *physics.Body) bool { return b.Kind != physics.KindWall })
}

// ToggleRecording arms or disarms the recorder and reports the new state.
func (s *Session) ToggleRecording() bool {
	armed := s.recorder.Toggle(s.timeline.Now())
	s.emit(EventRecording, map[string]interface{}{"recording": armed})
	return armed
}

func (s *Session) Recording() bool {
	return s.recorder.Armed()
}

// RecordedMelody returns a copy of the recorder buffer.
func (s *Session) RecordedMelody() music.Melody {
	return s.recorder.Melody()
}

// ExportRecording renders the recorder buffer as melody text.
func (s *Session) ExportRecording() (string, error) {
	return s.recorder.Export()
}

// ImportAndPlay parses melody text and plays it. Malformed text leaves the
// session untouched.
func (s *Session) ImportAndPlay(text string) error {
	m, err := music.ParseMelody(text)
	if err != nil {
		return err
	}
	return s.PlayMelody(m)
}

// Resize changes the canvas used by later layouts and by ball culling.
func (s *Session) Resize(width, height float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: canvas %vx%v", ErrParamOutOfRange, width, height)
	}
	s.width, s.height = width, height
	s.buildWalls()
	return nil
}

// Advance moves the session forward by d in chunks of at most one physics
// step. Timers due inside a chunk fire first, then the world integrates it.
func (s *Session) Advance(d time.Duration) {
	for d > 0 && !s.closed {
		chunk := s.step
		if d < chunk {
			chunk = d
		}
		d -= chunk
		s.timeline.Advance(chunk)
		s.cull()
		s.dispatch(s.world.Step(chunk))
	}
}

// cull removes balls that fell past the bottom of the canvas.
func (s *Session) cull() {
	limit := s.height + cullMargin
	s.world.RemoveWhere(func(b *physics.Body) bool {
		return b.Kind == physics.KindBall && b.Position.Y > limit
	})
}

// Close cancels every timer and empties the world.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.songs.CancelAll()
	s.disposals.CancelAll()
	s.periodic.Stop()
	s.spawners.clear()
	s.world.RemoveWhere(func(*physics.Body) bool { return true })
	log.Printf("[SESSION] Closed session=%s at=%s", s.ID, s.timeline.Now())
}
