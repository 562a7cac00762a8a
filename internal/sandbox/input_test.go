package sandbox

import (
	"errors"
	"math"
	"testing"

	"github.com/linechime/backend/internal/music"
	"github.com/linechime/backend/internal/physics"
)

func down(x, y float64) PointerEvent { return PointerEvent{Action: PointerDown, Button: ButtonPrimary, X: x, Y: y} }
func move(x, y float64) PointerEvent { return PointerEvent{Action: PointerMove, X: x, Y: y} }
func up(x, y float64) PointerEvent { return PointerEvent{Action: PointerUp, Button: ButtonPrimary, X: x, Y: y} }

func TestShortDragSpawnsBallNotLine(t *testing.T) {
	s := newTestSession(nil)

	s.HandlePointer(down(50, 50))
	s.HandlePointer(move(53, 52))
	intent, err := s.HandlePointer(up(53, 52))
	if err != nil {
		t.Fatal(err)
	}

	if intent.Kind != IntentSpawnBall {
		t.Errorf("intent = %v, want IntentSpawnBall", intent.Kind)
	}
	if got := s.World().Count(physics.KindLine); got != 0 {
		t.Errorf("lines = %d, want 0", got)
	}
	balls := s.World().Bodies(physics.KindBall)
	if len(balls) != 1 {
		t.Fatalf("balls = %d, want 1", len(balls))
	}
	if balls[0].Position != physics.NewVec2(50, 50) {
		t.Errorf("ball at %+v, want (50, 50)", balls[0].Position)
	}
}

func TestCustomDragCommitsLineSpanningDrag(t *testing.T) {
	s := newTestSession(nil)

	s.HandlePointer(down(100, 100))
	s.HandlePointer(move(160, 180))
	s.HandlePointer(up(160, 180))

	lines := s.World().Bodies(physics.KindLine)
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(lines))
	}
	l := lines[0]
	if math.Abs(l.Length-100) > 1e-9 {
		t.Errorf("length = %v, want 100", l.Length)
	}
	if l.Position != physics.NewVec2(130, 140) {
		t.Errorf("center = %+v, want (130, 140)", l.Position)
	}
	if math.Abs(l.Angle-math.Atan2(80, 60)) > 1e-9 {
		t.Errorf("angle = %v", l.Angle)
	}
	if l.Template != CustomTemplate {
		t.Errorf("template = %q", l.Template)
	}
	if s.World().Count(physics.KindBall) != 0 {
		t.Error("a committed line should not spawn a ball")
	}
}

func TestTemplateLengthWinsOverDrag(t *testing.T) {
	s := newTestSession(nil)
	tmpl := "A4"
	if err := s.UpdateParams(ParamsPatch{LineTemplate: &tmpl}); err != nil {
		t.Fatal(err)
	}

	// drag 300px straight right; the A4 template is ~83px long
	s.HandlePointer(down(100, 300))
	s.HandlePointer(up(400, 300))

	lines := s.World().Bodies(physics.KindLine)
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(lines))
	}
	want, _ := music.LengthOf("A4")
	if lines[0].Length != want {
		t.Errorf("length = %v, want %v", lines[0].Length, want)
	}
	if math.Abs(lines[0].Position.X-(100+want/2)) > 1e-3 || lines[0].Position.Y != 300 {
		t.Errorf("line should start at the press point, center = %+v", lines[0].Position)
	}
	if lines[0].Template != "A4" {
		t.Errorf("template = %q, want A4", lines[0].Template)
	}
}

func TestPointerLeaveCancelsDrawing(t *testing.T) {
	s := newTestSession(nil)
	s.HandlePointer(down(100, 100))
	s.HandlePointer(move(300, 300))
	s.HandlePointer(PointerEvent{Action: PointerLeave})
	s.HandlePointer(up(300, 300))

	if n := len(s.World().Bodies(physics.KindLine, physics.KindBall)); n != 0 {
		t.Errorf("expected nothing committed, got %d bodies", n)
	}
	if s.input.State() != StateIdle {
		t.Error("machine should be idle after leave")
	}
}

func TestSpawnerModifierAddsFreeSpawner(t *testing.T) {
	s := newTestSession(nil)
	ev := down(200, 80)
	ev.Spawner = true
	s.HandlePointer(ev)

	snap := s.Snapshot()
	if len(snap.Spawners) != 1 || snap.Spawners[0].Position != physics.NewVec2(200, 80) {
		t.Errorf("spawners = %+v", snap.Spawners)
	}
	if snap.Drawing {
		t.Error("spawner press must not start drawing")
	}
}

func TestModifierModePlainPressSpawnsBall(t *testing.T) {
	m := NewInputMachine(DrawModifier)

	intent, _ := m.Handle(down(10, 20), CustomTemplate)
	if intent.Kind != IntentSpawnBall || intent.At != physics.NewVec2(10, 20) {
		t.Errorf("plain press intent = %+v", intent)
	}
	if m.State() != StateIdle {
		t.Error("plain press must not start drawing in modifier mode")
	}

	ev := down(10, 20)
	ev.Draw = true
	m.Handle(ev, CustomTemplate)
	if m.State() != StateDrawing {
		t.Error("draw modifier should start drawing")
	}
	intent, _ = m.Handle(up(10, 60), CustomTemplate)
	if intent.Kind != IntentCommitLine || intent.Line.Length != 40 {
		t.Errorf("release intent = %+v", intent)
	}
}

func TestSecondaryPressDeletes(t *testing.T) {
	m := NewInputMachine(DrawTap)
	intent, _ := m.Handle(PointerEvent{Action: PointerDown, Button: ButtonSecondary, X: 5, Y: 6}, CustomTemplate)
	if intent.Kind != IntentDelete || intent.At != physics.NewVec2(5, 6) {
		t.Errorf("intent = %+v", intent)
	}
}

func TestPreviewOnlyAfterMinimumDrag(t *testing.T) {
	m := NewInputMachine(DrawTap)
	m.Handle(down(0, 0), CustomTemplate)
	if _, _, ok := m.Preview(CustomTemplate); ok {
		t.Error("preview shown for a tap-length drag")
	}
	m.Handle(move(30, 40), CustomTemplate)
	from, to, ok := m.Preview(CustomTemplate)
	if !ok || from != physics.NewVec2(0, 0) || to != physics.NewVec2(30, 40) {
		t.Errorf("preview = %+v %+v %v", from, to, ok)
	}
}

func TestUnknownPointerAction(t *testing.T) {
	m := NewInputMachine(DrawTap)
	if _, err := m.Handle(PointerEvent{Action: "wiggle"}, CustomTemplate); !errors.Is(err, ErrInvalidPointer) {
		t.Errorf("expected ErrInvalidPointer, got %v", err)
	}
}
