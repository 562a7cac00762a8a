package sandbox

import (
	"errors"
	"fmt"

	"github.com/linechime/backend/internal/music"
	"github.com/linechime/backend/internal/physics"
)

var ErrInvalidPointer = errors.New("invalid pointer event")

// MinLineLength is the shortest drag committed as a line. Shorter drags are
// taps and spawn a ball instead.
const MinLineLength = 10.0

type PointerAction string

const (
	PointerDown  PointerAction = "down"
	PointerMove  PointerAction = "move"
	PointerUp    PointerAction = "up"
	PointerLeave PointerAction = "leave"
)

// Pointer buttons, numbered as browsers number them.
const (
	ButtonPrimary   = 0
	ButtonSecondary = 2
)

// PointerEvent is one pointer gesture step from a client canvas.
type PointerEvent struct {
	Action  PointerAction `json:"action"`
	Button  int           `json:"button"`
	X       float64       `json:"x"`
	Y       float64       `json:"y"`
	Spawner bool          `json:"spawner"` // spawner-creation modifier held
	Draw    bool          `json:"draw"`    // draw modifier held
}

func (e PointerEvent) point() physics.Vec2 {
	return physics.NewVec2(e.X, e.Y)
}

// DrawMode selects how a plain primary press is read.
type DrawMode int

const (
	// DrawTap starts drawing on any plain primary press; a short drag is a tap.
	DrawTap DrawMode = iota
	// DrawModifier draws only with the draw modifier; a plain press spawns a ball.
	DrawModifier
)

func ParseDrawMode(s string) (DrawMode, error) {
	switch s {
	case "", "tap":
		return DrawTap, nil
	case "modifier":
		return DrawModifier, nil
	}
	return DrawTap, fmt.Errorf("unknown draw mode %q", s)
}

type InputState int

const (
	StateIdle InputState = iota
	StateDrawing
)

type IntentKind int

const (
	IntentNone IntentKind = iota
	IntentSpawnBall
	IntentAddSpawner
	IntentCommitLine
	IntentDelete
)

// LineSpec is a line ready to be added to the world.
type LineSpec struct {
	Center   physics.Vec2
	Length   float64
	Angle    float64
	Template string
}

// Intent is what a pointer event asks the session to do.
type Intent struct {
	Kind IntentKind
	At   physics.Vec2
	Line LineSpec
}

// InputMachine turns pointer events into intents. It never touches the
// world itself.
type InputMachine struct {
	mode   DrawMode
	state  InputState
	start  physics.Vec2
	cursor physics.Vec2
}

func NewInputMachine(mode DrawMode) *InputMachine {
	return &InputMachine{mode: mode}
}

func (m *InputMachine) State() InputState {
	return m.state
}

// Handle advances the machine by one event. template is the active line
// template, read at commit time.
func (m *InputMachine) Handle(ev PointerEvent, template string) (Intent, error) {
	p := ev.point()
	switch ev.Action {
	case PointerDown:
		return m.press(ev, p), nil

	case PointerMove:
		if m.state == StateDrawing {
			m.cursor = p
		}
		return Intent{}, nil

	case PointerUp:
		if m.state != StateDrawing || ev.Button != ButtonPrimary {
			return Intent{}, nil
		}
		m.cursor = p
		m.state = StateIdle
		return m.release(template)

	case PointerLeave:
		m.state = StateIdle
		return Intent{}, nil
	}
	return Intent{}, fmt.Errorf("%w: action %q", ErrInvalidPointer, string(ev.Action))
}

func (m *InputMachine) press(ev PointerEvent, p physics.Vec2) Intent {
	switch {
	case ev.Button == ButtonSecondary:
		return Intent{Kind: IntentDelete, At: p}
	case ev.Button != ButtonPrimary:
		return Intent{}
	case ev.Spawner:
		return Intent{Kind: IntentAddSpawner, At: p}
	case ev.Draw || m.mode == DrawTap:
		m.state = StateDrawing
		m.start, m.cursor = p, p
		return Intent{}
	default:
		return Intent{Kind: IntentSpawnBall, At: p}
	}
}

func (m *InputMachine) release(template string) (Intent, error) {
	drag := m.cursor.Minus(m.start)
	if drag.Magnitude() < MinLineLength {
		return Intent{Kind: IntentSpawnBall, At: m.start}, nil
	}
	line, err := lineFromDrag(m.start, m.cursor, template)
	if err != nil {
		return Intent{}, err
	}
	return Intent{Kind: IntentCommitLine, At: m.start, Line: line}, nil
}

// Preview returns the segment a release would commit right now. ok is false
// while idle or while the drag is still a tap.
func (m *InputMachine) Preview(template string) (from, to physics.Vec2, ok bool) {
	if m.state != StateDrawing || m.cursor.Distance(m.start) < MinLineLength {
		return physics.Vec2{}, physics.Vec2{}, false
	}
	line, err := lineFromDrag(m.start, m.cursor, template)
	if err != nil {
		return physics.Vec2{}, physics.Vec2{}, false
	}
	half := physics.FromAngle(line.Angle, line.Length/2)
	return line.Center.Minus(half), line.Center.Plus(half), true
}

// lineFromDrag builds the committed line. A custom line spans the drag; a
// note template keeps its own length and only takes the drag's direction.
func lineFromDrag(start, end physics.Vec2, template string) (LineSpec, error) {
	drag := end.Minus(start)
	angle := drag.Angle()
	if template == CustomTemplate || template == "" {
		return LineSpec{
			Center:   start.Midpoint(end),
			Length:   drag.Magnitude(),
			Angle:    angle,
			Template: CustomTemplate,
		}, nil
	}
	length, err := music.LengthOf(music.Note(template))
	if err != nil {
		return LineSpec{}, err
	}
	return LineSpec{
		Center:   start.Plus(physics.FromAngle(angle, length/2)),
		Length:   length,
		Angle:    angle,
		Template: template,
	}, nil
}
