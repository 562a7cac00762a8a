package physics

import "math"

// Kind distinguishes the three body variants in a World.
type Kind int

const (
	KindBall Kind = iota
	KindLine
	KindWall
)

func (k Kind) String() string {
	switch k {
	case KindBall:
		return "ball"
	case KindLine:
		return "line"
	case KindWall:
		return "wall"
	}
	return "unknown"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// BodyID identifies a body for the lifetime of its World.
type BodyID uint64

// Material holds the surface coefficients of a body.
type Material struct {
	Friction    float64 `json:"friction"`
	FrictionAir float64 `json:"friction_air"`
	Restitution float64 `json:"restitution"`
}

// Body is a ball (dynamic disc) or a line/wall (static rectangle).
type Body struct {
	ID       BodyID   `json:"id"`
	Kind     Kind     `json:"kind"`
	Position Vec2     `json:"position"`
	Velocity Vec2     `json:"velocity"`
	Material Material `json:"-"`

	// Balls
	Radius     float64 `json:"radius,omitempty"`
	Group      int     `json:"-"`
	Disposable bool    `json:"disposable,omitempty"`

	// Lines and walls
	Length    float64 `json:"length,omitempty"`
	Thickness float64 `json:"thickness,omitempty"`
	Angle     float64 `json:"angle,omitempty"`
	Template  string  `json:"template,omitempty"` // line template that produced it
}

// Static reports whether the body is unaffected by gravity and impulses.
func (b *Body) Static() bool {
	return b.Kind != KindBall
}

// Endpoints returns both ends of a line or wall.
func (b *Body) Endpoints() (Vec2, Vec2) {
	hx := math.Cos(b.Angle) * b.Length / 2
	hy := math.Sin(b.Angle) * b.Length / 2
	return Vec2{X: b.Position.X - hx, Y: b.Position.Y - hy},
		Vec2{X: b.Position.X + hx, Y: b.Position.Y + hy}
}

// Contains reports whether p lies inside the body's shape.
func (b *Body) Contains(p Vec2) bool {
	if b.Kind == KindBall {
		return b.Position.Distance(p) <= b.Radius
	}
	return pointInSegment(b, p)
}

// canCollide applies group filtering: two bodies sharing a negative group
// never collide, sharing a positive group always collide.
func canCollide(a, b *Body) bool {
	if a.Group != 0 && a.Group == b.Group {
		return a.Group > 0
	}
	return true
}
