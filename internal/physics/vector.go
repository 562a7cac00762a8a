package physics

import "math"

// Vec2 is a 2D vector in canvas pixels. Components are kept at 4 decimal
// places so snapshots stay stable across runs.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// fix rounds to 4 decimal places.
func fix(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return math.Round(n*10000) / 10000
}

func NewVec2(x, y float64) Vec2 {
	return Vec2{X: fix(x), Y: fix(y)}
}

// FromAngle returns the vector of length mag pointing along angle (radians).
func FromAngle(angle, mag float64) Vec2 {
	return NewVec2(math.Cos(angle)*mag, math.Sin(angle)*mag)
}

func (v Vec2) Plus(o Vec2) Vec2 {
	return Vec2{X: fix(v.X + o.X), Y: fix(v.Y + o.Y)}
}

func (v Vec2) Minus(o Vec2) Vec2 {
	return Vec2{X: fix(v.X - o.X), Y: fix(v.Y - o.Y)}
}

func (v Vec2) Times(s float64) Vec2 {
	return Vec2{X: fix(v.X * s), Y: fix(v.Y * s)}
}

func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

func (v Vec2) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

func (v Vec2) MagnitudeSquared() float64 {
	return v.X*v.X + v.Y*v.Y
}

func (v Vec2) Normalize() Vec2 {
	m := v.Magnitude()
	if m == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / m, Y: v.Y / m}
}

func (v Vec2) LeftNormal() Vec2 {
	return Vec2{X: -v.Y, Y: v.X}
}

// Angle returns the direction of v in radians.
func (v Vec2) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

func (v Vec2) Distance(o Vec2) float64 {
	return o.Minus(v).Magnitude()
}

func (v Vec2) Midpoint(o Vec2) Vec2 {
	return NewVec2((v.X+o.X)/2, (v.Y+o.Y)/2)
}

func (v Vec2) Invert() Vec2 {
	return Vec2{X: -v.X, Y: -v.Y}
}

func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}
