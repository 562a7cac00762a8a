package physics

import (
	"math"
	"time"
)

const (
	// GravityScale converts the unitless gravity parameter into px/s².
	GravityScale = 1000.0

	contactSlop    = 0.5
	maxSubsteps    = 8
	airFrictionRef = 60.0 // air friction is expressed per 1/60 s
)

// Collision is a contact that started during a Step.
type Collision struct {
	A, B *Body
}

// BallAndLine returns the ball and the line of a ball-line contact.
// Contacts with walls or between two balls report ok=false.
func (c Collision) BallAndLine() (ball, line *Body, ok bool) {
	switch {
	case c.A.Kind == KindBall && c.B.Kind == KindLine:
		return c.A, c.B, true
	case c.B.Kind == KindBall && c.A.Kind == KindLine:
		return c.B, c.A, true
	}
	return nil, nil, false
}

type pairKey struct {
	a, b BodyID
}

func keyFor(a, b *Body) pairKey {
	if a.ID > b.ID {
		a, b = b, a
	}
	return pairKey{a.ID, b.ID}
}

// SegmentSpec describes a static rectangle to add to the world.
type SegmentSpec struct {
	Kind      Kind // KindLine or KindWall
	Center    Vec2
	Length    float64
	Thickness float64
	Angle     float64
	Material  Material
	Template  string
}

// DiscSpec describes a ball to add to the world.
type DiscSpec struct {
	Center     Vec2
	Velocity   Vec2
	Radius     float64
	Material   Material
	Group      int
	Disposable bool
}

// World owns every body of one sandbox and advances them in fixed steps.
// It is not safe for concurrent use.
type World struct {
	Gravity float64

	bodies   []*Body
	byID     map[BodyID]*Body
	nextID   BodyID
	contacts map[pairKey]bool
}

func NewWorld(gravity float64) *World {
	return &World{
		Gravity:  gravity,
		byID:     make(map[BodyID]*Body),
		contacts: make(map[pairKey]bool),
	}
}

func (w *World) add(b *Body) *Body {
	w.nextID++
	b.ID = w.nextID
	w.bodies = append(w.bodies, b)
	w.byID[b.ID] = b
	return b
}

func (w *World) AddSegment(s SegmentSpec) *Body {
	kind := s.Kind
	if kind != KindWall {
		kind = KindLine
	}
	return w.add(&Body{
		Kind:      kind,
		Position:  NewVec2(s.Center.X, s.Center.Y),
		Length:    s.Length,
		Thickness: s.Thickness,
		Angle:     s.Angle,
		Material:  s.Material,
		Template:  s.Template,
	})
}

func (w *World) AddDisc(s DiscSpec) *Body {
	return w.add(&Body{
		Kind:       KindBall,
		Position:   NewVec2(s.Center.X, s.Center.Y),
		Velocity:   NewVec2(s.Velocity.X, s.Velocity.Y),
		Radius:     s.Radius,
		Material:   s.Material,
		Group:      s.Group,
		Disposable: s.Disposable,
	})
}

// Remove deletes a body. It returns false when the body is already gone.
func (w *World) Remove(id BodyID) bool {
	if _, ok := w.byID[id]; !ok {
		return false
	}
	delete(w.byID, id)
	for i, b := range w.bodies {
		if b.ID == id {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			break
		}
	}
	return true
}

// RemoveWhere deletes every body matching fn and returns how many went.
func (w *World) RemoveWhere(fn func(*Body) bool) int {
	kept := w.bodies[:0]
	removed := 0
	for _, b := range w.bodies {
		if fn(b) {
			delete(w.byID, b.ID)
			removed++
			continue
		}
		kept = append(kept, b)
	}
	for i := len(kept); i < len(w.bodies); i++ {
		w.bodies[i] = nil
	}
	w.bodies = kept
	return removed
}

func (w *World) Get(id BodyID) (*Body, bool) {
	b, ok := w.byID[id]
	return b, ok
}

func matchesKind(b *Body, kinds []Kind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if b.Kind == k {
			return true
		}
	}
	return false
}

// Bodies returns the bodies of the given kinds (all when none given) in
// insertion order.
func (w *World) Bodies(kinds ...Kind) []*Body {
	var out []*Body
	for _, b := range w.bodies {
		if matchesKind(b, kinds) {
			out = append(out, b)
		}
	}
	return out
}

// BodiesAt returns the bodies of the given kinds whose shape contains p,
// in insertion order.
func (w *World) BodiesAt(p Vec2, kinds ...Kind) []*Body {
	var out []*Body
	for _, b := range w.bodies {
		if matchesKind(b, kinds) && b.Contains(p) {
			out = append(out, b)
		}
	}
	return out
}

func (w *World) Count(kind Kind) int {
	n := 0
	for _, b := range w.bodies {
		if b.Kind == kind {
			n++
		}
	}
	return n
}

// SetMaterial applies m to every body of the given kind.
func (w *World) SetMaterial(kind Kind, m Material) {
	for _, b := range w.bodies {
		if b.Kind == kind {
			b.Material = m
		}
	}
}

// SetGroup sets the collision group of every body of the given kind.
func (w *World) SetGroup(kind Kind, group int) {
	for _, b := range w.bodies {
		if b.Kind == kind {
			b.Group = group
		}
	}
}

// Step advances the world by dt and returns the contacts that began during
// the step. A contact persisting from the previous step is not reported again.
func (w *World) Step(dt time.Duration) []Collision {
	secs := dt.Seconds()
	if secs <= 0 {
		return nil
	}

	touching := make(map[pairKey]bool)
	var started []Collision
	mark := func(a, b *Body) {
		k := keyFor(a, b)
		if touching[k] {
			return
		}
		touching[k] = true
		if !w.contacts[k] {
			started = append(started, Collision{A: a, B: b})
		}
	}

	statics := w.Bodies(KindLine, KindWall)
	balls := w.Bodies(KindBall)

	for _, ball := range balls {
		w.integrate(ball, secs, statics, mark)
	}

	for i := 0; i < len(balls); i++ {
		for j := i + 1; j < len(balls); j++ {
			if !canCollide(balls[i], balls[j]) {
				continue
			}
			if resolveDiscs(balls[i], balls[j]) {
				mark(balls[i], balls[j])
			}
		}
	}

	w.contacts = touching
	return started
}

func (w *World) integrate(ball *Body, secs float64, statics []*Body, mark func(a, b *Body)) {
	ball.Velocity = NewVec2(ball.Velocity.X, ball.Velocity.Y+w.Gravity*GravityScale*secs)
	if fa := clamp01(ball.Material.FrictionAir); fa > 0 {
		ball.Velocity = ball.Velocity.Times(math.Pow(1-fa, secs*airFrictionRef))
	}

	steps := 1
	if ball.Radius > 0 {
		travel := ball.Velocity.Magnitude() * secs
		steps = int(math.Ceil(travel / (ball.Radius / 2)))
	}
	if steps < 1 {
		steps = 1
	} else if steps > maxSubsteps {
		steps = maxSubsteps
	}

	h := secs / float64(steps)
	for i := 0; i < steps; i++ {
		ball.Position = ball.Position.Plus(ball.Velocity.Times(h))
		for _, s := range statics {
			if resolveDiscSegment(ball, s) {
				mark(ball, s)
			}
		}
	}
}

// resolveDiscSegment pushes the ball out of the segment and reflects its
// normal velocity. It reports whether the two are in contact.
func resolveDiscSegment(ball, seg *Body) bool {
	a, e := seg.Endpoints()
	c := closestOnSegment(a, e, ball.Position)
	delta := Vec2{X: ball.Position.X - c.X, Y: ball.Position.Y - c.Y}
	dist := delta.Magnitude()
	reach := ball.Radius + seg.Thickness/2
	if dist > reach+contactSlop {
		return false
	}

	var n Vec2
	if dist == 0 {
		n = Vec2{X: e.X - a.X, Y: e.Y - a.Y}.LeftNormal().Normalize()
		if ball.Velocity.Dot(n) > 0 {
			n = n.Invert()
		}
	} else {
		n = Vec2{X: delta.X / dist, Y: delta.Y / dist}
	}

	if dist < reach {
		ball.Position = NewVec2(c.X+n.X*reach, c.Y+n.Y*reach)
	}

	if vn := ball.Velocity.Dot(n); vn < 0 {
		restitution := math.Max(ball.Material.Restitution, seg.Material.Restitution)
		mu := clamp01(math.Min(ball.Material.Friction, seg.Material.Friction))
		tx := ball.Velocity.X - n.X*vn
		ty := ball.Velocity.Y - n.Y*vn
		ball.Velocity = NewVec2(
			tx*(1-mu)-n.X*vn*restitution,
			ty*(1-mu)-n.Y*vn*restitution,
		)
	}
	return true
}

// resolveDiscs separates two overlapping balls of equal mass and exchanges
// momentum along the contact normal.
func resolveDiscs(a, b *Body) bool {
	delta := Vec2{X: b.Position.X - a.Position.X, Y: b.Position.Y - a.Position.Y}
	dist := delta.Magnitude()
	reach := a.Radius + b.Radius
	if dist > reach+contactSlop {
		return false
	}

	n := Vec2{X: 0, Y: 1}
	if dist > 0 {
		n = Vec2{X: delta.X / dist, Y: delta.Y / dist}
	}
	if dist < reach {
		push := (reach - dist) / 2
		a.Position = NewVec2(a.Position.X-n.X*push, a.Position.Y-n.Y*push)
		b.Position = NewVec2(b.Position.X+n.X*push, b.Position.Y+n.Y*push)
	}

	if checkObjectsConverging(a.Position, b.Position, a.Velocity, b.Velocity) {
		vrel := Vec2{X: b.Velocity.X - a.Velocity.X, Y: b.Velocity.Y - a.Velocity.Y}.Dot(n)
		restitution := math.Max(a.Material.Restitution, b.Material.Restitution)
		j := -(1 + restitution) * vrel / 2
		a.Velocity = NewVec2(a.Velocity.X-n.X*j, a.Velocity.Y-n.Y*j)
		b.Velocity = NewVec2(b.Velocity.X+n.X*j, b.Velocity.Y+n.Y*j)
	}
	return true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
