package physics

// closestOnSegment returns the point on segment a→b nearest to p.
func closestOnSegment(a, b, p Vec2) Vec2 {
	ab := Vec2{X: b.X - a.X, Y: b.Y - a.Y}
	den := ab.MagnitudeSquared()
	if den == 0 {
		return a
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / den
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return Vec2{X: a.X + ab.X*t, Y: a.Y + ab.Y*t}
}

// checkObjectsConverging reports whether two bodies are moving toward each other.
func checkObjectsConverging(posA, posB, velA, velB Vec2) bool {
	relVel := Vec2{X: velB.X - velA.X, Y: velB.Y - velA.Y}
	dir := Vec2{X: posB.X - posA.X, Y: posB.Y - posA.Y}
	return relVel.Dot(dir) < 0
}

// pointInSegment reports whether p lies inside the rotated rectangle covered
// by a segment body of the given thickness.
func pointInSegment(b *Body, p Vec2) bool {
	a, e := b.Endpoints()
	c := closestOnSegment(a, e, p)
	along := Vec2{X: e.X - a.X, Y: e.Y - a.Y}
	// Reject points past the end caps, the body is a rectangle not a capsule.
	rel := Vec2{X: p.X - a.X, Y: p.Y - a.Y}
	if t := rel.Dot(along); t < 0 || t > along.MagnitudeSquared() {
		return false
	}
	return p.Distance(c) <= b.Thickness/2
}
