package sim

import "math"

// Response is the outcome of a collision: either the drop was updated in
// place (Children is nil) or it must be replaced by the two children.
type Response struct {
	Children []*Drop
}

// Split reports whether the drop was replaced.
func (r Response) Split() bool {
	return len(r.Children) > 0
}

// Respond resolves a collision. Drops larger than minDropSize split into two
// children at 70% size; smaller drops bounce. Every outgoing velocity points
// upward (vy <= 0) so drops never sink into a surface.
func Respond(d *Drop, c Collision, n Normal, minDropSize float64, f *Factory) Response {
	force := MinBounceForce + f.Rand.Float64()*(MaxBounceForce-MinBounceForce)

	var affected map[int]struct{}
	if c.Obstacle != nil {
		affected = d.withAffected(c.Obstacle.ID)
	} else {
		affected = d.withAffected()
	}

	floor := c.Kind == CollisionFloor
	split := d.Size > minDropSize

	if n.Surface == SurfaceFlat {
		if split {
			return Response{Children: splitFlat(d, c, n, force, affected, floor, f)}
		}
		bounceFlat(d, n, force, f.Rand)
	} else {
		dir := curvedDirection(d.Velocity, n.Vec2)
		if split {
			return Response{Children: splitCurved(d, c, n, dir, force, affected, floor, f)}
		}
		d.Velocity = dir.Times(force)
	}

	d.Position = d.Position.Plus(n.Times(d.Size + EscapeMargin))
	d.affected = affected
	if floor {
		d.HasBouncedBottom = true
	}
	return Response{}
}

// horizontal reports whether the normal belongs to a top or bottom face.
func horizontal(n Normal) bool {
	return math.Abs(n.Y) > math.Abs(n.X)
}

// bounceFlat kicks the drop up at 45°: to a random side off a horizontal
// face, away from the wall off a vertical one.
func bounceFlat(d *Drop, n Normal, force float64, rng Random) {
	up := -math.Abs(diag45 * force)
	if horizontal(n) {
		dir := -1.0
		if rng.Float64() > 0.5 {
			dir = 1
		}
		d.Velocity = Vec2{X: dir * diag45 * force, Y: up}
		return
	}
	d.Velocity = Vec2{X: sign(n.X) * diag45 * force, Y: up}
}

func splitFlat(d *Drop, c Collision, n Normal, force float64, affected map[int]struct{}, floor bool, f *Factory) []*Drop {
	s := d.Size
	up := -math.Abs(diag45 * force)

	var leftPos, rightPos, leftVel, rightVel Vec2
	if horizontal(n) {
		leftPos = Vec2{X: -s * 0.5, Y: -s * 2}
		rightPos = Vec2{X: s * 0.5, Y: -s * 2}
		leftVel = Vec2{X: -diag45 * force, Y: up}
		rightVel = Vec2{X: diag45 * force, Y: up}
	} else {
		out := sign(n.X)
		leftPos = Vec2{X: n.X * s * 2, Y: -s}
		rightPos = Vec2{X: n.X * s * 2, Y: -s * 0.5}
		leftVel = Vec2{X: out * diag45 * force, Y: up}
		rightVel = Vec2{X: out * diag45 * force, Y: -math.Abs(diag45 * force * 0.7)}
	}

	return []*Drop{
		f.Child(d, c.Point.Plus(leftPos), leftVel, affected, floor),
		f.Child(d, c.Point.Plus(rightPos), rightVel, affected, floor),
	}
}

// curvedDirection reflects v about n, forces the result upward and
// normalizes it. A zero reflection yields straight up.
func curvedDirection(v, n Vec2) Vec2 {
	r := v.Reflect(n)
	r.Y = -math.Abs(r.Y)
	return r.Normalize()
}

func splitCurved(d *Drop, c Collision, n Normal, dir Vec2, force float64, affected map[int]struct{}, floor bool, f *Factory) []*Drop {
	pos := c.Point.Plus(n.Times(d.Size + EscapeMargin))
	base := dir.Times(force)
	tangent := n.LeftNormal().Times(CurvedDeviation * force)

	first := base.Plus(tangent)
	second := base.Minus(tangent)
	first.Y = -math.Abs(first.Y)
	second.Y = -math.Abs(second.Y)

	return []*Drop{
		f.Child(d, pos, first, affected, floor),
		f.Child(d, pos, second, affected, floor),
	}
}
