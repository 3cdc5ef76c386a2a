package sim

import "math"

// CollisionKind distinguishes the floor from obstacle hits.
type CollisionKind string

const (
	CollisionFloor    CollisionKind = "floor"
	CollisionObstacle CollisionKind = "obstacle"
)

// Surface selects the bounce geometry used by Respond.
type Surface string

const (
	SurfaceFlat   Surface = "flat"
	SurfaceCurved Surface = "curved"
)

// Collision is the first contact a drop makes during a tick.
type Collision struct {
	Kind     CollisionKind
	Obstacle *Obstacle // nil for the floor
	Point    Vec2
}

// Normal is the outward unit normal at a contact point.
type Normal struct {
	Vec2
	Surface Surface
}

var floorNormal = Normal{Vec2: Up, Surface: SurfaceFlat}

// Detect returns the first collision the drop undergoes this tick. The floor
// is checked first, then obstacles in the order given; obstacles the drop has
// already hit are skipped.
func Detect(d *Drop, obstacles []Obstacle, canvasHeight float64) (Collision, bool) {
	if !d.HasBouncedBottom && d.Position.Y+d.Size >= canvasHeight {
		return Collision{
			Kind:  CollisionFloor,
			Point: Vec2{X: d.Position.X, Y: canvasHeight - d.Size},
		}, true
	}

	for i := range obstacles {
		o := &obstacles[i]
		if d.HasAffected(o.ID) {
			continue
		}
		if p, ok := contactPoint(d, o); ok {
			return Collision{Kind: CollisionObstacle, Obstacle: o, Point: p}, true
		}
	}
	return Collision{}, false
}

// contactPoint reports the nearest point on o when the drop touches it: the
// bounding square overlaps the box and either the nearest point is within
// reach of the rim or the centre already sits inside the shape.
func contactPoint(d *Drop, o *Obstacle) (Vec2, bool) {
	if !overlapsBounds(d, o) {
		return Vec2{}, false
	}
	p := NearestPointOnRect(d, o)
	reach := d.Size + ContactTolerance
	if p.Minus(d.Position).MagnitudeSquared() <= reach*reach {
		return p, true
	}
	if ContainsPoint(o, d.Position.X, d.Position.Y) {
		return p, true
	}
	return Vec2{}, false
}

// ComputeNormal returns the surface normal at contact. A nil obstacle is the
// floor. When the contact matches no edge or corner within tolerance the
// normal degenerates to flat and straight up.
func ComputeNormal(o *Obstacle, contact Vec2) Normal {
	if o == nil {
		return floorNormal
	}

	if o.IsCircle() {
		return Normal{Vec2: contact.Minus(o.Center()).Normalize(), Surface: SurfaceCurved}
	}

	if o.Radius > 0 {
		for _, c := range o.Corners() {
			delta := contact.Minus(c)
			if delta.Magnitude() <= o.Radius+ContactTolerance {
				return Normal{Vec2: delta.Normalize(), Surface: SurfaceCurved}
			}
		}
	}

	switch {
	case math.Abs(contact.Y-o.Y) < ContactTolerance:
		return Normal{Vec2: Vec2{X: 0, Y: -1}, Surface: SurfaceFlat}
	case math.Abs(contact.Y-o.Bottom()) < ContactTolerance:
		return Normal{Vec2: Vec2{X: 0, Y: 1}, Surface: SurfaceFlat}
	case math.Abs(contact.X-o.X) < ContactTolerance:
		return Normal{Vec2: Vec2{X: -1, Y: 0}, Surface: SurfaceFlat}
	case math.Abs(contact.X-o.Right()) < ContactTolerance:
		return Normal{Vec2: Vec2{X: 1, Y: 0}, Surface: SurfaceFlat}
	}
	// Contact strictly inside the box, away from every edge.
	return floorNormal
}
