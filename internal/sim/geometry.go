package sim

// Obstacle is an axis-aligned rectangle drops collide against. A positive
// Radius rounds the corners; a square with Radius >= Width/2 is a circle.
type Obstacle struct {
	ID     int     `json:"id"`
	Key    string  `json:"key,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Radius float64 `json:"radius"`
}

func (o *Obstacle) Right() float64  { return o.X + o.Width }
func (o *Obstacle) Bottom() float64 { return o.Y + o.Height }

func (o *Obstacle) Center() Vec2 {
	return Vec2{X: o.X + o.Width/2, Y: o.Y + o.Height/2}
}

// IsCircle reports whether the obstacle is rendered as a full circle.
func (o *Obstacle) IsCircle() bool {
	return o.Width == o.Height && o.Radius >= o.Width/2
}

// Corners returns the centres of the four rounded corners in the order
// top-left, top-right, bottom-left, bottom-right.
func (o *Obstacle) Corners() [4]Vec2 {
	r := o.Radius
	return [4]Vec2{
		{X: o.X + r, Y: o.Y + r},
		{X: o.Right() - r, Y: o.Y + r},
		{X: o.X + r, Y: o.Bottom() - r},
		{X: o.Right() - r, Y: o.Bottom() - r},
	}
}

// ContainsPoint reports whether (x, y) is covered by the obstacle. Points
// inside the bounding box but in one of the wedges cut away by a rounded
// corner are not covered.
func ContainsPoint(o *Obstacle, x, y float64) bool {
	if x < o.X || x > o.Right() || y < o.Y || y > o.Bottom() {
		return false
	}
	if o.Radius <= 0 {
		return true
	}

	r := o.Radius
	corners := o.Corners()
	var corner *Vec2
	switch {
	case x < o.X+r && y < o.Y+r:
		corner = &corners[0]
	case x > o.Right()-r && y < o.Y+r:
		corner = &corners[1]
	case x < o.X+r && y > o.Bottom()-r:
		corner = &corners[2]
	case x > o.Right()-r && y > o.Bottom()-r:
		corner = &corners[3]
	}
	if corner == nil {
		return true
	}
	dx := x - corner.X
	dy := y - corner.Y
	return dx*dx+dy*dy <= r*r
}

// NearestPointOnRect clamps the drop centre onto the obstacle's bounds, axis by
// axis. A centre inside the rectangle is returned unchanged.
func NearestPointOnRect(d *Drop, o *Obstacle) Vec2 {
	return Vec2{
		X: clamp(d.Position.X, o.X, o.Right()),
		Y: clamp(d.Position.Y, o.Y, o.Bottom()),
	}
}

// overlapsBounds is the cheap bounding-square test run before anything else.
func overlapsBounds(d *Drop, o *Obstacle) bool {
	return d.Position.X+d.Size >= o.X &&
		d.Position.X-d.Size <= o.Right() &&
		d.Position.Y+d.Size >= o.Y &&
		d.Position.Y-d.Size <= o.Bottom()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
