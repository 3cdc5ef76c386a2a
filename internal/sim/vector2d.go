package sim

import "math"

// Vec2 is a 2D vector in canvas units (y grows downward).
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Up is the straight-up unit vector, used whenever a direction degenerates.
var Up = Vec2{X: 0, Y: -1}

func NewVec2(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

func (v Vec2) Plus(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) Minus(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vec2) Times(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
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

// Normalize returns the unit vector of v, or Up when v has zero length.
func (v Vec2) Normalize() Vec2 {
	m := v.Magnitude()
	if m == 0 || math.IsNaN(m) {
		return Up
	}
	return v.Times(1.0 / m)
}

// LeftNormal returns the perpendicular (-y, x).
func (v Vec2) LeftNormal() Vec2 {
	return Vec2{X: -v.Y, Y: v.X}
}

// Reflect mirrors v about the surface with unit normal n: v - 2(v·n)n.
func (v Vec2) Reflect(n Vec2) Vec2 {
	return v.Minus(n.Times(2 * v.Dot(n)))
}

func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

func (v Vec2) IsEqualTo(o Vec2) bool {
	return v.X == o.X && v.Y == o.Y
}

// sign mirrors Math.sign semantics: -1, 0 or 1.
func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
