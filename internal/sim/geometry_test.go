package sim

import "testing"

func TestContainsPointSharpRectMatchesBounds(t *testing.T) {
	o := &Obstacle{X: 50, Y: 50, Width: 100, Height: 40}

	points := []struct {
		x, y float64
	}{
		{50, 50}, {150, 90}, {100, 70}, {49.9, 70}, {150.1, 70},
		{100, 49.9}, {100, 90.1}, {0, 0}, {150, 50}, {50, 90},
	}
	for _, p := range points {
		want := p.x >= 50 && p.x <= 150 && p.y >= 50 && p.y <= 90
		if got := ContainsPoint(o, p.x, p.y); got != want {
			t.Errorf("ContainsPoint(%v, %v) = %v, want %v", p.x, p.y, got, want)
		}
	}
}

func TestContainsPointExcludesCornerWedges(t *testing.T) {
	o := &Obstacle{X: 0, Y: 0, Width: 100, Height: 100, Radius: 20}

	// The extreme corners of the bounding box lie outside every rounded corner.
	for _, p := range [][2]float64{{1, 1}, {99, 1}, {1, 99}, {99, 99}} {
		if ContainsPoint(o, p[0], p[1]) {
			t.Errorf("point %v should fall in a missing corner wedge", p)
		}
	}

	// Points inside the corner arcs and on the straight edges are covered.
	for _, p := range [][2]float64{{10, 10}, {90, 10}, {10, 90}, {90, 90}, {50, 0}, {0, 50}, {50, 50}} {
		if !ContainsPoint(o, p[0], p[1]) {
			t.Errorf("point %v should be covered", p)
		}
	}
}

func TestNearestPointOnRectClampsEachAxis(t *testing.T) {
	o := &Obstacle{X: 50, Y: 50, Width: 100, Height: 100}

	cases := []struct {
		at   Vec2
		want Vec2
	}{
		{Vec2{100, 30}, Vec2{100, 50}},  // above
		{Vec2{30, 100}, Vec2{50, 100}},  // left
		{Vec2{170, 170}, Vec2{150, 150}}, // below-right
		{Vec2{100, 100}, Vec2{100, 100}}, // inside
	}
	for _, tc := range cases {
		d := newTestDrop(tc.at.X, tc.at.Y, 10)
		if got := NearestPointOnRect(d, o); !got.IsEqualTo(tc.want) {
			t.Errorf("NearestPointOnRect(%v) = %v, want %v", tc.at, got, tc.want)
		}
	}
}

func TestIsCircle(t *testing.T) {
	if !(&Obstacle{Width: 40, Height: 40, Radius: 20}).IsCircle() {
		t.Error("square with radius = half width should be a circle")
	}
	if (&Obstacle{Width: 40, Height: 30, Radius: 20}).IsCircle() {
		t.Error("non-square obstacle is never a circle")
	}
	if (&Obstacle{Width: 40, Height: 40, Radius: 19}).IsCircle() {
		t.Error("radius below half width is a rounded rectangle")
	}
}
