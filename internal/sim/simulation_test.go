package sim

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestTickIntegratesGravityAndDrag(t *testing.T) {
	s := newTestSim(800, 600, NewRandom(1))
	d := newTestDrop(100, 100, 10)
	d.Velocity = Vec2{2, 0}
	s.drops = append(s.drops, d)

	s.Tick()

	if math.Abs(d.Velocity.Y-0.15) > 1e-12 {
		t.Errorf("vy = %v, want 0.15", d.Velocity.Y)
	}
	if math.Abs(d.Position.X-102) > 1e-12 || math.Abs(d.Position.Y-100.15) > 1e-12 {
		t.Errorf("position = %v, want (102,100.15)", d.Position)
	}
	if math.Abs(d.Velocity.X-1.96) > 1e-12 {
		t.Errorf("vx = %v, want 1.96 after drag", d.Velocity.X)
	}
}

func TestTickClampsFallSpeed(t *testing.T) {
	s := newTestSim(800, 600, NewRandom(1))
	d := newTestDrop(100, 0, 10)
	d.Velocity.Y = 7.95
	s.drops = append(s.drops, d)

	s.Tick()

	if d.Velocity.Y != DefaultMaxSpeed {
		t.Errorf("vy = %v, want capped at %v", d.Velocity.Y, DefaultMaxSpeed)
	}
}

func TestFloorBouncesOnlyOnce(t *testing.T) {
	s := newTestSim(800, 600, NewRandom(1))
	d := newTestDrop(100, 594, 2)
	d.Velocity.Y = 5
	s.drops = append(s.drops, d)

	stats := s.Tick()
	if stats.Bounces != 1 || !d.HasBouncedBottom {
		t.Fatalf("stats=%+v bounced=%v, want one floor bounce", stats, d.HasBouncedBottom)
	}
	if d.Velocity.Y >= 0 {
		t.Errorf("vy = %v, want upward", d.Velocity.Y)
	}

	// Put it back at the same depth: no second floor collision.
	d.Position.Y = 594
	d.Velocity = Vec2{0, 5}
	stats = s.Tick()
	if stats.Bounces != 0 {
		t.Errorf("second pass produced %d bounces, want 0", stats.Bounces)
	}
}

func TestCullBelowViewport(t *testing.T) {
	s := newTestSim(800, 600, NewRandom(1))
	d := newTestDrop(100, 700, 2)
	d.HasBouncedBottom = true
	d.Velocity = Vec2{0, -8}
	s.drops = append(s.drops, d)

	stats := s.Tick()
	if stats.Culled != 1 || s.Len() != 0 {
		t.Errorf("stats=%+v len=%d, want the drop culled", stats, s.Len())
	}
}

func TestSplitReplacesParentWithTwoChildren(t *testing.T) {
	s := newTestSim(800, 600, NewRandom(1))
	stay := newTestDrop(400, 100, 12)
	parent := newTestDrop(100, 594, 10)
	parent.Velocity.Y = 5
	s.drops = append(s.drops, parent, stay)

	stats := s.Tick()
	if stats.Splits != 1 {
		t.Fatalf("stats = %+v, want one split", stats)
	}
	if s.Len() != 3 {
		t.Fatalf("len = %d, want 3 (net +1)", s.Len())
	}
	if s.drops[0] != stay {
		t.Error("surviving drops keep their order ahead of new children")
	}
	for _, ch := range s.drops[1:] {
		if math.Abs(ch.Size-7) > 1e-9 {
			t.Errorf("child size = %v, want 7", ch.Size)
		}
		if ch == parent {
			t.Error("parent must be removed")
		}
	}
}

func TestChildrenAreNotTickedInTheSweepThatCreatedThem(t *testing.T) {
	s := newTestSim(800, 600, NewRandom(1))
	parent := newTestDrop(100, 594, 10)
	parent.Velocity.Y = 5
	s.drops = append(s.drops, parent)

	s.Tick()
	// Floor contact is (100,590); the left child starts at (95,570) with the
	// factory-fresh velocity, untouched by integration.
	left := s.drops[0]
	if left.Position.X != 95 || left.Position.Y != 570 {
		t.Errorf("left child at %v, want (95,570)", left.Position)
	}
}

func TestObstacleIsNeverHitTwice(t *testing.T) {
	s := newTestSim(800, 600, NewRandom(1))
	s.SetObstacles([]Obstacle{{Key: "bar", X: 0, Y: 300, Width: 800, Height: 50}})
	d := newTestDrop(400, 296, 2)
	d.Velocity.Y = 5
	s.drops = append(s.drops, d)

	if stats := s.Tick(); stats.Bounces != 1 {
		t.Fatalf("stats = %+v, want one bounce", stats)
	}
	id := s.Obstacles()[0].ID
	if !d.HasAffected(id) {
		t.Fatalf("affected = %v, want %d", d.AffectedIDs(), id)
	}

	// Drop it straight into the obstacle again.
	d.Position = Vec2{400, 320}
	d.Velocity = Vec2{}
	if stats := s.Tick(); stats.Bounces != 0 || stats.Splits != 0 {
		t.Errorf("stats = %+v, want no collision with an affected obstacle", stats)
	}
}

func TestSpawnAtRespectsObstacles(t *testing.T) {
	s := newTestSim(800, 600, NewRandom(1))
	s.SetObstacles([]Obstacle{
		{Key: "box", X: 50, Y: 50, Width: 100, Height: 100},
		{Key: "pill", X: 300, Y: 300, Width: 100, Height: 100, Radius: 20},
	})

	if s.SpawnAt(100, 100) {
		t.Error("spawn inside an obstacle must be refused")
	}
	if s.Len() != 0 {
		t.Fatalf("len = %d after refused spawn", s.Len())
	}
	if !s.SpawnAt(301, 301) {
		t.Error("spawn in a rounded corner wedge is not blocked")
	}
	if !s.SpawnAt(10, 10) {
		t.Fatal("spawn in free space should succeed")
	}

	d := s.drops[1]
	if d.Size != ClickDropSize || d.Color != DefaultClickColor || !d.Velocity.IsZero() {
		t.Errorf("click drop = %+v", d)
	}
}

func TestSpawnAmbient(t *testing.T) {
	s := newTestSim(800, 600, NewRandom(7))
	for i := 0; i < 50; i++ {
		s.SpawnAmbient()
	}
	for _, d := range s.drops {
		if d.Position.Y != SpawnY {
			t.Errorf("y = %v, want %v", d.Position.Y, SpawnY)
		}
		if d.Position.X < 0 || d.Position.X >= 800 {
			t.Errorf("x = %v outside the viewport", d.Position.X)
		}
		if d.Size < 12 || d.Size >= 20 {
			t.Errorf("size = %v outside [12,20)", d.Size)
		}
		if d.Opacity < 0.6 || d.Opacity >= 1 {
			t.Errorf("opacity = %v outside [0.6,1)", d.Opacity)
		}
		if d.Color != DefaultDropColor {
			t.Errorf("ambient colour = %+v", d.Color)
		}
	}
}

func TestFrameSpawnsOnInterval(t *testing.T) {
	s := newTestSim(800, 600, NewRandom(3))
	t0 := time.Unix(1000, 0)

	s.Frame(t0)
	if s.Len() != 0 {
		t.Fatalf("first frame only primes the spawn clock, len = %d", s.Len())
	}
	s.Frame(t0.Add(100 * time.Millisecond))
	if s.Len() != 0 {
		t.Fatalf("len = %d before the interval elapsed", s.Len())
	}
	s.Frame(t0.Add(201 * time.Millisecond))
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1 after the interval", s.Len())
	}
	s.Frame(t0.Add(300 * time.Millisecond))
	if s.Len() != 1 {
		t.Fatalf("len = %d, interval restarts at the last spawn", s.Len())
	}
	s.Frame(t0.Add(402 * time.Millisecond))
	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
}

func TestDisableClearsAndPauseFreezes(t *testing.T) {
	s := newTestSim(800, 600, NewRandom(1))
	s.SpawnAt(100, 100)
	before := s.drops[0].Position

	s.SetPaused(true)
	s.Tick()
	s.Frame(time.Now())
	if !s.drops[0].Position.IsEqualTo(before) {
		t.Error("paused simulation must not move drops")
	}

	s.SetPaused(false)
	s.Tick()
	if s.drops[0].Position.IsEqualTo(before) {
		t.Error("resumed simulation should move drops")
	}

	s.SetEnabled(false)
	if s.Len() != 0 {
		t.Errorf("disable must discard drops, len = %d", s.Len())
	}
	if s.SpawnAt(100, 100) || s.SpawnAmbient() {
		t.Error("disabled simulation must refuse spawns")
	}

	s.SetEnabled(true)
	if !s.SpawnAt(100, 100) {
		t.Error("re-enabled simulation accepts spawns")
	}
	s.Clear()
	if s.Len() != 0 || !s.Enabled() {
		t.Error("Clear empties drops without disabling")
	}
}

func TestConfigureMinDropSize(t *testing.T) {
	s := newTestSim(800, 600, NewRandom(1))
	size := 12.0
	if err := s.Configure(Update{MinDropSize: &size}); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	d := newTestDrop(100, 594, 10)
	d.Velocity.Y = 5
	s.drops = append(s.drops, d)
	if stats := s.Tick(); stats.Splits != 0 || stats.Bounces != 1 {
		t.Errorf("stats = %+v, want a bounce under the raised threshold", stats)
	}
}

func TestConfigureRejectsInvalid(t *testing.T) {
	s := newTestSim(800, 600, NewRandom(1))
	bad := -1.0
	err := s.Configure(Update{MinDropSize: &bad})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
	if s.Config().MinDropSize != DefaultMinDropSize {
		t.Error("a rejected update must leave the config untouched")
	}
}

func TestConfigureGravityAppliesToNewDrops(t *testing.T) {
	s := newTestSim(800, 600, NewRandom(1))
	s.SpawnAt(10, 10)
	g := 0.5
	if err := s.Configure(Update{Gravity: &g}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	s.SpawnAt(20, 10)

	if s.drops[0].Gravity != DefaultGravity || s.drops[1].Gravity != 0.5 {
		t.Errorf("gravity = %v, %v", s.drops[0].Gravity, s.drops[1].Gravity)
	}
}

func TestObstacleIDsStayStableAcrossLayouts(t *testing.T) {
	s := newTestSim(800, 600, NewRandom(1))
	first := s.SetObstacles([]Obstacle{{Key: "a"}, {Key: "b"}, {}})
	if first[0].ID != 1 || first[1].ID != 2 || first[2].ID != 3 {
		t.Fatalf("ids = %d %d %d", first[0].ID, first[1].ID, first[2].ID)
	}

	second := s.SetObstacles([]Obstacle{{Key: "b"}, {Key: "a"}, {}})
	if second[0].ID != 2 || second[1].ID != 1 {
		t.Errorf("keyed ids moved: b=%d a=%d", second[0].ID, second[1].ID)
	}
	if second[2].ID != 4 {
		t.Errorf("unkeyed obstacle id = %d, want a fresh 4", second[2].ID)
	}
}

func TestDeterministicWithSameSeed(t *testing.T) {
	run := func() []DropView {
		s := newTestSim(800, 600, NewRandom(42))
		s.SetObstacles([]Obstacle{
			{Key: "card", X: 100, Y: 250, Width: 300, Height: 120, Radius: 12},
			{Key: "avatar", X: 500, Y: 200, Width: 80, Height: 80, Radius: 40},
			{Key: "footer", X: 0, Y: 520, Width: 800, Height: 30},
		})
		t0 := time.Unix(0, 0)
		for i := 0; i < 600; i++ {
			s.Frame(t0.Add(time.Duration(i) * 16 * time.Millisecond))
		}
		return s.Drops()
	}

	a, b := run(), run()
	if len(a) == 0 {
		t.Fatal("expected live drops after 600 frames")
	}
	if len(a) != len(b) {
		t.Fatalf("run lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("drop %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := newTestSim(640, 480, NewRandom(1))
	s.SetObstacles([]Obstacle{{Key: "a", X: 10, Y: 10, Width: 20, Height: 20}})
	d := newTestDrop(50, 60, 8)
	d.Velocity = Vec2{1, 2}
	d.affected[1] = struct{}{}
	s.drops = append(s.drops, d)
	s.SetPaused(true)

	r, err := Restore(s.Snapshot(), NewRandom(2))
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !r.Paused() || r.Len() != 1 {
		t.Fatalf("paused=%v len=%d", r.Paused(), r.Len())
	}
	got := r.drops[0]
	if !got.Position.IsEqualTo(d.Position) || !got.Velocity.IsEqualTo(d.Velocity) || !got.HasAffected(1) {
		t.Errorf("restored drop = %+v affected=%v", got, got.AffectedIDs())
	}
	if w, h := r.Viewport(); w != 640 || h != 480 {
		t.Errorf("viewport = %vx%v", w, h)
	}
	again := r.SetObstacles([]Obstacle{{Key: "a"}, {Key: "z"}})
	if again[0].ID != 1 || again[1].ID != 2 {
		t.Errorf("ids after restore = %d %d", again[0].ID, again[1].ID)
	}
}

func TestNewRejectsBadViewport(t *testing.T) {
	if _, err := New(DefaultConfig(), 0, 600, NewRandom(1)); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}
