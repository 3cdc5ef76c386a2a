package sim

import (
	"fmt"
	"time"
)

// Simulation owns the drop collection and the obstacle snapshot of one scene.
// It is not safe for concurrent use; callers serialize access.
type Simulation struct {
	cfg     Config
	rng     Random
	factory Factory

	width  float64
	height float64

	drops     []*Drop
	obstacles []Obstacle

	obstacleIDs    map[string]int // caller key -> stable ID
	nextObstacleID int

	enabled bool
	paused  bool

	spawnPrimed bool
	lastSpawn   time.Time
	frame       uint64
}

// TickStats summarizes what happened during one Tick.
type TickStats struct {
	Bounces int `json:"bounces"`
	Splits  int `json:"splits"`
	Culled  int `json:"culled"`
}

// New creates an enabled, running simulation over a width x height viewport.
func New(cfg Config, width, height float64, rng Random) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: viewport must be positive, got %vx%v", ErrInvalidConfig, width, height)
	}
	s := &Simulation{
		cfg:         cfg,
		rng:         rng,
		width:       width,
		height:      height,
		obstacleIDs: make(map[string]int),
		enabled:     true,
	}
	s.syncFactory()
	return s, nil
}

func (s *Simulation) syncFactory() {
	s.factory = Factory{Rand: s.rng, Gravity: s.cfg.Gravity, MaxSpeed: s.cfg.MaxSpeed}
}

func (s *Simulation) Config() Config { return s.cfg }

// Configure merges u into the current config. On error nothing changes.
// Gravity and MaxSpeed apply to drops created afterwards; MinDropSize applies
// from the next collision on.
func (s *Simulation) Configure(u Update) error {
	next, err := s.cfg.Apply(u)
	if err != nil {
		return err
	}
	s.cfg = next
	s.syncFactory()
	return nil
}

func (s *Simulation) Viewport() (float64, float64) { return s.width, s.height }

// SetViewport resizes the canvas. Non-positive sizes are ignored.
func (s *Simulation) SetViewport(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	s.width, s.height = width, height
}

// SetObstacles replaces the obstacle snapshot. Obstacles with a Key keep the
// same ID across layout passes; obstacles without one get a fresh ID. Keys
// are expected to be unique within a layout: repeated keys share one ID.
func (s *Simulation) SetObstacles(obstacles []Obstacle) []Obstacle {
	next := make([]Obstacle, len(obstacles))
	for i, o := range obstacles {
		if o.Key != "" {
			id, ok := s.obstacleIDs[o.Key]
			if !ok {
				id = s.allocObstacleID()
				s.obstacleIDs[o.Key] = id
			}
			o.ID = id
		} else {
			o.ID = s.allocObstacleID()
		}
		if o.Radius < 0 {
			o.Radius = 0
		}
		next[i] = o
	}
	s.obstacles = next
	return s.Obstacles()
}

func (s *Simulation) allocObstacleID() int {
	s.nextObstacleID++
	return s.nextObstacleID
}

// Obstacles returns a copy of the current snapshot.
func (s *Simulation) Obstacles() []Obstacle {
	out := make([]Obstacle, len(s.obstacles))
	copy(out, s.obstacles)
	return out
}

// IsBlocked reports whether any obstacle covers (x, y).
func (s *Simulation) IsBlocked(x, y float64) bool {
	for i := range s.obstacles {
		if ContainsPoint(&s.obstacles[i], x, y) {
			return true
		}
	}
	return false
}

// SpawnAmbient adds one drop at a random x above the top edge.
func (s *Simulation) SpawnAmbient() bool {
	if !s.enabled {
		return false
	}
	s.drops = append(s.drops, s.factory.Ambient(s.width, s.cfg.DefaultColor))
	return true
}

// SpawnAt adds a resting click-coloured drop at (x, y). It reports false when
// the point is covered by an obstacle or the simulation is disabled.
func (s *Simulation) SpawnAt(x, y float64) bool {
	if !s.enabled || s.IsBlocked(x, y) {
		return false
	}
	s.drops = append(s.drops, s.factory.At(Vec2{X: x, Y: y}, ClickDropSize, s.cfg.ClickColor))
	return true
}

// Frame runs one host animation frame: the interval spawn, then a Tick. The
// first frame after start or re-enable only primes the spawn clock.
func (s *Simulation) Frame(now time.Time) TickStats {
	if !s.enabled || s.paused {
		return TickStats{}
	}
	if !s.spawnPrimed {
		s.spawnPrimed = true
		s.lastSpawn = now
	} else if now.Sub(s.lastSpawn) > s.cfg.DropInterval {
		s.SpawnAmbient()
		s.lastSpawn = now
	}
	return s.Tick()
}

// Tick advances every drop by one frame. Drops are visited in reverse order;
// removals and split children are staged and applied after the sweep.
func (s *Simulation) Tick() TickStats {
	var stats TickStats
	if !s.enabled || s.paused {
		return stats
	}
	s.frame++

	removed := make([]bool, len(s.drops))
	var staged []*Drop

	for i := len(s.drops) - 1; i >= 0; i-- {
		d := s.drops[i]
		integrate(d)

		c, hit := Detect(d, s.obstacles, s.height)
		if hit {
			n := ComputeNormal(c.Obstacle, c.Point)
			resp := Respond(d, c, n, s.cfg.MinDropSize, &s.factory)
			if resp.Split() {
				removed[i] = true
				staged = append(staged, resp.Children...)
				stats.Splits++
			} else {
				stats.Bounces++
			}
			continue
		}

		if d.Position.Y-d.Size > s.height+CullMargin {
			removed[i] = true
			stats.Culled++
		}
	}

	kept := s.drops[:0]
	for i, d := range s.drops {
		if !removed[i] {
			kept = append(kept, d)
		}
	}
	for i := len(kept); i < len(s.drops); i++ {
		s.drops[i] = nil
	}
	s.drops = append(kept, staged...)
	return stats
}

// integrate applies gravity, the vertical speed cap, motion and horizontal drag.
func integrate(d *Drop) {
	d.Velocity.Y += d.Gravity
	if d.Velocity.Y > d.MaxSpeed {
		d.Velocity.Y = d.MaxSpeed
	}
	d.Position = d.Position.Plus(d.Velocity)
	d.Velocity.X *= HorizontalDrag
}

// Drops returns render views of every live drop.
func (s *Simulation) Drops() []DropView {
	out := make([]DropView, len(s.drops))
	for i, d := range s.drops {
		out[i] = d.View()
	}
	return out
}

func (s *Simulation) Len() int { return len(s.drops) }

func (s *Simulation) FrameCount() uint64 { return s.frame }

func (s *Simulation) Enabled() bool { return s.enabled }

func (s *Simulation) Paused() bool { return s.paused }

// SetEnabled switches the simulation on or off. Disabling discards every
// drop; enabling restarts the spawn clock instead of resuming motion.
func (s *Simulation) SetEnabled(enabled bool) {
	if enabled == s.enabled {
		return
	}
	s.enabled = enabled
	s.spawnPrimed = false
	if !enabled {
		s.Clear()
	}
}

// SetPaused freezes or resumes ticking. Drop state is kept exactly.
func (s *Simulation) SetPaused(paused bool) {
	s.paused = paused
}

// Clear removes every drop.
func (s *Simulation) Clear() {
	s.drops = nil
}
