package scene

import (
	"sync"
	"time"

	"github.com/dropfall/backend/internal/sim"
)

// Status is the lifecycle state reported for a scene.
type Status string

const (
	StatusRunning  Status = "RUNNING"
	StatusPaused   Status = "PAUSED"
	StatusDisabled Status = "DISABLED"
	StatusEnded    Status = "ENDED"
)

// Event types recorded in scene_events and published on the events channel.
const (
	EventCreated    = "scene_created"
	EventSpawn      = "drop_spawned"
	EventLayout     = "obstacles_updated"
	EventViewport   = "viewport_updated"
	EventConfigured = "config_updated"
	EventLifecycle  = "lifecycle"
	EventIdlePaused = "scene_idle_paused"
	EventEnded      = "scene_ended"

	// EventPauseRequested asks the owning instance to idle-pause a scene.
	EventPauseRequested = "scene_pause_requested"
)

// Scene is one running simulation together with its frame loop. All access to
// the simulation goes through the scene's mutex, so a frame always runs to
// completion before a spawn or reconfiguration is applied.
type Scene struct {
	ID           string
	Token        string
	Name         string
	Seed         int64
	FrameRateHz  int
	CreatedAt    time.Time
	LastActivity time.Time

	sim   *sim.Simulation
	ended bool
	m     *SceneManager

	cancel func()
	done   chan struct{}
	mu     sync.Mutex
}

// FrameUpdate is what viewers receive after every advanced frame.
type FrameUpdate struct {
	SceneID string         `json:"scene_id"`
	Frame   uint64         `json:"frame"`
	Stats   sim.TickStats  `json:"stats"`
	Drops   []sim.DropView `json:"drops"`
}

// State is the full read-only view of a scene.
type State struct {
	ID           string         `json:"id"`
	Token        string         `json:"token"`
	Name         string         `json:"name"`
	Status       Status         `json:"status"`
	Frame        uint64         `json:"frame"`
	Width        float64        `json:"width"`
	Height       float64        `json:"height"`
	FrameRateHz  int            `json:"frame_rate_hz"`
	Config       ConfigView     `json:"config"`
	Obstacles    []sim.Obstacle `json:"obstacles"`
	Drops        []sim.DropView `json:"drops"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActivity time.Time      `json:"last_activity"`
}

// ConfigView renders sim.Config with the interval in milliseconds.
type ConfigView struct {
	DropIntervalMs int64       `json:"drop_interval_ms"`
	MinDropSize    float64     `json:"min_drop_size"`
	DefaultColor   sim.Palette `json:"default_color"`
	ClickColor     sim.Palette `json:"click_color"`
	Gravity        float64     `json:"gravity"`
	MaxSpeed       float64     `json:"max_speed"`
}

func viewConfig(c sim.Config) ConfigView {
	return ConfigView{
		DropIntervalMs: c.DropInterval.Milliseconds(),
		MinDropSize:    c.MinDropSize,
		DefaultColor:   c.DefaultColor,
		ClickColor:     c.ClickColor,
		Gravity:        c.Gravity,
		MaxSpeed:       c.MaxSpeed,
	}
}

func (s *Scene) statusLocked() Status {
	switch {
	case s.ended:
		return StatusEnded
	case !s.sim.Enabled():
		return StatusDisabled
	case s.sim.Paused():
		return StatusPaused
	}
	return StatusRunning
}

func (s *Scene) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// GetState returns a consistent copy of the scene.
func (s *Scene) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, h := s.sim.Viewport()
	return State{
		ID:           s.ID,
		Token:        s.Token,
		Name:         s.Name,
		Status:       s.statusLocked(),
		Frame:        s.sim.FrameCount(),
		Width:        w,
		Height:       h,
		FrameRateHz:  s.FrameRateHz,
		Config:       viewConfig(s.sim.Config()),
		Obstacles:    s.sim.Obstacles(),
		Drops:        s.sim.Drops(),
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
	}
}

// Step advances the scene by one frame at now. It reports false when the
// scene is paused, disabled or ended and nothing moved.
func (s *Scene) Step(now time.Time) (FrameUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended || !s.sim.Enabled() || s.sim.Paused() {
		return FrameUpdate{}, false
	}
	stats := s.sim.Frame(now)
	return FrameUpdate{
		SceneID: s.ID,
		Frame:   s.sim.FrameCount(),
		Stats:   stats,
		Drops:   s.sim.Drops(),
	}, true
}

// SpawnAt drops a click-coloured drop at (x, y). It reports false when the
// point is covered by an obstacle or the scene is not accepting drops.
func (s *Scene) SpawnAt(x, y float64) bool {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return false
	}
	ok := s.sim.SpawnAt(x, y)
	frame := s.sim.FrameCount()
	s.touchLocked()
	s.mu.Unlock()

	s.m.recordEvent(s, EventSpawn, frame, map[string]interface{}{"x": x, "y": y, "spawned": ok})
	return ok
}

// SetObstacles installs a new obstacle layout and returns it with IDs.
func (s *Scene) SetObstacles(obstacles []sim.Obstacle) []sim.Obstacle {
	s.mu.Lock()
	out := s.sim.SetObstacles(obstacles)
	frame := s.sim.FrameCount()
	s.touchLocked()
	s.mu.Unlock()

	s.m.recordEvent(s, EventLayout, frame, map[string]interface{}{"obstacles": out})
	return out
}

// SetViewport resizes the scene's canvas.
func (s *Scene) SetViewport(width, height float64) {
	s.mu.Lock()
	s.sim.SetViewport(width, height)
	frame := s.sim.FrameCount()
	s.touchLocked()
	s.mu.Unlock()

	s.m.recordEvent(s, EventViewport, frame, map[string]interface{}{"width": width, "height": height})
}

// Configure applies named tunable overrides.
func (s *Scene) Configure(u sim.Update) (ConfigView, error) {
	s.mu.Lock()
	err := s.sim.Configure(u)
	view := viewConfig(s.sim.Config())
	frame := s.sim.FrameCount()
	s.touchLocked()
	s.mu.Unlock()

	if err != nil {
		return ConfigView{}, err
	}
	s.m.recordEvent(s, EventConfigured, frame, map[string]interface{}{"config": view})
	return view, nil
}

// Lifecycle actions accepted by Apply.
const (
	ActionEnable  = "enable"
	ActionDisable = "disable"
	ActionPause   = "pause"
	ActionResume  = "resume"
	ActionClear   = "clear"
)

// Apply runs a lifecycle action and returns the resulting status.
func (s *Scene) Apply(action string) (Status, error) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return StatusEnded, ErrSceneEnded
	}
	switch action {
	case ActionEnable:
		s.sim.SetEnabled(true)
	case ActionDisable:
		s.sim.SetEnabled(false)
	case ActionPause:
		s.sim.SetPaused(true)
	case ActionResume:
		s.sim.SetPaused(false)
	case ActionClear:
		s.sim.Clear()
	default:
		s.mu.Unlock()
		return "", ErrUnknownAction
	}
	status := s.statusLocked()
	frame := s.sim.FrameCount()
	s.touchLocked()
	s.mu.Unlock()

	s.m.recordEvent(s, EventLifecycle, frame, map[string]interface{}{"action": action, "status": status})
	return status, nil
}

// Touch marks viewer activity without changing the simulation.
func (s *Scene) Touch() {
	s.mu.Lock()
	s.touchLocked()
	at := s.LastActivity
	s.mu.Unlock()

	s.m.scheduleIdle(s.Token, at)
}

// touchLocked only stamps the time. Redis scheduling happens after unlock,
// in recordEvent or Touch.
func (s *Scene) touchLocked() {
	s.LastActivity = time.Now()
}

func (s *Scene) isEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

func (s *Scene) snapshot() sim.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Snapshot()
}
