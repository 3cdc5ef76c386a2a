package scene

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/dropfall/backend/internal/config"
	"github.com/dropfall/backend/internal/sim"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

var (
	ErrSceneNotFound   = errors.New("scene not found")
	ErrSceneEnded      = errors.New("scene has ended")
	ErrTooManyScenes   = errors.New("scene limit reached")
	ErrUnknownAction   = errors.New("unknown lifecycle action")
	ErrInvalidViewport = errors.New("viewport must be positive")
	ErrSceneElsewhere  = errors.New("scene is running on another instance")
)

// FrameSink receives every advanced frame. The WebSocket hub implements it.
type FrameSink interface {
	BroadcastFrame(sceneID string, update FrameUpdate)
}

// SceneManager owns every live scene.
type SceneManager struct {
	scenes       map[string]*Scene // keyed by scene ID
	tokenToScene map[string]string // token -> scene ID
	rdb          *redis.Client
	db           *sqlx.DB
	config       *config.Config
	sink         FrameSink
	ctx          context.Context
	instanceID   string
	runLoops     bool
	mu           sync.RWMutex
}

// CreateParams describes a new scene. Zero values fall back to the
// configured defaults; a zero Seed picks a time-based one.
type CreateParams struct {
	Name      string
	Width     float64
	Height    float64
	Seed      int64
	Overrides sim.Update
	CreatedBy string
}

// Summary is the list view of a scene.
type Summary struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Drops     int       `json:"drops"`
	Frame     uint64    `json:"frame"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	// Global scene manager instance
	Manager *SceneManager
)

// InitializeManager sets up the global manager with frame loops enabled.
// Snapshots left in Redis are loaded on first lookup.
func InitializeManager(ctx context.Context, db *sqlx.DB, rdb *redis.Client, cfg *config.Config) {
	Manager = NewSceneManager(db, rdb, cfg)
	Manager.ctx = ctx
	Manager.runLoops = true
}

// NewSceneManager creates a manager. Without InitializeManager scenes do not
// run their own frame loops; callers drive them with Scene.Step.
func NewSceneManager(db *sqlx.DB, rdb *redis.Client, cfg *config.Config) *SceneManager {
	return &SceneManager{
		scenes:       make(map[string]*Scene),
		tokenToScene: make(map[string]string),
		rdb:          rdb,
		db:           db,
		config:       cfg,
		ctx:          context.Background(),
		instanceID:   generateToken(8),
	}
}

// SetFrameSink registers the receiver of frame updates.
func (m *SceneManager) SetFrameSink(sink FrameSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = sink
}

func (m *SceneManager) frameSink() FrameSink {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sink
}

// UpdateDefaults mutates the shared config under the manager lock. New scenes
// pick up the change; running scenes keep their own tunables.
func (m *SceneManager) UpdateDefaults(fn func(cfg *config.Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.config)
}

// GetConfig returns a copy of the current defaults.
func (m *SceneManager) GetConfig() config.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.config
}

// CreateScene builds, records and starts a new scene.
func (m *SceneManager) CreateScene(p CreateParams) (*Scene, error) {
	m.mu.Lock()
	cfg := *m.config
	if cfg.MaxScenes > 0 && len(m.scenes) >= cfg.MaxScenes {
		m.mu.Unlock()
		return nil, ErrTooManyScenes
	}
	m.mu.Unlock()

	width, height := p.Width, p.Height
	if width == 0 {
		width = float64(cfg.DefaultWidth)
	}
	if height == 0 {
		height = float64(cfg.DefaultHeight)
	}
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidViewport
	}

	simCfg, err := DefaultSimConfig(&cfg).Apply(p.Overrides)
	if err != nil {
		return nil, err
	}

	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	engine, err := sim.New(simCfg, width, height, sim.NewRandom(seed))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s := &Scene{
		ID:           generateSceneID(),
		Token:        generateToken(16),
		Name:         p.Name,
		Seed:         seed,
		FrameRateHz:  frameRate(cfg.FrameRateHz),
		CreatedAt:    now,
		LastActivity: now,
		sim:          engine,
		m:            m,
	}

	m.claimOwnership(s.Token)
	m.register(s)

	if err := m.recordSceneCreated(s, width, height, p.CreatedBy); err != nil {
		log.Printf("[DB] Failed to record scene %s: %v", s.ID, err)
	}
	m.recordEvent(s, EventCreated, 0, map[string]interface{}{"name": s.Name, "width": width, "height": height, "seed": seed})
	if err := m.saveSceneToRedis(s); err != nil {
		log.Printf("[SCENE] Failed to save scene %s to Redis: %v", s.ID, err)
	}

	m.startLoop(s)
	log.Printf("[SCENE] Scene created: %s (token=%s, %vx%v, seed=%d)", s.ID, s.Token, width, height, seed)
	return s, nil
}

func (m *SceneManager) register(s *Scene) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenes[s.ID] = s
	m.tokenToScene[s.Token] = s.ID
}

// GetSceneByToken finds a live scene, rehydrating it from its Redis snapshot
// when no instance owns it. A scene owned by another instance is never
// restored here.
func (m *SceneManager) GetSceneByToken(token string) (*Scene, error) {
	if s := m.localScene(token); s != nil {
		return s, nil
	}

	s, err := m.loadSceneFromRedis(token)
	if err != nil {
		return nil, err
	}
	if !m.claimOwnership(token) {
		return nil, ErrSceneElsewhere
	}

	m.mu.Lock()
	if existingID, ok := m.tokenToScene[token]; ok {
		// Another request rehydrated it first.
		existing := m.scenes[existingID]
		m.mu.Unlock()
		return existing, nil
	}
	m.scenes[s.ID] = s
	m.tokenToScene[s.Token] = s.ID
	m.mu.Unlock()

	m.startLoop(s)
	log.Printf("[SCENE] Scene %s rehydrated from Redis at frame %d", s.ID, s.sim.FrameCount())
	return s, nil
}

// localScene returns the scene when this instance holds it.
func (m *SceneManager) localScene(token string) *Scene {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.tokenToScene[token]
	if !ok {
		return nil
	}
	return m.scenes[id]
}

func (m *SceneManager) unregister(s *Scene) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.tokenToScene[s.Token]; ok && id == s.ID {
		delete(m.tokenToScene, s.Token)
		delete(m.scenes, s.ID)
	}
}

// GetScene finds a live scene by ID.
func (m *SceneManager) GetScene(id string) (*Scene, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scenes[id]
	if !ok {
		return nil, ErrSceneNotFound
	}
	return s, nil
}

// ListScenes returns every live scene, oldest first.
func (m *SceneManager) ListScenes() []Summary {
	m.mu.RLock()
	scenes := make([]*Scene, 0, len(m.scenes))
	for _, s := range m.scenes {
		scenes = append(scenes, s)
	}
	m.mu.RUnlock()

	out := make([]Summary, 0, len(scenes))
	for _, s := range scenes {
		s.mu.Lock()
		out = append(out, Summary{
			ID:        s.ID,
			Token:     s.Token,
			Name:      s.Name,
			Status:    s.statusLocked(),
			Drops:     s.sim.Len(),
			Frame:     s.sim.FrameCount(),
			CreatedAt: s.CreatedAt,
		})
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// DeleteScene ends a scene, discards its drops and forgets it. The scene is
// marked ended and its snapshot tombstoned before it leaves the maps, so no
// lookup can restore it in between.
func (m *SceneManager) DeleteScene(token string) error {
	s := m.localScene(token)
	if s == nil {
		return ErrSceneNotFound
	}

	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return ErrSceneNotFound
	}
	s.ended = true
	s.sim.SetEnabled(false)
	frame := s.sim.FrameCount()
	s.mu.Unlock()

	m.deleteSceneFromRedis(token)
	m.unregister(s)
	s.stopLoop()
	m.releaseOwnership(token)

	m.recordEvent(s, EventEnded, frame, nil)
	if err := m.markSceneEnded(s); err != nil {
		log.Printf("[DB] Failed to mark scene %s ended: %v", s.ID, err)
	}
	log.Printf("[SCENE] Scene %s deleted", s.ID)
	return nil
}

// Shutdown stops every frame loop and writes final snapshots.
func (m *SceneManager) Shutdown() {
	m.mu.RLock()
	scenes := make([]*Scene, 0, len(m.scenes))
	for _, s := range m.scenes {
		scenes = append(scenes, s)
	}
	m.mu.RUnlock()

	for _, s := range scenes {
		s.stopLoop()
		if err := m.saveSceneToRedis(s); err != nil {
			log.Printf("[SCENE] Final snapshot for %s failed: %v", s.ID, err)
		}
		// Another instance may pick the scene up from its snapshot.
		m.releaseOwnership(s.Token)
	}
	log.Printf("[SCENE] Stopped %d scene loops", len(scenes))
}

// DefaultSimConfig converts the service defaults into simulation tunables.
func DefaultSimConfig(cfg *config.Config) sim.Config {
	return sim.Config{
		DropInterval: time.Duration(cfg.DropIntervalMs) * time.Millisecond,
		MinDropSize:  cfg.MinDropSize,
		DefaultColor: sim.Palette{
			Main:      cfg.DefaultDropMain,
			Shadow:    cfg.DefaultDropShadow,
			Highlight: cfg.DefaultDropHighlight,
		},
		ClickColor: sim.Palette{
			Main:      cfg.ClickDropMain,
			Shadow:    cfg.ClickDropShadow,
			Highlight: cfg.ClickDropHighlight,
		},
		Gravity:  cfg.Gravity,
		MaxSpeed: cfg.MaxSpeed,
	}
}

func frameRate(hz int) int {
	if hz <= 0 {
		return 60
	}
	return hz
}

// generateToken generates a secure random token
func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func generateSceneID() string {
	return fmt.Sprintf("scn_%d_%s", time.Now().Unix(), generateToken(4))
}
