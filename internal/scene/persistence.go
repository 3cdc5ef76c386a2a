package scene

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/dropfall/backend/internal/models"
	"github.com/dropfall/backend/internal/sim"
	"github.com/redis/go-redis/v9"
)

// Redis keys and channels.
const (
	EventsChannel  = "scene_events"
	IdleSetKey     = "scene_idle"
	idleMemberPref = "scene:"
)

func stateKey(token string) string      { return "scene:" + token + ":state" }
func lastActiveKey(token string) string { return "scene_last_active:" + token }
func idleMember(token string) string    { return idleMemberPref + token }

// tokenFromIdleMember expects member format scene:<token>
func tokenFromIdleMember(m string) string {
	if !strings.HasPrefix(m, idleMemberPref) {
		return ""
	}
	return strings.TrimPrefix(m, idleMemberPref)
}

// storedScene is the Redis form of a scene.
type storedScene struct {
	ID          string       `json:"id"`
	Token       string       `json:"token"`
	Name        string       `json:"name"`
	Seed        int64        `json:"seed"`
	FrameRateHz int          `json:"frame_rate_hz"`
	CreatedAt   time.Time    `json:"created_at"`
	Snapshot    sim.Snapshot `json:"snapshot"`
}

// EventMessage is what gets published on the events channel.
type EventMessage struct {
	Type       string                 `json:"type"`
	SceneID    string                 `json:"scene_id"`
	SceneToken string                 `json:"scene_token"`
	Frame      uint64                 `json:"frame"`
	Status     Status                 `json:"status"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	At         time.Time              `json:"at"`
}

func (m *SceneManager) snapshotTTL() time.Duration {
	cfg := m.GetConfig()
	if cfg.SnapshotTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(cfg.SnapshotTTLMinutes) * time.Minute
}

// saveSceneToRedis persists the scene snapshot to Redis
func (m *SceneManager) saveSceneToRedis(s *Scene) error {
	if m == nil || m.rdb == nil {
		return nil // No Redis client, skip
	}
	if s.isEnded() {
		return nil
	}

	stored := storedScene{
		ID:          s.ID,
		Token:       s.Token,
		Name:        s.Name,
		Seed:        s.Seed,
		FrameRateHz: s.FrameRateHz,
		CreatedAt:   s.CreatedAt,
		Snapshot:    s.snapshot(),
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal scene %s: %w", s.ID, err)
	}

	ctx := context.Background()
	return m.rdb.SetEx(ctx, stateKey(s.Token), data, m.snapshotTTL()).Err()
}

// loadSceneFromRedis restores a scene from its snapshot. The random source is
// reseeded from the stored seed and frame, so a restored scene keeps running
// but does not replay the original random sequence. Deleted scenes leave a
// tombstone and are never restored.
func (m *SceneManager) loadSceneFromRedis(token string) (*Scene, error) {
	if m.rdb == nil {
		return nil, ErrSceneNotFound
	}

	ctx := context.Background()
	if n, err := m.rdb.Exists(ctx, endedKey(token)).Result(); err != nil {
		return nil, fmt.Errorf("check scene %s: %w", token, err)
	} else if n > 0 {
		return nil, ErrSceneNotFound
	}
	data, err := m.rdb.Get(ctx, stateKey(token)).Result()
	if err == redis.Nil {
		return nil, ErrSceneNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load scene %s: %w", token, err)
	}

	var stored storedScene
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, fmt.Errorf("decode scene %s: %w", token, err)
	}
	engine, err := sim.Restore(stored.Snapshot, sim.NewRandom(stored.Seed+int64(stored.Snapshot.Frame)))
	if err != nil {
		return nil, fmt.Errorf("restore scene %s: %w", token, err)
	}

	now := time.Now()
	return &Scene{
		ID:           stored.ID,
		Token:        stored.Token,
		Name:         stored.Name,
		Seed:         stored.Seed,
		FrameRateHz:  frameRate(stored.FrameRateHz),
		CreatedAt:    stored.CreatedAt,
		LastActivity: now,
		sim:          engine,
		m:            m,
	}, nil
}

func (m *SceneManager) deleteSceneFromRedis(token string) {
	if m.rdb == nil {
		return
	}
	ctx := context.Background()
	if err := m.rdb.SetEx(ctx, endedKey(token), time.Now().Unix(), m.snapshotTTL()).Err(); err != nil {
		log.Printf("[SCENE] Failed to tombstone %s: %v", token, err)
	}
	if err := m.rdb.Del(ctx, stateKey(token), lastActiveKey(token)).Err(); err != nil {
		log.Printf("[SCENE] Failed to delete Redis keys for %s: %v", token, err)
	}
	m.rdb.ZRem(ctx, IdleSetKey, idleMember(token))
}

// scheduleIdle records activity and pushes the idle deadline forward.
func (m *SceneManager) scheduleIdle(token string, at time.Time) {
	if m == nil || m.rdb == nil {
		return
	}
	cfg := m.GetConfig()
	if cfg.SceneIdleSeconds <= 0 {
		return
	}

	ctx := context.Background()
	deadline := at.Add(time.Duration(cfg.SceneIdleSeconds) * time.Second).Unix()
	if err := m.rdb.Set(ctx, lastActiveKey(token), at.Unix(), 0).Err(); err != nil {
		log.Printf("[IDLE] Failed to set last_active for %s: %v", token, err)
		return
	}
	if err := m.rdb.ZAdd(ctx, IdleSetKey, redis.Z{Score: float64(deadline), Member: idleMember(token)}).Err(); err != nil {
		log.Printf("[IDLE] Failed to schedule idle check for %s: %v", token, err)
	}
}

// lastActive reads the last activity timestamp stored for a scene.
func (m *SceneManager) lastActive(ctx context.Context, token string) (int64, error) {
	v, err := m.rdb.Get(ctx, lastActiveKey(token)).Result()
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

// recordEvent writes a scene_events row, publishes the event and refreshes
// the idle deadline.
func (m *SceneManager) recordEvent(s *Scene, eventType string, frame uint64, payload map[string]interface{}) {
	if m == nil {
		return
	}
	if eventType != EventEnded && s.isEnded() {
		return
	}

	msg := EventMessage{
		Type:       eventType,
		SceneID:    s.ID,
		SceneToken: s.Token,
		Frame:      frame,
		Status:     s.Status(),
		Payload:    payload,
		At:         time.Now(),
	}

	if m.db != nil {
		body, err := json.Marshal(payload)
		if err != nil || payload == nil {
			body = []byte("{}")
		}
		if _, err := m.db.Exec(`INSERT INTO scene_events (scene_id, event_type, frame, payload) VALUES ($1, $2, $3, $4)`,
			s.ID, eventType, int64(frame), body); err != nil {
			log.Printf("[DB] Failed to record %s for scene %s: %v", eventType, s.ID, err)
		}
	}

	m.publish(msg)

	if eventType != EventEnded && eventType != EventIdlePaused {
		m.scheduleIdle(s.Token, msg.At)
	}
}

func (m *SceneManager) publish(msg EventMessage) {
	if m.rdb == nil {
		return
	}
	b, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[SCENE] Failed to marshal %s event: %v", msg.Type, err)
		return
	}
	if err := m.rdb.Publish(context.Background(), EventsChannel, b).Err(); err != nil {
		log.Printf("[SCENE] Publish %s failed: scene=%s err=%v", msg.Type, msg.SceneToken, err)
	}
}

func (m *SceneManager) recordSceneCreated(s *Scene, width, height float64, createdBy string) error {
	if m.db == nil {
		return nil
	}
	by := sql.NullString{String: createdBy, Valid: createdBy != ""}
	_, err := m.db.Exec(`INSERT INTO scenes (scene_id, token, name, width, height, seed, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.Token, s.Name, width, height, s.Seed, string(StatusRunning), by, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert scene: %w", err)
	}
	return nil
}

func (m *SceneManager) markSceneEnded(s *Scene) error {
	if m.db == nil {
		return nil
	}
	if _, err := m.db.Exec(`UPDATE scenes SET status = $1, ended_at = NOW() WHERE scene_id = $2`, string(StatusEnded), s.ID); err != nil {
		return fmt.Errorf("mark scene ended: %w", err)
	}
	return nil
}

// SceneEvents returns the most recent recorded events of a scene, newest first.
func (m *SceneManager) SceneEvents(sceneID string, limit int) ([]models.SceneEvent, error) {
	if m.db == nil {
		return []models.SceneEvent{}, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	events := []models.SceneEvent{}
	err := m.db.Select(&events, `SELECT id, scene_id, event_type, frame, payload, created_at
		FROM scene_events WHERE scene_id = $1 ORDER BY id DESC LIMIT $2`, sceneID, limit)
	if err != nil {
		return nil, fmt.Errorf("list scene events: %w", err)
	}
	return events, nil
}
