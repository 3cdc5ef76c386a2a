package scene

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// StartIdleWorker pauses scenes nobody has touched for SceneIdleSeconds. Idle
// deadlines live in the scene_idle sorted set so any instance can pick them up.
func (m *SceneManager) StartIdleWorker(ctx context.Context) {
	cfg := m.GetConfig()
	if m.rdb == nil || cfg.SceneIdleSeconds <= 0 {
		log.Println("[IDLE] Redis or idle timeout missing; idle worker not started")
		return
	}

	poll := time.Duration(cfg.IdleWorkerPollSeconds) * time.Second
	if poll <= 0 {
		poll = 5 * time.Second
	}

	log.Println("[IDLE] Idle worker started")
	go func() {
		ticker := time.NewTicker(poll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[IDLE] Idle worker stopping")
				return
			case <-ticker.C:
				m.processIdle(ctx, time.Now())
			}
		}
	}()
}

func (m *SceneManager) processIdle(ctx context.Context, now time.Time) {
	members, err := m.rdb.ZRangeByScore(ctx, IdleSetKey, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%d", now.Unix())}).Result()
	if err != nil {
		log.Printf("[IDLE] Failed to fetch idle scenes: %v", err)
		return
	}

	idleFor := int64(m.GetConfig().SceneIdleSeconds)
	for _, member := range members {
		// Only the instance that removes the member handles it.
		if removed, _ := m.rdb.ZRem(ctx, IdleSetKey, member).Result(); removed == 0 {
			continue
		}
		token := tokenFromIdleMember(member)
		if token == "" {
			continue
		}
		lastTs, err := m.lastActive(ctx, token)
		if err == nil && now.Unix()-lastTs < idleFor {
			continue
		}

		s := m.localScene(token)
		if s == nil {
			// The owner pauses its own scenes. With no live owner the scene
			// only exists as a snapshot and has nothing to pause.
			if owner := m.sceneOwner(ctx, token); owner != "" && owner != m.instanceID {
				m.requestPause(token, owner)
				log.Printf("[IDLE] Requested pause of %s from %s", token, owner)
			}
			continue
		}
		if !m.PauseIdle(s) {
			log.Printf("[IDLE] skipping %s (status=%s)", token, s.Status())
			continue
		}
		log.Printf("[IDLE] Paused idle scene %s", s.ID)
	}
}

// PauseIdle pauses a running scene and announces it. It reports false when
// the scene was not running.
func (m *SceneManager) PauseIdle(s *Scene) bool {
	s.mu.Lock()
	if s.statusLocked() != StatusRunning {
		s.mu.Unlock()
		return false
	}
	s.sim.SetPaused(true)
	frame := s.sim.FrameCount()
	s.mu.Unlock()

	m.recordEvent(s, EventIdlePaused, frame, map[string]interface{}{"message": "Scene paused after inactivity"})
	if err := m.saveSceneToRedis(s); err != nil {
		log.Printf("[IDLE] Snapshot for %s failed: %v", s.ID, err)
	}
	return true
}
