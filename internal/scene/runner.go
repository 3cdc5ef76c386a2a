package scene

import (
	"context"
	"log"
	"time"
)

// startLoop runs the scene's frame loop until the scene is deleted or the
// manager context ends. It does nothing when the manager is not running loops.
func (m *SceneManager) startLoop(s *Scene) {
	if !m.runLoops {
		return
	}

	ctx, cancel := context.WithCancel(m.ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go m.runLoop(ctx, s, done)
}

func (m *SceneManager) runLoop(ctx context.Context, s *Scene, done chan struct{}) {
	defer close(done)

	interval := time.Second / time.Duration(frameRate(s.FrameRateHz))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lease := time.NewTicker(ownerLeaseRefresh)
	defer lease.Stop()

	snapshotEvery := uint64(m.GetConfig().SnapshotEveryFrames)
	log.Printf("[SCENE] Frame loop started for %s at %d Hz", s.ID, frameRate(s.FrameRateHz))

	for {
		select {
		case <-ctx.Done():
			log.Printf("[SCENE] Frame loop stopped for %s", s.ID)
			return
		case <-lease.C:
			if !m.refreshOwnership(s.Token) {
				log.Printf("[SCENE] Lost ownership of %s; dropping local copy", s.ID)
				m.unregister(s)
				return
			}
		case now := <-ticker.C:
			update, ok := s.Step(now)
			if !ok {
				continue
			}
			if sink := m.frameSink(); sink != nil {
				sink.BroadcastFrame(s.ID, update)
			}
			if snapshotEvery > 0 && update.Frame%snapshotEvery == 0 {
				if err := m.saveSceneToRedis(s); err != nil {
					log.Printf("[SCENE] Snapshot for %s failed: %v", s.ID, err)
				}
			}
		}
	}
}

// stopLoop cancels the frame loop and waits for it to exit.
func (s *Scene) stopLoop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
