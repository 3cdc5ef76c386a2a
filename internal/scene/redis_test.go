package scene

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestSceneOwnedByAnotherInstance(t *testing.T) {
	_, rdb := newTestRedis(t)
	a := NewSceneManager(nil, rdb, testConfig())
	b := NewSceneManager(nil, rdb, testConfig())

	s := newTestScene(t, a)
	start := time.Now()
	for i := 1; i <= 5; i++ {
		s.Step(start.Add(time.Duration(i) * 16 * time.Millisecond))
	}
	if err := a.saveSceneToRedis(s); err != nil {
		t.Fatalf("saveSceneToRedis: %v", err)
	}

	if _, err := b.GetSceneByToken(s.Token); !errors.Is(err, ErrSceneElsewhere) {
		t.Fatalf("lookup on second instance err = %v, want ErrSceneElsewhere", err)
	}
	if len(b.ListScenes()) != 0 {
		t.Error("second instance kept a copy of a scene it does not own")
	}

	// Once the owner shuts down the scene moves with its snapshot.
	a.Shutdown()
	got, err := b.GetSceneByToken(s.Token)
	if err != nil {
		t.Fatalf("lookup after owner shutdown: %v", err)
	}
	if got.ID != s.ID {
		t.Errorf("rehydrated id = %s, want %s", got.ID, s.ID)
	}
	if got.sim.FrameCount() != s.sim.FrameCount() {
		t.Errorf("rehydrated frame = %d, want %d", got.sim.FrameCount(), s.sim.FrameCount())
	}
}

func TestIdlePauseRoutedToOwner(t *testing.T) {
	_, rdb := newTestRedis(t)
	a := NewSceneManager(nil, rdb, testConfig())
	b := NewSceneManager(nil, rdb, testConfig())
	s := newTestScene(t, a)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub := rdb.Subscribe(ctx, EventsChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	b.processIdle(ctx, time.Now().Add(400*time.Second))

	if s.Status() != StatusRunning {
		t.Fatalf("owner scene status = %s before the request arrived", s.Status())
	}
	if len(b.ListScenes()) != 0 {
		t.Error("idle worker loaded a scene it does not own")
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive pause request: %v", err)
	}
	if b.handleControlMessage([]byte(msg.Payload)) {
		t.Error("non-owner acted on the pause request")
	}
	if !a.handleControlMessage([]byte(msg.Payload)) {
		t.Fatalf("owner ignored pause request %s", msg.Payload)
	}
	if s.Status() != StatusPaused {
		t.Errorf("status = %s, want PAUSED", s.Status())
	}
}

func TestIdleWorkerPausesLocalScene(t *testing.T) {
	_, rdb := newTestRedis(t)
	m := NewSceneManager(nil, rdb, testConfig())
	s := newTestScene(t, m)

	m.processIdle(context.Background(), time.Now().Add(10*time.Second))
	if s.Status() != StatusRunning {
		t.Fatalf("scene paused before its idle deadline")
	}

	m.processIdle(context.Background(), time.Now().Add(400*time.Second))
	if s.Status() != StatusPaused {
		t.Errorf("status = %s, want PAUSED", s.Status())
	}
}

func TestLeaseRefreshDetectsTakeover(t *testing.T) {
	mr, rdb := newTestRedis(t)
	m := NewSceneManager(nil, rdb, testConfig())
	s := newTestScene(t, m)

	if !m.refreshOwnership(s.Token) {
		t.Fatal("owner failed to refresh its own lease")
	}

	mr.Set(ownerKey(s.Token), "other-instance")
	if m.refreshOwnership(s.Token) {
		t.Error("refresh succeeded on a lease held by another instance")
	}
	m.releaseOwnership(s.Token)
	if v, _ := mr.Get(ownerKey(s.Token)); v != "other-instance" {
		t.Errorf("release removed another instance's lease, owner = %q", v)
	}

	mr.Del(ownerKey(s.Token))
	if !m.refreshOwnership(s.Token) {
		t.Error("refresh did not retake a lapsed lease")
	}
}

func TestDeletedSceneIsNotRestored(t *testing.T) {
	mr, rdb := newTestRedis(t)
	a := NewSceneManager(nil, rdb, testConfig())
	b := NewSceneManager(nil, rdb, testConfig())
	s := newTestScene(t, a)

	stale, err := mr.Get(stateKey(s.Token))
	if err != nil {
		t.Fatalf("snapshot missing after create: %v", err)
	}

	if err := a.DeleteScene(s.Token); err != nil {
		t.Fatalf("DeleteScene: %v", err)
	}
	if mr.Exists(stateKey(s.Token)) {
		t.Error("snapshot survived delete")
	}
	if mr.Exists(ownerKey(s.Token)) {
		t.Error("lease survived delete")
	}

	// A snapshot written by a loop that raced the delete must not bring it back.
	mr.Set(stateKey(s.Token), stale)
	if _, err := a.GetSceneByToken(s.Token); !errors.Is(err, ErrSceneNotFound) {
		t.Errorf("owner lookup after delete err = %v", err)
	}
	if _, err := b.GetSceneByToken(s.Token); !errors.Is(err, ErrSceneNotFound) {
		t.Errorf("second instance lookup after delete err = %v", err)
	}
	if len(a.ListScenes()) != 0 || len(b.ListScenes()) != 0 {
		t.Error("deleted scene listed")
	}

	mr.Del(stateKey(s.Token))
	if err := a.saveSceneToRedis(s); err != nil {
		t.Fatalf("saveSceneToRedis: %v", err)
	}
	if mr.Exists(stateKey(s.Token)) {
		t.Error("ended scene wrote a snapshot")
	}
}

func TestSpawnOnEndedSceneLeavesNoTrace(t *testing.T) {
	_, rdb := newTestRedis(t)
	m := NewSceneManager(nil, rdb, testConfig())
	s := newTestScene(t, m)
	if err := m.DeleteScene(s.Token); err != nil {
		t.Fatalf("DeleteScene: %v", err)
	}

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, EventsChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if s.SpawnAt(10, 10) {
		t.Fatal("ended scene accepted a spawn")
	}

	if _, err := rdb.ZScore(ctx, IdleSetKey, idleMember(s.Token)).Result(); !errors.Is(err, redis.Nil) {
		t.Errorf("ended scene rescheduled for idle check, err = %v", err)
	}
	if n, _ := rdb.Exists(ctx, lastActiveKey(s.Token)).Result(); n != 0 {
		t.Error("ended scene recorded activity")
	}

	if msg, err := sub.ReceiveTimeout(ctx, 100*time.Millisecond); err == nil {
		t.Errorf("ended scene published %v", msg)
	}
}
