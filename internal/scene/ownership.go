package scene

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// A scene runs on exactly one instance. The owner holds scene:<token>:owner
// and refreshes it from the frame loop; other instances refuse to restore the
// snapshot while the lease is live.
const (
	ownerLeaseTTL     = 30 * time.Second
	ownerLeaseRefresh = 10 * time.Second
)

func ownerKey(token string) string { return "scene:" + token + ":owner" }
func endedKey(token string) string { return "scene:" + token + ":ended" }

// refreshLeaseScript extends the lease when we hold it and takes it when it
// lapsed. Returns 0 when another instance owns the scene.
var refreshLeaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
if redis.call("SET", KEYS[1], ARGV[1], "NX", "PX", ARGV[2]) then
	return 1
end
return 0
`)

// releaseLeaseScript deletes the lease only when we hold it.
var releaseLeaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// claimOwnership takes the lease for token. It reports true when this
// instance now holds it.
func (m *SceneManager) claimOwnership(token string) bool {
	if m.rdb == nil {
		return true
	}
	ctx := context.Background()
	ok, err := m.rdb.SetNX(ctx, ownerKey(token), m.instanceID, ownerLeaseTTL).Result()
	if err != nil {
		log.Printf("[SCENE] Lease claim for %s failed: %v", token, err)
		return false
	}
	if ok {
		return true
	}
	owner, _ := m.rdb.Get(ctx, ownerKey(token)).Result()
	return owner == m.instanceID
}

// refreshOwnership extends the lease. False means another instance took it.
func (m *SceneManager) refreshOwnership(token string) bool {
	if m.rdb == nil {
		return true
	}
	n, err := refreshLeaseScript.Run(context.Background(), m.rdb, []string{ownerKey(token)},
		m.instanceID, ownerLeaseTTL.Milliseconds()).Int()
	if err != nil {
		// Keep running through transient Redis errors.
		log.Printf("[SCENE] Lease refresh for %s failed: %v", token, err)
		return true
	}
	return n == 1
}

func (m *SceneManager) releaseOwnership(token string) {
	if m.rdb == nil {
		return
	}
	if err := releaseLeaseScript.Run(context.Background(), m.rdb, []string{ownerKey(token)}, m.instanceID).Err(); err != nil {
		log.Printf("[SCENE] Lease release for %s failed: %v", token, err)
	}
}

// sceneOwner returns the instance holding the lease, or "" when none does.
func (m *SceneManager) sceneOwner(ctx context.Context, token string) string {
	owner, err := m.rdb.Get(ctx, ownerKey(token)).Result()
	if err != nil {
		return ""
	}
	return owner
}

// requestPause asks the owning instance to idle-pause a scene.
func (m *SceneManager) requestPause(token, owner string) {
	m.publish(EventMessage{
		Type:       EventPauseRequested,
		SceneToken: token,
		Payload:    map[string]interface{}{"owner": owner, "requested_by": m.instanceID},
		At:         time.Now(),
	})
}

// StartControlSubscriber applies pause requests published by other instances'
// idle workers to the scenes this instance owns.
func (m *SceneManager) StartControlSubscriber(ctx context.Context) {
	if m.rdb == nil {
		log.Println("[SCENE] Redis client not set; control subscriber not started")
		return
	}

	pubsub := m.rdb.Subscribe(ctx, EventsChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Printf("[SCENE] control subscriber started on %s", EventsChannel)
		for msg := range ch {
			m.handleControlMessage([]byte(msg.Payload))
		}
	}()
}

// handleControlMessage pauses a local scene named by a pause request. It
// reports whether a scene was paused.
func (m *SceneManager) handleControlMessage(payload []byte) bool {
	var ev EventMessage
	if err := json.Unmarshal(payload, &ev); err != nil || ev.Type != EventPauseRequested {
		return false
	}
	s := m.localScene(ev.SceneToken)
	if s == nil {
		return false
	}
	if !m.PauseIdle(s) {
		return false
	}
	log.Printf("[IDLE] Paused idle scene %s on request", s.ID)
	return true
}
