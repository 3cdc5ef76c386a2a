package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/dropfall/backend/internal/scene"
	"github.com/redis/go-redis/v9"
)

var rdbClient *redis.Client

func SetRedisClient(r *redis.Client) {
	rdbClient = r
}

// StartSceneEventSubscriber relays scene_events to the matching scene rooms so
// viewers connected to any instance see lifecycle changes.
func StartSceneEventSubscriber(ctx context.Context) {
	if rdbClient == nil {
		log.Println("[WS] Redis client not set; scene event subscriber not started")
		return
	}

	pubsub := rdbClient.Subscribe(ctx, scene.EventsChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Printf("[WS] %s subscriber started", scene.EventsChannel)
		for msg := range ch {
			relaySceneEvent(SceneHub, []byte(msg.Payload))
		}
		log.Printf("[WS] %s subscriber stopped", scene.EventsChannel)
	}()
}

// relaySceneEvent forwards one published event to its room. Spawns are not
// relayed; viewers see the drop in the next frame.
func relaySceneEvent(h *Hub, payload []byte) {
	var ev scene.EventMessage
	if err := json.Unmarshal(payload, &ev); err != nil {
		log.Printf("[WS] invalid event payload: %v", err)
		return
	}
	if ev.Type == scene.EventPauseRequested {
		return
	}
	if ev.SceneID == "" {
		log.Printf("[WS] event %s without scene id", ev.Type)
		return
	}

	switch ev.Type {
	case scene.EventSpawn, scene.EventCreated:
		return
	case scene.EventEnded:
		h.BroadcastToScene(ev.SceneID, map[string]interface{}{
			"type":    "scene_ended",
			"message": "Scene has ended",
		})
	case scene.EventIdlePaused:
		h.BroadcastToScene(ev.SceneID, map[string]interface{}{
			"type":    "scene_idle_paused",
			"status":  ev.Status,
			"message": ev.Payload["message"],
		})
	default:
		h.BroadcastToScene(ev.SceneID, map[string]interface{}{
			"type":       "scene_event",
			"event":      ev.Type,
			"status":     ev.Status,
			"frame":      ev.Frame,
			"payload":    ev.Payload,
			"emitted_at": ev.At,
		})
	}
}
