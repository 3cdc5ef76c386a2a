package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dropfall/backend/internal/scene"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// SpawnData is the payload of a spawn message.
type SpawnData struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SceneHub is the single hub for all scenes.
var SceneHub *Hub

var clientSeq uint64

func init() {
	SceneHub = NewHub()
	go SceneHub.Run()
}

// HandleWebSocket upgrades a viewer connection and joins it to the scene room.
func HandleWebSocket(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scene token required"})
		return
	}
	if scene.Manager == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scene manager not initialized"})
		return
	}

	s, err := scene.Manager.GetSceneByToken(token)
	if errors.Is(err, scene.ErrSceneElsewhere) {
		c.JSON(http.StatusConflict, gin.H{"error": "scene is running on another instance"})
		return
	}
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "scene not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := &Client{
		conn:       conn,
		id:         fmt.Sprintf("v%d", atomic.AddUint64(&clientSeq, 1)),
		sceneID:    s.ID,
		sceneToken: s.Token,
		send:       make(chan []byte, 256),
	}

	SceneHub.register <- client
	s.Touch()

	state := s.GetState()
	client.sendJSON(stateMessage(state))

	go client.writePump()
	go client.readPump()
}

func stateMessage(state scene.State) map[string]interface{} {
	return map[string]interface{}{"type": "scene_state", "state": state}
}

// readPump reads viewer messages until the connection drops.
func (c *Client) readPump() {
	defer func() {
		SceneHub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Unexpected close for client %s: %v", c.id, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("Invalid message")
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage processes one viewer message.
func (c *Client) handleMessage(msg WSMessage) {
	s, err := scene.Manager.GetSceneByToken(c.sceneToken)
	if err != nil {
		c.sendError("Scene not found")
		return
	}

	switch msg.Type {
	case "spawn":
		var data SpawnData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid spawn data")
			return
		}
		spawned := s.SpawnAt(data.X, data.Y)
		c.sendJSON(map[string]interface{}{"type": "spawn_result", "x": data.X, "y": data.Y, "spawned": spawned})

	case "get_state":
		c.sendJSON(stateMessage(s.GetState()))

	case "pause", "resume":
		status, err := s.Apply(msg.Type)
		if err != nil {
			if errors.Is(err, scene.ErrSceneEnded) {
				c.sendError("Scene has ended")
				return
			}
			c.sendError(err.Error())
			return
		}
		SceneHub.BroadcastToScene(c.sceneID, map[string]interface{}{"type": "status", "status": status, "by": c.id})

	default:
		c.sendError("Unknown message type")
	}
}
