package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/dropfall/backend/internal/scene"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Client represents a connected WebSocket viewer of one scene
type Client struct {
	conn       *websocket.Conn
	id         string
	sceneID    string
	sceneToken string
	send       chan []byte
}

// Hub maintains the set of active clients grouped into scene rooms
type Hub struct {
	clients    map[string]*Client            // clientID -> Client
	sceneRooms map[string]map[string]*Client // sceneID -> clientID -> Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		sceneRooms: make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Message types
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type frameMessage struct {
	Type string `json:"type"`
	scene.FrameUpdate
}

// BroadcastToScene sends a message to every viewer of a scene
func (h *Hub) BroadcastToScene(sceneID string, message interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, exists := h.sceneRooms[sceneID]
	if !exists || len(room) == 0 {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}

	for _, client := range room {
		select {
		case client.send <- data:
		default:
			// Slow viewers miss frames rather than stall the scene.
			log.Printf("[WS] Client send buffer full for %s in scene %s, dropping message", client.id, sceneID)
		}
	}
}

// BroadcastFrame streams one advanced frame to the scene's room.
func (h *Hub) BroadcastFrame(sceneID string, update scene.FrameUpdate) {
	h.BroadcastToScene(sceneID, frameMessage{Type: "frame", FrameUpdate: update})
}

// RoomSize reports how many viewers a scene has.
func (h *Hub) RoomSize(sceneID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sceneRooms[sceneID])
}

// SendToClient sends a message to a specific client
func (h *Hub) SendToClient(clientID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if client, exists := h.clients[clientID]; exists {
		select {
		case client.send <- data:
			// sent
		default:
			log.Printf("[WS] SendToClient dropped message for %s (buffer full)", clientID)
		}
	}
}

// Run processes registrations until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			if _, exists := h.sceneRooms[client.sceneID]; !exists {
				h.sceneRooms[client.sceneID] = make(map[string]*Client)
			}
			h.sceneRooms[client.sceneID][client.id] = client
			size := len(h.sceneRooms[client.sceneID])
			h.mu.Unlock()

			log.Printf("[WS] Client %s joined scene %s (room_size=%d)", client.id, client.sceneID, size)

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.id]; ok && cur == client {
				delete(h.clients, client.id)
				if room, exists := h.sceneRooms[client.sceneID]; exists {
					delete(room, client.id)
					if len(room) == 0 {
						delete(h.sceneRooms, client.sceneID)
					}
				}
				close(client.send)
				log.Printf("[WS] Client %s left scene %s", client.id, client.sceneID)
			}
			h.mu.Unlock()
		}
	}
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Write error for client %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] Ping error for client %s: %v", c.id, err)
				return
			}
		}
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.sendJSON(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}

func (c *Client) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] Reply dropped for client %s (buffer full)", c.id)
	}
}
