package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/dropfall/backend/internal/scene"
	"github.com/dropfall/backend/internal/sim"
	"github.com/gin-gonic/gin"
)

// CreateSceneRequest is the body of POST /scenes.
type CreateSceneRequest struct {
	Name      string         `json:"name"`
	Width     float64        `json:"width"`
	Height    float64        `json:"height"`
	Seed      int64          `json:"seed"`
	Config    *ConfigRequest `json:"config"`
	Obstacles []sim.Obstacle `json:"obstacles"`
}

// CreateScene starts a new simulation scene
func CreateScene() gin.HandlerFunc {
	return func(c *gin.Context) {
		if scene.Manager == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scene manager not initialized"})
			return
		}

		var req CreateSceneRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
		}
		if err := validateObstacles(req.Obstacles); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		s, err := scene.Manager.CreateScene(scene.CreateParams{
			Name:      req.Name,
			Width:     req.Width,
			Height:    req.Height,
			Seed:      req.Seed,
			Overrides: req.Config.toUpdate(),
		})
		if err != nil {
			log.Printf("[SCENE] Create failed: %v", err)
			c.JSON(sceneErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		if len(req.Obstacles) > 0 {
			s.SetObstacles(req.Obstacles)
		}

		c.Header("X-Scene-ID", s.ID)
		c.JSON(http.StatusCreated, gin.H{
			"scene": s.GetState(),
			"ws":    "/api/v1/scenes/" + s.Token + "/ws",
		})
	}
}

// ListScenes returns every live scene
func ListScenes() gin.HandlerFunc {
	return func(c *gin.Context) {
		if scene.Manager == nil {
			c.JSON(http.StatusOK, gin.H{"scenes": []scene.Summary{}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"scenes": scene.Manager.ListScenes()})
	}
}

// GetSceneState returns the full state of a scene
func GetSceneState() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := sceneFromParam(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, s.GetState())
	}
}

// SetObstacles replaces the obstacle layout of a scene
func SetObstacles() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := sceneFromParam(c)
		if !ok {
			return
		}

		var req struct {
			Obstacles []sim.Obstacle `json:"obstacles"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if err := validateObstacles(req.Obstacles); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"obstacles": s.SetObstacles(req.Obstacles)})
	}
}

// SetViewport resizes a scene
func SetViewport() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := sceneFromParam(c)
		if !ok {
			return
		}

		var req struct {
			Width  float64 `json:"width" binding:"required"`
			Height float64 `json:"height" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "width and height required"})
			return
		}
		if req.Width <= 0 || req.Height <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": scene.ErrInvalidViewport.Error()})
			return
		}

		s.SetViewport(req.Width, req.Height)
		c.JSON(http.StatusOK, gin.H{"width": req.Width, "height": req.Height})
	}
}

// SpawnDrop adds a click drop at a point
func SpawnDrop() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := sceneFromParam(c)
		if !ok {
			return
		}

		var req struct {
			X *float64 `json:"x" binding:"required"`
			Y *float64 `json:"y" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "x and y required"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"spawned": s.SpawnAt(*req.X, *req.Y)})
	}
}

// SceneLifecycle enables, disables, pauses, resumes or clears a scene
func SceneLifecycle() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := sceneFromParam(c)
		if !ok {
			return
		}

		var req struct {
			Action string `json:"action" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "action required"})
			return
		}

		status, err := s.Apply(req.Action)
		if err != nil {
			c.JSON(sceneErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": status})
	}
}

// GetSceneEvents returns the recorded event history of a scene
func GetSceneEvents() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := sceneFromParam(c)
		if !ok {
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		events, err := scene.Manager.SceneEvents(s.ID, limit)
		if err != nil {
			log.Printf("[DB] Failed to fetch events for %s: %v", s.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch events"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	}
}

func validateObstacles(obstacles []sim.Obstacle) error {
	keys := make(map[string]int, len(obstacles))
	for i, o := range obstacles {
		if o.Width < 0 || o.Height < 0 {
			return fmt.Errorf("obstacle %d has a negative size", i)
		}
		if o.Key == "" {
			continue
		}
		if j, ok := keys[o.Key]; ok {
			return fmt.Errorf("obstacles %d and %d share key %q", j, i, o.Key)
		}
		keys[o.Key] = i
	}
	return nil
}
