package handlers

import (
	"net/http"
	"time"

	"github.com/dropfall/backend/internal/scene"
	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck returns server health status
func HealthCheck(c *gin.Context) {
	scenes := 0
	if scene.Manager != nil {
		scenes = len(scene.Manager.ListScenes())
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"service":       "dropfall-api",
		"version":       version,
		"uptime":        time.Since(startTime).String(),
		"active_scenes": scenes,
	})
}
