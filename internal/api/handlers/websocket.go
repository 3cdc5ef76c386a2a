package handlers

import (
	"github.com/dropfall/backend/internal/ws"
	"github.com/gin-gonic/gin"
)

// HandleSceneWebSocket streams frames of a scene to a viewer
func HandleSceneWebSocket() gin.HandlerFunc {
	return ws.HandleWebSocket
}
