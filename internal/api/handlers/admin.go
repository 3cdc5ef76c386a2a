package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/dropfall/backend/internal/admin"
	"github.com/dropfall/backend/internal/config"
	"github.com/dropfall/backend/internal/scene"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// AdminLogin exchanges a username and access token for a bearer session token
func AdminLogin(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Token    string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Admin accounts unavailable"})
			return
		}

		username := strings.TrimSpace(req.Username)
		acc, err := admin.ValidateAdminCredentials(db, username, strings.TrimSpace(req.Token))
		if err != nil {
			log.Printf("[ADMIN] Login failed for username %s: %v", username, err)
			admin.LogAdminAction(db, username, c.ClientIP(), "/api/v1/admin/login", "login", map[string]interface{}{"username": username}, false)
			if errors.Is(err, admin.ErrAccountNotFound) || errors.Is(err, admin.ErrInvalidToken) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
			return
		}

		ttl := time.Duration(cfg.AdminTokenTTLH) * time.Hour
		if ttl <= 0 {
			ttl = 12 * time.Hour
		}
		token, exp, err := admin.IssueSessionToken(cfg.JWTSecret, acc.Username, acc.Roles, ttl)
		if err != nil {
			log.Printf("[ADMIN] Failed to issue session token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
			return
		}

		admin.LogAdminAction(db, username, c.ClientIP(), "/api/v1/admin/login", "login", map[string]interface{}{"username": username}, true)
		c.JSON(http.StatusOK, gin.H{
			"token":        token,
			"expires_at":   exp.Format(time.RFC3339),
			"display_name": acc.DisplayName,
			"roles":        acc.Roles,
		})
	}
}

// AdminMe returns the current admin session info
func AdminMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"username": c.GetString("admin_username")})
	}
}

// AdminUpdateSceneConfig applies tunable overrides to a running scene
func AdminUpdateSceneConfig(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminUsername := c.GetString("admin_username")
		route := "/api/v1/admin/scenes/" + c.Param("token") + "/config"

		s, ok := sceneFromParam(c)
		if !ok {
			return
		}

		var req ConfigRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		view, err := s.Configure(req.toUpdate())
		if err != nil {
			admin.LogAdminAction(db, adminUsername, c.ClientIP(), route, "update_scene_config", map[string]interface{}{"scene_id": s.ID, "error": err.Error()}, false)
			c.JSON(sceneErrorStatus(err), gin.H{"error": err.Error()})
			return
		}

		admin.LogAdminAction(db, adminUsername, c.ClientIP(), route, "update_scene_config", map[string]interface{}{"scene_id": s.ID, "config": view}, true)
		c.JSON(http.StatusOK, gin.H{"config": view})
	}
}

// AdminDeleteScene ends a scene and discards its drops
func AdminDeleteScene(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminUsername := c.GetString("admin_username")
		token := c.Param("token")
		route := "/api/v1/admin/scenes/" + token

		if scene.Manager == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scene manager not initialized"})
			return
		}
		if err := scene.Manager.DeleteScene(token); err != nil {
			admin.LogAdminAction(db, adminUsername, c.ClientIP(), route, "delete_scene", map[string]interface{}{"token": token}, false)
			c.JSON(sceneErrorStatus(err), gin.H{"error": err.Error()})
			return
		}

		admin.LogAdminAction(db, adminUsername, c.ClientIP(), route, "delete_scene", map[string]interface{}{"token": token}, true)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
