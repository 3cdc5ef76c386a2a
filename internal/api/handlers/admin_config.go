package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"

	"github.com/dropfall/backend/internal/admin"
	"github.com/dropfall/backend/internal/config"
	"github.com/dropfall/backend/internal/scene"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// GetAdminRuntimeConfig returns all runtime config entries
func GetAdminRuntimeConfig(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		configs, err := admin.GetAllRuntimeConfig(db)
		if err != nil {
			log.Printf("[ADMIN] Failed to fetch runtime config: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch config"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"configs": configs})
	}
}

// GetAdminRuntimeConfigValue returns one runtime config entry
func GetAdminRuntimeConfigValue(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, err := admin.GetRuntimeConfigValue(db, c.Param("key"))
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Config key not found"})
			return
		}
		if err != nil {
			log.Printf("[ADMIN] Failed to fetch config %s: %v", c.Param("key"), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch config"})
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

// UpdateAdminRuntimeConfig updates a single runtime config value
func UpdateAdminRuntimeConfig(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminUsername := c.GetString("admin_username")
		key := c.Param("key")

		var req struct {
			Value string `json:"value" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Value is required"})
			return
		}

		err := admin.UpdateRuntimeConfigValue(db, key, req.Value, adminUsername)
		if err != nil {
			log.Printf("[ADMIN] Failed to update config %s: %v", key, err)
			admin.LogAdminAction(db, adminUsername, c.ClientIP(), "/api/v1/admin/config/"+key, "update_config", map[string]interface{}{"key": key, "value": req.Value}, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// Re-apply runtime config so new scenes use it
		if configs, err := admin.GetAllRuntimeConfig(db); err != nil {
			log.Printf("[ADMIN] Warning: failed to reload runtime config: %v", err)
		} else if scene.Manager != nil {
			scene.Manager.UpdateDefaults(func(cfg *config.Config) {
				admin.ApplyRuntimeConfig(configs, cfg)
			})
		}

		admin.LogAdminAction(db, adminUsername, c.ClientIP(), "/api/v1/admin/config/"+key, "update_config", map[string]interface{}{"key": key, "value": req.Value}, true)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
