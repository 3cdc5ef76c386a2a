package api

import (
	"log"

	"github.com/dropfall/backend/internal/api/handlers"
	"github.com/dropfall/backend/internal/config"
	"github.com/dropfall/backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *sqlx.DB, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] No-cache headers enabled for all routes")
	}

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		// Scene endpoints
		scenes := v1.Group("/scenes")
		{
			scenes.POST("", handlers.CreateScene())
			scenes.GET("", handlers.ListScenes())
			scenes.GET("/:token", handlers.GetSceneState())
			scenes.GET("/:token/events", handlers.GetSceneEvents())
			scenes.PUT("/:token/obstacles", handlers.SetObstacles())
			scenes.PUT("/:token/viewport", handlers.SetViewport())
			scenes.POST("/:token/drops", handlers.SpawnDrop())
			scenes.POST("/:token/lifecycle", handlers.SceneLifecycle())
			scenes.GET("/:token/ws", middleware.WebSocketCORSCheck(cfg), handlers.HandleSceneWebSocket())
		}

		// Admin endpoints
		adminGroup := v1.Group("/admin")
		adminGroup.POST("/login", handlers.AdminLogin(db, cfg))

		protected := adminGroup.Group("", middleware.AdminAuth(cfg.JWTSecret))
		{
			protected.GET("/me", handlers.AdminMe())
			protected.PATCH("/scenes/:token/config", middleware.RequireRole("scenes"), handlers.AdminUpdateSceneConfig(db))
			protected.DELETE("/scenes/:token", middleware.RequireRole("scenes"), handlers.AdminDeleteScene(db))

			if db != nil {
				protected.GET("/config", handlers.GetAdminRuntimeConfig(db))
				protected.GET("/config/:key", handlers.GetAdminRuntimeConfigValue(db))
				protected.PUT("/config/:key", middleware.RequireRole("config"), handlers.UpdateAdminRuntimeConfig(db))
				protected.GET("/audit", handlers.GetAdminAuditLogs(db))
			} else {
				log.Println("[ADMIN] No database; runtime config and audit routes disabled")
			}
		}
	}
}
