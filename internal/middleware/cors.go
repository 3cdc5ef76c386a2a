package middleware

import (
	"log"
	"strings"
	"time"

	"github.com/dropfall/backend/internal/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// allowedOrigins lists the browser origins permitted outside development.
func allowedOrigins(cfg *config.Config) []string {
	origins := []string{}
	if cfg.FrontendURL != "" {
		origins = append(origins, cfg.FrontendURL)
	}
	return origins
}

// CORSMiddleware returns a CORS middleware configured for the environment
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	log.Printf("[CORS] Environment: %s, FrontendURL: %s", cfg.Environment, cfg.FrontendURL)

	corsConfig := cors.Config{
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin", "Content-Length", "Content-Type", "Authorization",
			"X-Scene-Token", "Accept", "Cache-Control", "X-Requested-With",
		},
		ExposeHeaders: []string{
			"Content-Length", "X-Scene-ID",
		},
		MaxAge: 12 * time.Hour,
	}

	if cfg.Environment == "development" {
		corsConfig.AllowOriginFunc = isLocalOrigin
		corsConfig.AllowCredentials = true
	} else {
		origins := allowedOrigins(cfg)
		if len(origins) == 0 {
			corsConfig.AllowAllOrigins = true
		} else {
			corsConfig.AllowOrigins = origins
			corsConfig.AllowCredentials = true
		}
		log.Printf("[CORS] Production allowed origins: %v", origins)
	}

	return cors.New(corsConfig)
}

func isLocalOrigin(origin string) bool {
	return strings.HasPrefix(origin, "http://localhost:") ||
		strings.HasPrefix(origin, "http://127.0.0.1:")
}

// WebSocketCORSCheck validates WebSocket upgrade origins
func WebSocketCORSCheck(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only check for WebSocket upgrade requests
		if !strings.Contains(strings.ToLower(c.GetHeader("Connection")), "upgrade") ||
			strings.ToLower(c.GetHeader("Upgrade")) != "websocket" {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if origin == "" {
			// Non-browser viewers (bots, replay tools) send no origin.
			c.Next()
			return
		}

		var allowed bool
		if cfg.Environment == "development" {
			allowed = isLocalOrigin(origin)
		} else {
			origins := allowedOrigins(cfg)
			allowed = len(origins) == 0
			for _, o := range origins {
				if origin == o {
					allowed = true
					break
				}
			}
		}

		if !allowed {
			c.JSON(403, gin.H{"error": "WebSocket origin not allowed"})
			c.Abort()
			return
		}

		c.Next()
	}
}
