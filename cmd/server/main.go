package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dropfall/backend/internal/admin"
	"github.com/dropfall/backend/internal/api"
	"github.com/dropfall/backend/internal/config"
	"github.com/dropfall/backend/internal/database"
	"github.com/dropfall/backend/internal/migrations"
	"github.com/dropfall/backend/internal/redis"
	"github.com/dropfall/backend/internal/scene"
	"github.com/dropfall/backend/internal/ws"
	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration (also loads .env when present)
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if cfg.MigrateOnStart {
		log.Println("Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Operator-edited defaults override the environment
	if err := admin.ApplyRuntimeConfigToConfig(db, cfg); err != nil {
		log.Printf("[CONFIG] Runtime config not applied: %v", err)
	}

	// Initialize Redis
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	// Initialize Scene Manager and stream its frames through the hub
	scene.InitializeManager(ctx, db, rdb, cfg)
	scene.Manager.SetFrameSink(ws.SceneHub)

	// Wire Redis and start scene event subscriber in WS layer
	ws.SetRedisClient(rdb)
	ws.StartSceneEventSubscriber(ctx)

	// Start idle worker (pauses scenes nobody is watching or touching)
	scene.Manager.StartIdleWorker(ctx)
	scene.Manager.StartControlSubscriber(ctx)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	api.SetupRoutes(router, db, cfg)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{Addr: ":" + port, Handler: router}
	go func() {
		log.Printf("Starting Dropfall server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	scene.Manager.Shutdown()
}
