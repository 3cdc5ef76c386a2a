package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL    string
	MigrateOnStart bool

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Simulation defaults for new scenes
	DropIntervalMs int
	MinDropSize    float64
	Gravity        float64
	MaxSpeed       float64
	DefaultWidth   int
	DefaultHeight  int

	// Drop palettes (opaque display tokens)
	DefaultDropMain      string
	DefaultDropShadow    string
	DefaultDropHighlight string
	ClickDropMain        string
	ClickDropShadow      string
	ClickDropHighlight   string

	// Scene runtime
	FrameRateHz         int
	MaxScenes           int
	SnapshotEveryFrames int
	SnapshotTTLMinutes  int

	// Idle handling
	SceneIdleSeconds      int
	IdleWorkerPollSeconds int

	// Security
	JWTSecret      string
	AdminTokenTTLH int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/dropfall?sslmode=disable"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Simulation defaults
		DropIntervalMs: getEnvInt("DROP_INTERVAL_MS", 200),
		MinDropSize:    getEnvFloat("MIN_DROP_SIZE", 3),
		Gravity:        getEnvFloat("GRAVITY", 0.15),
		MaxSpeed:       getEnvFloat("MAX_SPEED", 8),
		DefaultWidth:   getEnvInt("DEFAULT_WIDTH", 1280),
		DefaultHeight:  getEnvInt("DEFAULT_HEIGHT", 720),

		// Palettes
		DefaultDropMain:      getEnv("DEFAULT_DROP_MAIN", "rgba(135, 206, 235, "),
		DefaultDropShadow:    getEnv("DEFAULT_DROP_SHADOW", "rgba(135, 206, 235, 0.5)"),
		DefaultDropHighlight: getEnv("DEFAULT_DROP_HIGHLIGHT", "rgba(255, 255, 255, 0.6)"),
		ClickDropMain:        getEnv("CLICK_DROP_MAIN", "rgba(30, 60, 120, "),
		ClickDropShadow:      getEnv("CLICK_DROP_SHADOW", "rgba(30, 60, 120, 0.5)"),
		ClickDropHighlight:   getEnv("CLICK_DROP_HIGHLIGHT", "rgba(100, 150, 255, 0.6)"),

		// Scene runtime
		FrameRateHz:         getEnvInt("FRAME_RATE_HZ", 60),
		MaxScenes:           getEnvInt("MAX_SCENES", 64),
		SnapshotEveryFrames: getEnvInt("SNAPSHOT_EVERY_FRAMES", 120),
		SnapshotTTLMinutes:  getEnvInt("SNAPSHOT_TTL_MINUTES", 60),

		// Idle handling
		SceneIdleSeconds:      getEnvInt("SCENE_IDLE_SECONDS", 300),
		IdleWorkerPollSeconds: getEnvInt("IDLE_WORKER_POLL_SECONDS", 5),

		// Security
		JWTSecret:      getEnv("JWT_SECRET", DefaultJWTSecret),
		AdminTokenTTLH: getEnvInt("ADMIN_TOKEN_TTL_HOURS", 12),
	}
}

// DefaultJWTSecret is the development signing key used when JWT_SECRET is unset.
const DefaultJWTSecret = "change-me-in-production"

var ErrDefaultJWTSecret = errors.New("JWT_SECRET must be set in production")

// Validate rejects settings that are unsafe outside development.
func (c *Config) Validate() error {
	if c.Environment == "production" && (c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret) {
		return ErrDefaultJWTSecret
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
