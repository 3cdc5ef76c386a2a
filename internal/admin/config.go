package admin

import (
	"fmt"
	"log"
	"strconv"

	"github.com/dropfall/backend/internal/config"
	"github.com/dropfall/backend/internal/models"
	"github.com/jmoiron/sqlx"
)

// GetAllRuntimeConfig returns all runtime config entries
func GetAllRuntimeConfig(db *sqlx.DB) ([]models.RuntimeConfig, error) {
	configs := []models.RuntimeConfig{}
	err := db.Select(&configs, `
		SELECT key, value, value_type, description, updated_by, updated_at
		FROM runtime_config
		ORDER BY key
	`)
	return configs, err
}

// GetRuntimeConfigValue returns a single runtime config value
func GetRuntimeConfigValue(db *sqlx.DB, key string) (*models.RuntimeConfig, error) {
	var cfg models.RuntimeConfig
	err := db.Get(&cfg, `SELECT key, value, value_type, description, updated_by, updated_at FROM runtime_config WHERE key=$1`, key)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateRuntimeValue checks value against the declared type of a key.
func ValidateRuntimeValue(valueType, value string) error {
	switch valueType {
	case "int":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value: %s", value)
		}
		if v <= 0 {
			return fmt.Errorf("value must be positive: %s", value)
		}
	case "float":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float value: %s", value)
		}
		if v < 0 {
			return fmt.Errorf("value must not be negative: %s", value)
		}
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid boolean value: %s (must be 'true' or 'false')", value)
		}
	}
	return nil
}

// UpdateRuntimeConfigValue updates a single runtime config value
func UpdateRuntimeConfigValue(db *sqlx.DB, key, value, adminUsername string) error {
	existing, err := GetRuntimeConfigValue(db, key)
	if err != nil {
		return fmt.Errorf("config key not found: %s", key)
	}
	if err := ValidateRuntimeValue(existing.ValueType, value); err != nil {
		return err
	}

	_, err = db.Exec(`
		UPDATE runtime_config SET value=$1, updated_by=$2, updated_at=NOW() WHERE key=$3
	`, value, adminUsername, key)
	return err
}

// ApplyRuntimeConfig copies recognised overrides into cfg and returns how
// many were applied. Unparsable values are skipped.
func ApplyRuntimeConfig(configs []models.RuntimeConfig, cfg *config.Config) int {
	applied := 0
	for _, c := range configs {
		switch c.Key {
		case "drop_interval_ms":
			if v, err := strconv.Atoi(c.Value); err == nil && v > 0 {
				cfg.DropIntervalMs = v
				applied++
			}
		case "min_drop_size":
			if v, err := strconv.ParseFloat(c.Value, 64); err == nil && v >= 0 {
				cfg.MinDropSize = v
				applied++
			}
		case "gravity":
			if v, err := strconv.ParseFloat(c.Value, 64); err == nil {
				cfg.Gravity = v
				applied++
			}
		case "max_speed":
			if v, err := strconv.ParseFloat(c.Value, 64); err == nil && v > 0 {
				cfg.MaxSpeed = v
				applied++
			}
		case "frame_rate_hz":
			if v, err := strconv.Atoi(c.Value); err == nil && v > 0 {
				cfg.FrameRateHz = v
				applied++
			}
		case "scene_idle_seconds":
			if v, err := strconv.Atoi(c.Value); err == nil && v > 0 {
				cfg.SceneIdleSeconds = v
				applied++
			}
		}
	}
	return applied
}

// ApplyRuntimeConfigToConfig loads runtime config from DB and applies overrides to the Config struct
func ApplyRuntimeConfigToConfig(db *sqlx.DB, cfg *config.Config) error {
	configs, err := GetAllRuntimeConfig(db)
	if err != nil {
		return err
	}
	n := ApplyRuntimeConfig(configs, cfg)
	log.Printf("[CONFIG] Applied %d runtime config overrides from database", n)
	return nil
}
