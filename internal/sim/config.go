package sim

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Default palettes: light blue ambient drops, deep blue click drops.
var (
	DefaultDropColor = Palette{
		Main:      "rgba(135, 206, 235, ",
		Shadow:    "rgba(135, 206, 235, 0.5)",
		Highlight: "rgba(255, 255, 255, 0.6)",
	}
	DefaultClickColor = Palette{
		Main:      "rgba(30, 60, 120, ",
		Shadow:    "rgba(30, 60, 120, 0.5)",
		Highlight: "rgba(100, 150, 255, 0.6)",
	}
)

// Config holds the runtime-adjustable tunables of a Simulation.
type Config struct {
	DropInterval time.Duration `json:"drop_interval"` // ambient spawn period, default 200ms
	MinDropSize  float64       `json:"min_drop_size"` // drops at or below this never split, default 3
	DefaultColor Palette       `json:"default_color"`
	ClickColor   Palette       `json:"click_color"`
	Gravity      float64       `json:"gravity"`   // per tick², default 0.15
	MaxSpeed     float64       `json:"max_speed"` // vertical cap, default 8
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		DropInterval: DefaultDropIntervalMs * time.Millisecond,
		MinDropSize:  DefaultMinDropSize,
		DefaultColor: DefaultDropColor,
		ClickColor:   DefaultClickColor,
		Gravity:      DefaultGravity,
		MaxSpeed:     DefaultMaxSpeed,
	}
}

// Validate checks that every tunable is usable.
func (c Config) Validate() error {
	if c.DropInterval <= 0 {
		return fmt.Errorf("%w: drop interval must be positive, got %s", ErrInvalidConfig, c.DropInterval)
	}
	if !finite(c.MinDropSize) || c.MinDropSize < 0 {
		return fmt.Errorf("%w: min drop size must be >= 0, got %v", ErrInvalidConfig, c.MinDropSize)
	}
	if !finite(c.Gravity) {
		return fmt.Errorf("%w: gravity must be finite", ErrInvalidConfig)
	}
	if !finite(c.MaxSpeed) || c.MaxSpeed <= 0 {
		return fmt.Errorf("%w: max speed must be positive, got %v", ErrInvalidConfig, c.MaxSpeed)
	}
	return nil
}

// Update names the fields to change; nil fields keep their current value.
type Update struct {
	DropInterval *time.Duration `json:"drop_interval,omitempty"`
	MinDropSize  *float64       `json:"min_drop_size,omitempty"`
	DefaultColor *Palette       `json:"default_color,omitempty"`
	ClickColor   *Palette       `json:"click_color,omitempty"`
	Gravity      *float64       `json:"gravity,omitempty"`
	MaxSpeed     *float64       `json:"max_speed,omitempty"`
}

// Apply returns c with u's fields merged in, validated.
func (c Config) Apply(u Update) (Config, error) {
	if u.DropInterval != nil {
		c.DropInterval = *u.DropInterval
	}
	if u.MinDropSize != nil {
		c.MinDropSize = *u.MinDropSize
	}
	if u.DefaultColor != nil {
		c.DefaultColor = *u.DefaultColor
	}
	if u.ClickColor != nil {
		c.ClickColor = *u.ClickColor
	}
	if u.Gravity != nil {
		c.Gravity = *u.Gravity
	}
	if u.MaxSpeed != nil {
		c.MaxSpeed = *u.MaxSpeed
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
