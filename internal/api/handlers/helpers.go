package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/dropfall/backend/internal/scene"
	"github.com/dropfall/backend/internal/sim"
	"github.com/gin-gonic/gin"
)

// sceneFromParam resolves :token or writes the error response.
func sceneFromParam(c *gin.Context) (*scene.Scene, bool) {
	if scene.Manager == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scene manager not initialized"})
		return nil, false
	}
	s, err := scene.Manager.GetSceneByToken(c.Param("token"))
	if err != nil {
		c.JSON(sceneErrorStatus(err), gin.H{"error": err.Error()})
		return nil, false
	}
	return s, true
}

// sceneErrorStatus maps scene and simulation errors to HTTP status codes.
func sceneErrorStatus(err error) int {
	switch {
	case errors.Is(err, scene.ErrSceneNotFound):
		return http.StatusNotFound
	case errors.Is(err, scene.ErrSceneEnded):
		return http.StatusGone
	case errors.Is(err, scene.ErrSceneElsewhere):
		return http.StatusConflict
	case errors.Is(err, scene.ErrTooManyScenes):
		return http.StatusTooManyRequests
	case errors.Is(err, scene.ErrUnknownAction),
		errors.Is(err, scene.ErrInvalidViewport),
		errors.Is(err, sim.ErrInvalidConfig):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ConfigRequest carries optional tunable overrides. Omitted fields are left
// unchanged.
type ConfigRequest struct {
	DropIntervalMs *int64       `json:"drop_interval_ms"`
	MinDropSize    *float64     `json:"min_drop_size"`
	DefaultColor   *sim.Palette `json:"default_color"`
	ClickColor     *sim.Palette `json:"click_color"`
	Gravity        *float64     `json:"gravity"`
	MaxSpeed       *float64     `json:"max_speed"`
}

func (r *ConfigRequest) toUpdate() sim.Update {
	if r == nil {
		return sim.Update{}
	}
	u := sim.Update{
		MinDropSize:  r.MinDropSize,
		DefaultColor: r.DefaultColor,
		ClickColor:   r.ClickColor,
		Gravity:      r.Gravity,
		MaxSpeed:     r.MaxSpeed,
	}
	if r.DropIntervalMs != nil {
		d := time.Duration(*r.DropIntervalMs) * time.Millisecond
		u.DropInterval = &d
	}
	return u
}
