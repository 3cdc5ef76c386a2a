package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Scene is the durable record of a simulation scene.
type Scene struct {
	ID        int            `db:"id" json:"id"`
	SceneID   string         `db:"scene_id" json:"scene_id"`
	Token     string         `db:"token" json:"token"`
	Name      string         `db:"name" json:"name"`
	Width     float64        `db:"width" json:"width"`
	Height    float64        `db:"height" json:"height"`
	Seed      int64          `db:"seed" json:"seed"`
	Status    string         `db:"status" json:"status"`
	CreatedBy sql.NullString `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	EndedAt   sql.NullTime   `db:"ended_at" json:"ended_at,omitempty"`
}

// SceneEvent is one externally triggered change to a scene: a click spawn,
// an obstacle layout pass, a configuration change or a lifecycle action.
type SceneEvent struct {
	ID        int             `db:"id" json:"id"`
	SceneID   string          `db:"scene_id" json:"scene_id"`
	EventType string          `db:"event_type" json:"event_type"`
	Frame     int64           `db:"frame" json:"frame"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// RuntimeConfig is an operator-editable default applied over the env config.
type RuntimeConfig struct {
	Key         string         `db:"key" json:"key"`
	Value       string         `db:"value" json:"value"`
	ValueType   string         `db:"value_type" json:"value_type"`
	Description sql.NullString `db:"description" json:"description,omitempty"`
	UpdatedBy   sql.NullString `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// AdminAccount is an operator allowed to reconfigure and delete scenes.
type AdminAccount struct {
	Username    string         `db:"username" json:"username"`
	DisplayName string         `db:"display_name" json:"display_name"`
	TokenHash   string         `db:"token_hash" json:"-"`
	Roles       pq.StringArray `db:"roles" json:"roles"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// AdminAudit records an operator action.
type AdminAudit struct {
	ID        int             `db:"id" json:"id"`
	Username  string          `db:"username" json:"username"`
	IP        string          `db:"ip" json:"ip"`
	Route     string          `db:"route" json:"route"`
	Action    string          `db:"action" json:"action"`
	Details   json.RawMessage `db:"details" json:"details"`
	Success   bool            `db:"success" json:"success"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
