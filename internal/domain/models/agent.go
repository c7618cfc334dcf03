package models

import (
	"time"
)

// Agent is a server-side monitoring agent definition. Read-only to the chat
// relay; managed out of band (seeded or via admin tooling).
type Agent struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Role        string    `json:"role" db:"role"`
	Description string    `json:"description" db:"description"`
	AvatarURL   *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	// DataSources lists the identifiers of external sources this agent
	// monitors (e.g. "gerrit", "nps_survey").
	DataSources []string `json:"data_sources" db:"data_sources"`
	// TriggerConditions maps threshold names to numeric values used by the
	// analysis job (e.g. "review_time_threshold": 24).
	TriggerConditions map[string]float64 `json:"trigger_conditions" db:"trigger_conditions"`
	IsActive          bool               `json:"is_active" db:"is_active"`
	IsBuiltin         bool               `json:"is_builtin" db:"is_builtin"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" db:"updated_at"`
}
