package repositories

import (
	"context"

	"outpost/internal/domain/models"
)

// AgentRepository provides read access to agent definitions.
// Agents are managed out of band; the backend never mutates them.
type AgentRepository interface {
	// Get fetches an active agent by ID.
	// Returns domain.ErrNotFound if absent or inactive.
	Get(ctx context.Context, agentID string) (*models.Agent, error)

	// ListActive returns all active agents, builtin first, then by name.
	ListActive(ctx context.Context) ([]models.Agent, error)
}
