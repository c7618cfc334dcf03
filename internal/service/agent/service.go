// Package agent exposes the catalog of active agents.
package agent

import (
	"context"

	"outpost/internal/domain/models"
	"outpost/internal/domain/repositories"
)

type Service struct {
	agentRepo repositories.AgentRepository
}

func NewService(agentRepo repositories.AgentRepository) *Service {
	return &Service{agentRepo: agentRepo}
}

// List returns all active agents, builtins first.
func (s *Service) List(ctx context.Context) ([]models.Agent, error) {
	return s.agentRepo.ListActive(ctx)
}

// Get returns one active agent by id.
func (s *Service) Get(ctx context.Context, agentID string) (*models.Agent, error) {
	return s.agentRepo.Get(ctx, agentID)
}
