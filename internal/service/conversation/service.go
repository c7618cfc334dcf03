// Package conversation manages the lifecycle of conversations outside
// the streaming path: creation, listing, detail retrieval, and closing.
package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"outpost/internal/domain"
	"outpost/internal/domain/models"
	"outpost/internal/domain/repositories"
)

// detailMessageLimit caps the number of turns returned with a
// conversation detail view.
const detailMessageLimit = 200

type Service struct {
	convRepo  repositories.ConversationRepository
	msgRepo   repositories.MessageRepository
	agentRepo repositories.AgentRepository
	logger    *slog.Logger
}

func NewService(
	convRepo repositories.ConversationRepository,
	msgRepo repositories.MessageRepository,
	agentRepo repositories.AgentRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		agentRepo: agentRepo,
		logger:    logger,
	}
}

// Create starts a conversation with an active agent. A missing or
// inactive agent surfaces as ErrNotFound.
func (s *Service) Create(ctx context.Context, userID, agentID string, title *string) (*models.Conversation, error) {
	if _, err := s.agentRepo.Get(ctx, agentID); err != nil {
		return nil, fmt.Errorf("agent %s: %w", agentID, err)
	}

	conv := &models.Conversation{
		UserID:  userID,
		AgentID: agentID,
		Title:   title,
		Status:  models.ConversationActive,
	}
	if err := s.convRepo.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	s.logger.Info("conversation created",
		slog.String("conversation_id", conv.ID),
		slog.String("agent_id", agentID),
	)
	return conv, nil
}

// List returns the caller's open conversations, most recently active
// first.
func (s *Service) List(ctx context.Context, userID string) ([]models.Conversation, error) {
	return s.convRepo.ListByUser(ctx, userID)
}

// Detail is a conversation together with its agent and latest turns.
type Detail struct {
	Conversation *models.Conversation
	Agent        *models.Agent
	Messages     []models.Message
}

// Get loads one conversation with its agent and its recent turns,
// oldest first. A conversation owned by someone else is ErrForbidden,
// never ErrNotFound.
func (s *Service) Get(ctx context.Context, userID, conversationID string) (*Detail, error) {
	conv, agent, err := s.convRepo.GetWithAgent(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrForbidden)
	}

	messages, err := s.msgRepo.ListRecent(ctx, conversationID, detailMessageLimit)
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}

	return &Detail{Conversation: conv, Agent: agent, Messages: messages}, nil
}

// Close marks a conversation closed. The turns stay durable; only the
// streaming endpoint stops accepting it.
func (s *Service) Close(ctx context.Context, userID, conversationID string) error {
	conv, _, err := s.convRepo.GetWithAgent(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.UserID != userID {
		return fmt.Errorf("conversation %s: %w", conversationID, domain.ErrForbidden)
	}
	return s.convRepo.Close(ctx, conversationID, userID)
}
