// Package subscription manages agent subscriptions and the alerts they
// produce.
package subscription

import (
	"context"
	"fmt"
	"log/slog"

	"outpost/internal/domain/models"
	"outpost/internal/domain/repositories"
)

type Service struct {
	subRepo   repositories.SubscriptionRepository
	alertRepo repositories.AlertRepository
	agentRepo repositories.AgentRepository
	logger    *slog.Logger
}

func NewService(
	subRepo repositories.SubscriptionRepository,
	alertRepo repositories.AlertRepository,
	agentRepo repositories.AgentRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		subRepo:   subRepo,
		alertRepo: alertRepo,
		agentRepo: agentRepo,
		logger:    logger,
	}
}

// Subscribe creates or reactivates the caller's subscription to an
// active agent.
func (s *Service) Subscribe(ctx context.Context, userID, agentID string, notifyOnAlert bool) (*models.Subscription, error) {
	if _, err := s.agentRepo.Get(ctx, agentID); err != nil {
		return nil, fmt.Errorf("agent %s: %w", agentID, err)
	}

	sub := &models.Subscription{
		UserID:        userID,
		AgentID:       agentID,
		IsActive:      true,
		NotifyOnAlert: notifyOnAlert,
	}
	if err := s.subRepo.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("saving subscription: %w", err)
	}

	s.logger.Info("subscription saved",
		slog.String("agent_id", agentID),
		slog.Bool("notify_on_alert", notifyOnAlert),
	)
	return sub, nil
}

// Unsubscribe deactivates the caller's subscription to an agent.
func (s *Service) Unsubscribe(ctx context.Context, userID, agentID string) error {
	return s.subRepo.Deactivate(ctx, userID, agentID)
}

// List returns the caller's active subscriptions.
func (s *Service) List(ctx context.Context, userID string) ([]models.Subscription, error) {
	return s.subRepo.ListByUser(ctx, userID)
}

// Alerts returns the caller's alerts, newest first. When unreadOnly is
// set, read alerts are filtered out.
func (s *Service) Alerts(ctx context.Context, userID string, unreadOnly bool) ([]models.Alert, error) {
	return s.alertRepo.ListByUser(ctx, userID, unreadOnly)
}

// MarkAlertRead marks one of the caller's alerts as read. Alerts are
// only ever addressed through the owning user, so a foreign alert id is
// indistinguishable from a missing one.
func (s *Service) MarkAlertRead(ctx context.Context, userID, alertID string) error {
	if err := s.alertRepo.MarkRead(ctx, alertID, userID); err != nil {
		return fmt.Errorf("alert %s: %w", alertID, err)
	}
	return nil
}
