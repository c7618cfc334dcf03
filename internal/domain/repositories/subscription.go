package repositories

import (
	"context"

	"outpost/internal/domain/models"
)

// SubscriptionRepository manages user-agent subscriptions.
type SubscriptionRepository interface {
	// Upsert activates a subscription, reactivating a previously
	// deactivated row for the same user-agent pair if one exists.
	Upsert(ctx context.Context, sub *models.Subscription) error

	// Deactivate marks the user's subscription to an agent inactive.
	// Returns domain.ErrNotFound if no active subscription exists.
	Deactivate(ctx context.Context, userID, agentID string) error

	// ListByUser returns the user's active subscriptions.
	ListByUser(ctx context.Context, userID string) ([]models.Subscription, error)

	// ListActiveWithAgents returns all active subscriptions joined with
	// their (active) agents, for the analysis sweep.
	ListActiveWithAgents(ctx context.Context) ([]models.SubscriptionWithAgent, error)
}

// AlertRepository manages alerts produced by the analysis job.
type AlertRepository interface {
	Insert(ctx context.Context, alert *models.Alert) error

	// ListByUser returns the user's alerts, newest first. With unreadOnly
	// set, alerts already marked read are excluded.
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Alert, error)

	// MarkRead marks an alert read. Scoped by owner; returns
	// domain.ErrNotFound if the alert is absent or owned by someone else.
	MarkRead(ctx context.Context, alertID, userID string) error
}

// AnalyticsRepository records analysis run outcomes.
type AnalyticsRepository interface {
	Insert(ctx context.Context, rec *models.AgentAnalytics) error
}
