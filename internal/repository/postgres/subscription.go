package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"outpost/internal/domain"
	"outpost/internal/domain/models"
	"outpost/internal/domain/repositories"
)

// PostgresSubscriptionRepository implements the SubscriptionRepository
// interface using PostgreSQL
type PostgresSubscriptionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewSubscriptionRepository creates a new PostgresSubscriptionRepository
func NewSubscriptionRepository(config *RepositoryConfig) repositories.SubscriptionRepository {
	return &PostgresSubscriptionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Upsert activates a subscription, reactivating a previously deactivated row
// for the same user-agent pair if one exists.
func (r *PostgresSubscriptionRepository) Upsert(ctx context.Context, sub *models.Subscription) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, agent_id, notify_on_alert, is_active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (user_id, agent_id) DO UPDATE
		SET notify_on_alert = EXCLUDED.notify_on_alert,
		    is_active = TRUE,
		    unsubscribed_at = NULL
		RETURNING id, subscribed_at, is_active
	`, r.tables.Subscriptions)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		sub.UserID,
		sub.AgentID,
		sub.NotifyOnAlert,
	).Scan(&sub.ID, &sub.SubscribedAt, &sub.IsActive)

	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("agent %s: %w", sub.AgentID, domain.ErrNotFound)
		}
		return fmt.Errorf("upsert subscription: %w", err)
	}

	return nil
}

// Deactivate marks the user's subscription to an agent inactive
func (r *PostgresSubscriptionRepository) Deactivate(ctx context.Context, userID, agentID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_active = FALSE, unsubscribed_at = NOW()
		WHERE user_id = $1 AND agent_id = $2 AND is_active = TRUE
	`, r.tables.Subscriptions)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, userID, agentID)
	if err != nil {
		return fmt.Errorf("deactivate subscription: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("subscription to agent %s: %w", agentID, domain.ErrNotFound)
	}

	return nil
}

// ListByUser returns the user's active subscriptions
func (r *PostgresSubscriptionRepository) ListByUser(ctx context.Context, userID string) ([]models.Subscription, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, agent_id, notify_on_alert, is_active, subscribed_at, unsubscribed_at
		FROM %s
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY subscribed_at DESC
	`, r.tables.Subscriptions)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var sub models.Subscription
		err := rows.Scan(
			&sub.ID,
			&sub.UserID,
			&sub.AgentID,
			&sub.NotifyOnAlert,
			&sub.IsActive,
			&sub.SubscribedAt,
			&sub.UnsubscribedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	if subs == nil {
		subs = []models.Subscription{}
	}

	return subs, nil
}

// ListActiveWithAgents returns all active subscriptions joined with their
// active agents, for the analysis sweep
func (r *PostgresSubscriptionRepository) ListActiveWithAgents(ctx context.Context) ([]models.SubscriptionWithAgent, error) {
	query := fmt.Sprintf(`
		SELECT s.id, s.user_id, s.agent_id, s.notify_on_alert, s.is_active, s.subscribed_at, s.unsubscribed_at,
		       a.id, a.name, a.role, a.description, a.avatar_url, a.data_sources,
		       a.trigger_conditions, a.is_active, a.is_builtin, a.created_at, a.updated_at
		FROM %s s
		JOIN %s a ON a.id = s.agent_id
		WHERE s.is_active = TRUE AND a.is_active = TRUE
		ORDER BY a.id, s.subscribed_at
	`, r.tables.Subscriptions, r.tables.Agents)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.SubscriptionWithAgent
	for rows.Next() {
		var sub models.SubscriptionWithAgent
		err := rows.Scan(
			&sub.ID,
			&sub.UserID,
			&sub.AgentID,
			&sub.NotifyOnAlert,
			&sub.IsActive,
			&sub.SubscribedAt,
			&sub.UnsubscribedAt,
			&sub.Agent.ID,
			&sub.Agent.Name,
			&sub.Agent.Role,
			&sub.Agent.Description,
			&sub.Agent.AvatarURL,
			&sub.Agent.DataSources,
			&sub.Agent.TriggerConditions,
			&sub.Agent.IsActive,
			&sub.Agent.IsBuiltin,
			&sub.Agent.CreatedAt,
			&sub.Agent.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan active subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active subscriptions: %w", err)
	}

	if subs == nil {
		subs = []models.SubscriptionWithAgent{}
	}

	return subs, nil
}
