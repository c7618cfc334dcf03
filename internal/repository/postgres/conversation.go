package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"outpost/internal/domain"
	"outpost/internal/domain/models"
	"outpost/internal/domain/repositories"
)

// PostgresConversationRepository implements the ConversationRepository
// interface using PostgreSQL
type PostgresConversationRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewConversationRepository creates a new PostgresConversationRepository
func NewConversationRepository(config *RepositoryConfig) repositories.ConversationRepository {
	return &PostgresConversationRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a new conversation
func (r *PostgresConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, agent_id, title, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, started_at, last_message_at
	`, r.tables.Conversations)

	if conv.Status == "" {
		conv.Status = models.ConversationActive
	}

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		conv.UserID,
		conv.AgentID,
		conv.Title,
		conv.Status,
	).Scan(&conv.ID, &conv.StartedAt, &conv.LastMessageAt)

	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("agent %s: %w", conv.AgentID, domain.ErrNotFound)
		}
		return fmt.Errorf("create conversation: %w", err)
	}

	return nil
}

// GetWithAgent fetches a conversation joined with its agent definition.
// Deliberately not scoped by user: the service layer distinguishes
// Forbidden from NotFound using the returned owner.
func (r *PostgresConversationRepository) GetWithAgent(ctx context.Context, conversationID string) (*models.Conversation, *models.Agent, error) {
	query := fmt.Sprintf(`
		SELECT c.id, c.user_id, c.agent_id, c.title, c.status, c.started_at, c.last_message_at,
		       a.id, a.name, a.role, a.description, a.avatar_url, a.data_sources,
		       a.trigger_conditions, a.is_active, a.is_builtin, a.created_at, a.updated_at
		FROM %s c
		JOIN %s a ON a.id = c.agent_id
		WHERE c.id = $1
	`, r.tables.Conversations, r.tables.Agents)

	var conv models.Conversation
	var agent models.Agent
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, conversationID).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.AgentID,
		&conv.Title,
		&conv.Status,
		&conv.StartedAt,
		&conv.LastMessageAt,
		&agent.ID,
		&agent.Name,
		&agent.Role,
		&agent.Description,
		&agent.AvatarURL,
		&agent.DataSources,
		&agent.TriggerConditions,
		&agent.IsActive,
		&agent.IsBuiltin,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("get conversation: %w", err)
	}

	return &conv, &agent, nil
}

// ListByUser returns the user's conversations, newest activity first
func (r *PostgresConversationRepository) ListByUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, agent_id, title, status, started_at, last_message_at
		FROM %s
		WHERE user_id = $1 AND status != $2
		ORDER BY last_message_at DESC
	`, r.tables.Conversations)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, models.ConversationClosed)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		err := rows.Scan(
			&conv.ID,
			&conv.UserID,
			&conv.AgentID,
			&conv.Title,
			&conv.Status,
			&conv.StartedAt,
			&conv.LastMessageAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	if convs == nil {
		convs = []models.Conversation{}
	}

	return convs, nil
}

// TouchLastMessage updates the conversation's last-activity timestamp
func (r *PostgresConversationRepository) TouchLastMessage(ctx context.Context, conversationID string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET last_message_at = $1
		WHERE id = $2
	`, r.tables.Conversations)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, at, conversationID)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
	}

	return nil
}

// Close marks a conversation closed. Scoped by owner.
func (r *PostgresConversationRepository) Close(ctx context.Context, conversationID, userID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1
		WHERE id = $2 AND user_id = $3
	`, r.tables.Conversations)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, models.ConversationClosed, conversationID, userID)
	if err != nil {
		return fmt.Errorf("close conversation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
	}

	return nil
}
