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

// PostgresAgentRepository implements the AgentRepository interface using PostgreSQL
type PostgresAgentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewAgentRepository creates a new PostgresAgentRepository
func NewAgentRepository(config *RepositoryConfig) repositories.AgentRepository {
	return &PostgresAgentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const agentColumns = `id, name, role, description, avatar_url, data_sources, trigger_conditions, is_active, is_builtin, created_at, updated_at`

// Get fetches an active agent by ID
func (r *PostgresAgentRepository) Get(ctx context.Context, agentID string) (*models.Agent, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND is_active = TRUE
	`, agentColumns, r.tables.Agents)

	executor := GetExecutor(ctx, r.pool)
	agent, err := scanAgent(executor.QueryRow(ctx, query, agentID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("agent %s: %w", agentID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get agent: %w", err)
	}

	return agent, nil
}

// ListActive returns all active agents, builtin first, then by name
func (r *PostgresAgentRepository) ListActive(ctx context.Context) ([]models.Agent, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE is_active = TRUE
		ORDER BY is_builtin DESC, name ASC
	`, agentColumns, r.tables.Agents)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []models.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, *agent)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agents: %w", err)
	}

	// Return empty slice instead of nil
	if agents == nil {
		agents = []models.Agent{}
	}

	return agents, nil
}

// rowScanner abstracts pgx.Row and pgx.Rows for shared scanning
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAgent(row rowScanner) (*models.Agent, error) {
	var agent models.Agent
	err := row.Scan(
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
		return nil, err
	}
	return &agent, nil
}
