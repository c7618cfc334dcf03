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

// PostgresAlertRepository implements the AlertRepository interface using PostgreSQL
type PostgresAlertRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewAlertRepository creates a new PostgresAlertRepository
func NewAlertRepository(config *RepositoryConfig) repositories.AlertRepository {
	return &PostgresAlertRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Insert persists an alert
func (r *PostgresAlertRepository) Insert(ctx context.Context, alert *models.Alert) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (agent_id, user_id, title, description, severity, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_read, created_at
	`, r.tables.Alerts)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		alert.AgentID,
		alert.UserID,
		alert.Title,
		alert.Description,
		alert.Severity,
		alert.Data,
	).Scan(&alert.ID, &alert.IsRead, &alert.CreatedAt)

	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}

	return nil
}

// ListByUser returns the user's alerts, newest first
func (r *PostgresAlertRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Alert, error) {
	filter := ""
	if unreadOnly {
		filter = "AND is_read = FALSE"
	}
	query := fmt.Sprintf(`
		SELECT id, agent_id, user_id, title, description, severity, data, is_read, created_at
		FROM %s
		WHERE user_id = $1 %s
		ORDER BY created_at DESC
	`, r.tables.Alerts, filter)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var alert models.Alert
		err := rows.Scan(
			&alert.ID,
			&alert.AgentID,
			&alert.UserID,
			&alert.Title,
			&alert.Description,
			&alert.Severity,
			&alert.Data,
			&alert.IsRead,
			&alert.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}

	if alerts == nil {
		alerts = []models.Alert{}
	}

	return alerts, nil
}

// MarkRead marks an alert read. Scoped by owner.
func (r *PostgresAlertRepository) MarkRead(ctx context.Context, alertID, userID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_read = TRUE
		WHERE id = $1 AND user_id = $2
	`, r.tables.Alerts)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, alertID, userID)
	if err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("alert %s: %w", alertID, domain.ErrNotFound)
	}

	return nil
}

// PostgresAnalyticsRepository implements the AnalyticsRepository interface
// using PostgreSQL
type PostgresAnalyticsRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewAnalyticsRepository creates a new PostgresAnalyticsRepository
func NewAnalyticsRepository(config *RepositoryConfig) repositories.AnalyticsRepository {
	return &PostgresAnalyticsRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Insert records one analysis run's outcome for an agent
func (r *PostgresAnalyticsRepository) Insert(ctx context.Context, rec *models.AgentAnalytics) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (agent_id, analysis_date, analysis_period, data, insights, anomalies, alerts_generated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, r.tables.AgentAnalytics)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		rec.AgentID,
		rec.AnalysisDate,
		rec.AnalysisPeriod,
		rec.Data,
		rec.Insights,
		rec.Anomalies,
		rec.AlertsGenerated,
	).Scan(&rec.ID, &rec.CreatedAt)

	if err != nil {
		return fmt.Errorf("insert analytics: %w", err)
	}

	return nil
}
