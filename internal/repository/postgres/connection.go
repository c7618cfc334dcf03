package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"outpost/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Agents         string
	Conversations  string
	Messages       string
	Subscriptions  string
	Alerts         string
	AgentAnalytics string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Agents:         fmt.Sprintf("%sagents", prefix),
		Conversations:  fmt.Sprintf("%sconversations", prefix),
		Messages:       fmt.Sprintf("%smessages", prefix),
		Subscriptions:  fmt.Sprintf("%suser_agent_subscriptions", prefix),
		Alerts:         fmt.Sprintf("%salerts", prefix),
		AgentAnalytics: fmt.Sprintf("%sagent_analytics", prefix),
	}
}

// CreateConnectionPool creates a pgx connection pool with automatic PgBouncer
// compatibility.
//
// Supabase's transaction pooler (port 6543) does not support prepared
// statements, so when that port is detected the pool switches to
// QueryExecModeCacheDescribe: it still uses the extended protocol (required
// for JSONB encoding of map values) but caches statement descriptions rather
// than prepared statements. Direct connections (port 5432) keep the default
// mode. An explicit default_query_exec_mode in the connection string takes
// precedence.
//
// The fmt.Sprintf table-name interpolation used throughout this package is
// safe with prepared statements: the SQL string is built before it is sent,
// and each environment prefix yields its own statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the appropriate query executor for the context.
// If a transaction is present in the context, it returns the transaction;
// otherwise the pool. This lets repositories participate automatically in
// transactions opened by the TransactionManager.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
