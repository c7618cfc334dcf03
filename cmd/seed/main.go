package main

import (
	"context"
	"flag"
	"log"

	"outpost/internal/config"
	"outpost/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed agents")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("🚫 BLOCKED: Cannot run --drop-tables in production environment")
	}

	log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	log.Println("📋 Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	log.Println("🤖 Seeding builtin agents...")
	if err := seedBuiltinAgents(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to seed agents: %v", err)
	}
	log.Println("🎉 Seeding complete!")
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`); err != nil {
		return err
	}

	createAgents := `
		CREATE TABLE IF NOT EXISTS ` + tables.Agents + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name TEXT NOT NULL,
			role TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			avatar_url TEXT,
			data_sources JSONB NOT NULL DEFAULT '[]',
			trigger_conditions JSONB NOT NULL DEFAULT '{}',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_builtin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createAgents); err != nil {
		return err
	}

	createConversations := `
		CREATE TABLE IF NOT EXISTS ` + tables.Conversations + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID NOT NULL,
			agent_id UUID NOT NULL REFERENCES ` + tables.Agents + `(id),
			title TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_message_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createConversations); err != nil {
		return err
	}

	createMessages := `
		CREATE TABLE IF NOT EXISTS ` + tables.Messages + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			conversation_id UUID NOT NULL REFERENCES ` + tables.Conversations + `(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createMessages); err != nil {
		return err
	}

	createSubscriptions := `
		CREATE TABLE IF NOT EXISTS ` + tables.Subscriptions + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID NOT NULL,
			agent_id UUID NOT NULL REFERENCES ` + tables.Agents + `(id),
			notify_on_alert BOOLEAN NOT NULL DEFAULT TRUE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			subscribed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			unsubscribed_at TIMESTAMPTZ,
			UNIQUE(user_id, agent_id)
		)
	`
	if _, err := pool.Exec(ctx, createSubscriptions); err != nil {
		return err
	}

	createAlerts := `
		CREATE TABLE IF NOT EXISTS ` + tables.Alerts + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			agent_id UUID NOT NULL REFERENCES ` + tables.Agents + `(id),
			user_id UUID NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			severity TEXT NOT NULL DEFAULT 'info',
			data JSONB NOT NULL DEFAULT '{}',
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createAlerts); err != nil {
		return err
	}

	createAnalytics := `
		CREATE TABLE IF NOT EXISTS ` + tables.AgentAnalytics + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			agent_id UUID NOT NULL REFERENCES ` + tables.Agents + `(id),
			analysis_date DATE NOT NULL,
			analysis_period TEXT NOT NULL DEFAULT 'daily',
			data JSONB NOT NULL DEFAULT '{}',
			insights JSONB NOT NULL DEFAULT '{}',
			anomalies JSONB NOT NULL DEFAULT '[]',
			alerts_generated INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createAnalytics); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `conversations_user ON ` + tables.Conversations + `(user_id, last_message_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `messages_conversation ON ` + tables.Messages + `(conversation_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `subscriptions_agent ON ` + tables.Subscriptions + `(agent_id) WHERE is_active`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `alerts_user ON ` + tables.Alerts + `(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `analytics_agent_date ON ` + tables.AgentAnalytics + `(agent_id, analysis_date)`,
	}
	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.AgentAnalytics,
		tables.Alerts,
		tables.Subscriptions,
		tables.Messages,
		tables.Conversations,
		tables.Agents,
	}
	for _, table := range tableNames {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return err
		}
		log.Printf("  ✓ Dropped %s", table)
	}
	return nil
}

type builtinAgent struct {
	name              string
	role              string
	description       string
	dataSources       string
	triggerConditions string
}

// seedBuiltinAgents upserts the builtin analysts, keyed by role.
func seedBuiltinAgents(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	agents := []builtinAgent{
		{
			name:              "DevBot",
			role:              "dev_efficiency_analyst",
			description:       "Monitors engineering throughput: PR review latency, merge rates, and deployment frequency. Flags process bottlenecks before they hurt delivery.",
			dataSources:       `["github", "jira"]`,
			triggerConditions: `{"review_time_threshold": 24}`,
		},
		{
			name:              "PulseBot",
			role:              "nps_analyst",
			description:       "Tracks customer satisfaction surveys and NPS trends. Surfaces sentiment shifts and their likeliest causes.",
			dataSources:       `["surveys", "support_tickets"]`,
			triggerConditions: `{"nps_threshold": 40}`,
		},
	}

	query := `
		INSERT INTO ` + tables.Agents + ` (name, role, description, data_sources, trigger_conditions, is_active, is_builtin)
		VALUES ($1, $2, $3, $4, $5, TRUE, TRUE)
		ON CONFLICT (role) DO UPDATE
		SET name = EXCLUDED.name,
		    description = EXCLUDED.description,
		    data_sources = EXCLUDED.data_sources,
		    trigger_conditions = EXCLUDED.trigger_conditions,
		    updated_at = NOW()
	`
	for _, a := range agents {
		if _, err := pool.Exec(ctx, query, a.name, a.role, a.description, a.dataSources, a.triggerConditions); err != nil {
			return err
		}
		log.Printf("  ✓ Seeded agent %s (%s)", a.name, a.role)
	}
	return nil
}
