package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"outpost/internal/auth"
	"outpost/internal/config"
	"outpost/internal/handler"
	"outpost/internal/middleware"
	"outpost/internal/repository/postgres"
	serviceAgent "outpost/internal/service/agent"
	"outpost/internal/service/analysis"
	"outpost/internal/service/chat"
	serviceConv "outpost/internal/service/conversation"
	serviceLLM "outpost/internal/service/llm"
	"outpost/internal/service/subscription"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// JWT verifier for Supabase-issued tokens
	jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected")

	tables := postgres.NewTableNames(cfg.TablePrefix)
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	agentRepo := postgres.NewAgentRepository(repoConfig)
	convRepo := postgres.NewConversationRepository(repoConfig)
	msgRepo := postgres.NewMessageRepository(repoConfig)
	subRepo := postgres.NewSubscriptionRepository(repoConfig)
	alertRepo := postgres.NewAlertRepository(repoConfig)
	analyticsRepo := postgres.NewAnalyticsRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// LLM provider
	provider, err := serviceLLM.NewProvider(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to setup LLM provider: %v", err)
	}
	logger.Info("llm provider ready", "provider", provider.Name(), "model", cfg.ChatModel)

	// Services
	chatService := chat.NewService(convRepo, msgRepo, provider, cfg.ChatModel, logger)
	convService := serviceConv.NewService(convRepo, msgRepo, agentRepo, logger)
	agentService := serviceAgent.NewService(agentRepo)
	subService := subscription.NewService(subRepo, alertRepo, agentRepo, logger)
	analysisService := analysis.NewService(subRepo, alertRepo, analyticsRepo, txManager, logger)

	// Handlers
	chatHandler := handler.NewChatHandler(chatService, logger)
	convHandler := handler.NewConversationHandler(convService, logger)
	agentHandler := handler.NewAgentHandler(agentService, logger)
	subHandler := handler.NewSubscriptionHandler(subService, logger)
	analysisHandler := handler.NewAnalysisHandler(analysisService, cfg.CronSecret, logger)

	logger.Info("services initialized")

	// HTTP router (Go 1.22+ method patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)

	// Chat streaming
	mux.HandleFunc("POST /api/v1/chat/stream", chatHandler.StreamChat)

	// Conversations
	mux.HandleFunc("POST /api/v1/conversations", convHandler.Create)
	mux.HandleFunc("GET /api/v1/conversations", convHandler.List)
	mux.HandleFunc("GET /api/v1/conversations/{id}", convHandler.Get)
	mux.HandleFunc("DELETE /api/v1/conversations/{id}", convHandler.Close)

	// Agents
	mux.HandleFunc("GET /api/v1/agents", agentHandler.List)
	mux.HandleFunc("GET /api/v1/agents/{id}", agentHandler.Get)

	// Subscriptions and alerts
	mux.HandleFunc("POST /api/v1/subscriptions", subHandler.Subscribe)
	mux.HandleFunc("GET /api/v1/subscriptions", subHandler.List)
	mux.HandleFunc("DELETE /api/v1/subscriptions/{agentId}", subHandler.Unsubscribe)
	mux.HandleFunc("GET /api/v1/alerts", subHandler.Alerts)
	mux.HandleFunc("POST /api/v1/alerts/{id}/read", subHandler.MarkAlertRead)

	// Scheduler-triggered analysis sweep (cron secret, not user auth)
	mux.HandleFunc("POST /internal/v1/analysis/run", analysisHandler.Run)

	// Middleware chain: CORS → Recovery → Auth → routes
	var root http.Handler = mux
	root = middleware.Auth(jwtVerifier, "/health", "/internal/v1/analysis/run")(root)
	root = middleware.Recovery(logger)(root)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     root,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout disabled to allow long-lived SSE streams
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
