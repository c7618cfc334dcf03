// Interactive terminal client for the chat relay. Talks to the service
// layer directly (no HTTP), so it needs SUPABASE_DB_URL and, for the
// anthropic provider, ANTHROPIC_API_KEY.
//
// Usage:
//
//	go run scripts/chat_cli.go -agent-role dev_efficiency_analyst
//	go run scripts/chat_cli.go -conversation <uuid> -user <uuid>
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"outpost/internal/config"
	"outpost/internal/domain/models"
	"outpost/internal/repository/postgres"
	"outpost/internal/service/chat"
	serviceLLM "outpost/internal/service/llm"
)

// ANSI color codes
const (
	colorReset = "\033[0m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorRed   = "\033[31m"
)

// terminalWriter prints stream frames to stdout as they arrive.
type terminalWriter struct{}

func (terminalWriter) WriteText(text string) error {
	fmt.Print(colorGreen + text + colorReset)
	return nil
}

func (terminalWriter) WriteError(message string) error {
	fmt.Printf("\n%s[stream error: %s]%s\n", colorRed, message, colorReset)
	return nil
}

func (terminalWriter) WriteDone() error {
	fmt.Println()
	return nil
}

func main() {
	conversationID := flag.String("conversation", "", "Existing conversation ID (creates one if empty)")
	userID := flag.String("user", "", "User ID to act as (random if empty)")
	agentRole := flag.String("agent-role", "dev_efficiency_analyst", "Agent role to converse with when creating a conversation")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)
	repoConfig := &postgres.RepositoryConfig{Pool: pool, Tables: tables, Logger: logger}
	convRepo := postgres.NewConversationRepository(repoConfig)
	msgRepo := postgres.NewMessageRepository(repoConfig)

	provider, err := serviceLLM.NewProvider(cfg, logger)
	if err != nil {
		log.Fatalf("provider: %v", err)
	}

	svc := chat.NewService(convRepo, msgRepo, provider, cfg.ChatModel, logger)

	if *userID == "" {
		*userID = uuid.NewString()
		fmt.Printf("%sacting as user %s%s\n", colorCyan, *userID, colorReset)
	}

	if *conversationID == "" {
		id, err := createConversation(ctx, pool, tables, *userID, *agentRole)
		if err != nil {
			log.Fatalf("create conversation: %v", err)
		}
		*conversationID = id
		fmt.Printf("%sconversation %s (agent role %s)%s\n", colorCyan, id, *agentRole, colorReset)
	}

	fmt.Println("type a message and press enter; ctrl-d to quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		sess, err := svc.Open(ctx, *userID, *conversationID, text)
		if err != nil {
			fmt.Printf("%serror: %v%s\n", colorRed, err, colorReset)
			continue
		}
		sess.Relay(ctx, terminalWriter{})
		sess.Close()
	}
}

// createConversation starts a conversation with the first active agent of the
// given role, inserting directly since the CLI bypasses the HTTP API.
func createConversation(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, userID, agentRole string) (string, error) {
	var agentID string
	err := pool.QueryRow(ctx,
		"SELECT id FROM "+tables.Agents+" WHERE role = $1 AND is_active = TRUE LIMIT 1",
		agentRole,
	).Scan(&agentID)
	if err != nil {
		return "", fmt.Errorf("no active agent with role %q: %w", agentRole, err)
	}

	var convID string
	err = pool.QueryRow(ctx,
		"INSERT INTO "+tables.Conversations+" (user_id, agent_id, status) VALUES ($1, $2, $3) RETURNING id",
		userID, agentID, models.ConversationActive,
	).Scan(&convID)
	if err != nil {
		return "", err
	}
	return convID, nil
}
