package repositories

import (
	"context"
	"time"

	"outpost/internal/domain/models"
)

// ConversationRepository provides access to conversation rows.
// Ownership is NOT enforced here: GetWithAgent returns the row regardless of
// requester so the service layer can distinguish Forbidden from NotFound.
type ConversationRepository interface {
	// Create inserts a new conversation and fills in generated fields.
	Create(ctx context.Context, conv *models.Conversation) error

	// GetWithAgent fetches a conversation joined with its agent definition.
	// Returns domain.ErrNotFound if the conversation does not exist.
	GetWithAgent(ctx context.Context, conversationID string) (*models.Conversation, *models.Agent, error)

	// ListByUser returns the user's conversations, newest activity first.
	ListByUser(ctx context.Context, userID string) ([]models.Conversation, error)

	// TouchLastMessage updates the conversation's last-activity timestamp.
	TouchLastMessage(ctx context.Context, conversationID string, at time.Time) error

	// Close marks a conversation closed. Scoped by owner.
	Close(ctx context.Context, conversationID, userID string) error
}

// MessageRepository provides access to conversation turns.
type MessageRepository interface {
	// Insert persists a single turn and fills in generated fields.
	Insert(ctx context.Context, msg *models.Message) error

	// ListRecent returns the most recent limit turns of a conversation,
	// ordered oldest-first (ready for prompt assembly).
	ListRecent(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
}
