package models

import (
	"time"
)

// Message roles. Any other stored value is a data-corruption condition.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation statuses.
const (
	ConversationActive = "active"
	ConversationClosed = "closed"
)

// Conversation is a chat session between one user and one agent.
type Conversation struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	AgentID       string    `json:"agent_id" db:"agent_id"`
	Title         *string   `json:"title,omitempty" db:"title"`
	Status        string    `json:"status" db:"status"`
	StartedAt     time.Time `json:"started_at" db:"started_at"`
	LastMessageAt time.Time `json:"last_message_at" db:"last_message_at"`
}

// Message is a single turn in a conversation, attributed to either the user
// or the assistant. Creation order within a conversation is load-bearing:
// it defines the context window passed upstream.
type Message struct {
	ID             string    `json:"id" db:"id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	Role           string    `json:"role" db:"role"`
	Content        string    `json:"content" db:"content"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
