package config

const (
	// ContextWindowTurns is the number of most recent turns loaded when
	// assembling the prompt for a new chat request. Bounds prompt size and
	// upstream cost; fixed, not derived from content length.
	ContextWindowTurns = 20

	// MaxResponseTokens caps the length of a single assistant reply.
	MaxResponseTokens = 4096

	// MaxMessageLength is the maximum length of a user message.
	// Limited to keep a single turn within a fraction of the model context.
	MaxMessageLength = 8000

	// MaxConversationTitleLength fits PostgreSQL VARCHAR(255).
	MaxConversationTitleLength = 255
)
