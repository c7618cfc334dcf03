package llm

import (
	"context"
)

// Message is one turn of conversation context sent upstream.
// Role is restricted to "user" or "assistant".
type Message struct {
	Role    string
	Content string
}

// GenerateRequest describes one upstream streaming invocation.
type GenerateRequest struct {
	Model     string
	System    string
	Messages  []Message
	MaxTokens int
}

// StreamMetadata carries terminal information about a completed stream.
type StreamMetadata struct {
	Model        string
	InputTokens  int
	OutputTokens int
	StopReason   string
}

// StreamEvent is one item of a provider's streaming response. Exactly one
// field is set: TextDelta for an incremental fragment, Metadata as the final
// event of a successful stream, or Error when the stream breaks. The channel
// is closed after the terminal event.
type StreamEvent struct {
	TextDelta *string
	Metadata  *StreamMetadata
	Error     error
}

// Provider is a black-box streaming text generator.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// SupportsModel returns true if this provider serves the given model.
	SupportsModel(model string) bool

	// StreamResponse opens a streaming generation. Fragments arrive on the
	// returned channel in production order. The provider stops producing
	// when ctx is cancelled.
	StreamResponse(ctx context.Context, req *GenerateRequest) (<-chan StreamEvent, error)
}
