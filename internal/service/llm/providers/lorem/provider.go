package lorem

import (
	"context"
	"fmt"
	"strings"
	"time"

	loremgen "github.com/bozaro/golorem"

	domainllm "outpost/internal/domain/services/llm"
)

// Provider is a mock upstream that streams lorem ipsum text.
// Used for development without requiring real API keys.
type Provider struct {
	generator *loremgen.Lorem
	delay     time.Duration
}

// NewProvider creates a new lorem ipsum provider streaming at ~10 words/second.
func NewProvider() *Provider {
	return &Provider{
		generator: loremgen.New(),
		delay:     100 * time.Millisecond,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "lorem"
}

// SupportsModel returns true for any model; the lorem provider is a drop-in
// stand-in for whatever model is configured.
func (p *Provider) SupportsModel(model string) bool {
	return true
}

// StreamResponse streams a short lorem ipsum reply word by word.
func (p *Provider) StreamResponse(ctx context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamEvent, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("no messages to respond to")
	}

	eventChan := make(chan domainllm.StreamEvent, 10)

	go func() {
		defer close(eventChan)

		text := p.generator.Paragraph(2, 4)
		words := strings.Fields(text)

		// Respect the output cap; one word stands in for one token
		if req.MaxTokens > 0 && len(words) > req.MaxTokens {
			words = words[:req.MaxTokens]
		}

		sent := 0
		for _, word := range words {
			select {
			case <-ctx.Done():
				eventChan <- domainllm.StreamEvent{Error: ctx.Err()}
				return
			default:
			}

			delta := word + " "
			eventChan <- domainllm.StreamEvent{TextDelta: &delta}
			sent++

			time.Sleep(p.delay)
		}

		eventChan <- domainllm.StreamEvent{
			Metadata: &domainllm.StreamMetadata{
				Model:        req.Model,
				InputTokens:  p.estimateTokens(req.Messages),
				OutputTokens: sent,
				StopReason:   "end_turn",
			},
		}
	}()

	return eventChan, nil
}

// estimateTokens estimates the token count for a list of messages.
// Uses word count as a rough approximation.
func (p *Provider) estimateTokens(messages []domainllm.Message) int {
	totalWords := 0
	for _, msg := range messages {
		totalWords += len(strings.Fields(msg.Content))
	}
	return totalWords
}
