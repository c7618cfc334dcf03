// Package chat implements the streaming relay between an authenticated
// user and the conversational agent backing their conversation.
//
// A turn moves through fixed phases: load and authorize the conversation,
// persist the user turn, open the upstream stream, relay deltas to the
// client while accumulating them, then finalize by persisting the
// assistant turn. The user turn is durable before the upstream call is
// made, and the assistant turn is written exactly once per request, with
// whatever text accumulated, even when the stream ends early.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"outpost/internal/config"
	"outpost/internal/domain"
	"outpost/internal/domain/models"
	"outpost/internal/domain/repositories"
	domainllm "outpost/internal/domain/services/llm"
	"outpost/internal/syncutil"
)

const (
	// maxStreamDuration bounds a single relay, covering slow upstream
	// generations without holding connections open indefinitely.
	maxStreamDuration = 5 * time.Minute

	// finalizeTimeout bounds the assistant-turn persist, which runs on a
	// context detached from the request so a client disconnect cannot
	// abort it.
	finalizeTimeout = 10 * time.Second
)

// StreamWriter is the client-facing side of a relay. The HTTP layer
// provides an SSE implementation; tests provide fakes.
//
// A write error means the client is gone: the relay cancels the upstream
// stream but still finalizes with the text accumulated so far.
type StreamWriter interface {
	// WriteText sends one incremental text chunk.
	WriteText(text string) error
	// WriteError reports an in-band stream failure. No terminal marker
	// follows.
	WriteError(message string) error
	// WriteDone sends the terminal marker for a fully relayed and
	// finalized turn.
	WriteDone() error
}

// Service owns the per-conversation serialization and the relay pipeline.
type Service struct {
	convRepo repositories.ConversationRepository
	msgRepo  repositories.MessageRepository
	provider domainllm.Provider
	locks    *syncutil.KeyedMutex
	model    string
	logger   *slog.Logger
}

func NewService(
	convRepo repositories.ConversationRepository,
	msgRepo repositories.MessageRepository,
	provider domainllm.Provider,
	model string,
	logger *slog.Logger,
) *Service {
	return &Service{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		provider: provider,
		locks:    syncutil.NewKeyedMutex(),
		model:    model,
		logger:   logger,
	}
}

// Session is one prepared relay: the conversation is locked, authorized,
// and the user turn is already durable. Callers must call Close exactly
// once, after Relay (or instead of it on early exit).
type Session struct {
	svc      *Service
	conv     *models.Conversation
	system   string
	messages []domainllm.Message
	unlock   func()
	logger   *slog.Logger
}

// Open runs every phase that can still fail with a clean HTTP status:
// conversation load, ownership check, context-window load, and the
// user-turn persist. Once Open returns successfully the user turn is
// durable and the caller may commit to a streaming response.
//
// Errors map to the usual sentinels: ErrNotFound for a missing or closed
// conversation, ErrForbidden when the caller is not the owner.
func (s *Service) Open(ctx context.Context, userID, conversationID, text string) (*Session, error) {
	unlock, err := s.locks.Lock(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("acquiring conversation lock: %w", err)
	}

	sess, err := s.open(ctx, userID, conversationID, text, unlock)
	if err != nil {
		unlock()
		return nil, err
	}
	return sess, nil
}

func (s *Service) open(ctx context.Context, userID, conversationID, text string, unlock func()) (*Session, error) {
	conv, agent, err := s.convRepo.GetWithAgent(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	// Ownership is checked after existence so a found-but-foreign
	// conversation reports Forbidden, never NotFound.
	if conv.UserID != userID {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrForbidden)
	}
	if conv.Status != models.ConversationActive {
		return nil, fmt.Errorf("conversation %s is closed: %w", conversationID, domain.ErrNotFound)
	}

	history, err := s.msgRepo.ListRecent(ctx, conversationID, config.ContextWindowTurns)
	if err != nil {
		return nil, fmt.Errorf("loading conversation context: %w", err)
	}

	messages, err := BuildMessages(history, text)
	if err != nil {
		return nil, err
	}

	// The user turn must be durable before any upstream call.
	userTurn := &models.Message{
		ConversationID: conversationID,
		Role:           models.RoleUser,
		Content:        text,
	}
	if err := s.msgRepo.Insert(ctx, userTurn); err != nil {
		return nil, fmt.Errorf("persisting user turn: %w", err)
	}

	return &Session{
		svc:      s,
		conv:     conv,
		system:   BuildSystemPrompt(agent),
		messages: messages,
		unlock:   unlock,
		logger: s.logger.With(
			slog.String("conversation_id", conversationID),
			slog.String("agent_id", conv.AgentID),
		),
	}, nil
}

// Close releases the per-conversation lock. Safe to call once per Session.
func (sess *Session) Close() {
	sess.unlock()
}

// Relay streams the assistant response to w and finalizes the turn.
//
// All failures past this point are in-band: the response framing is
// already committed, so upstream errors become WriteError events and a
// client disconnect simply stops forwarding. In every case the assistant
// turn is persisted once, with the accumulated text, on a context that
// survives request cancellation. WriteDone is sent only after a clean
// stream whose finalize succeeded.
func (sess *Session) Relay(ctx context.Context, w StreamWriter) {
	streamCtx, cancel := context.WithTimeout(ctx, maxStreamDuration)
	defer cancel()

	req := &domainllm.GenerateRequest{
		Model:     sess.svc.model,
		System:    sess.system,
		Messages:  sess.messages,
		MaxTokens: config.MaxResponseTokens,
	}

	var (
		accumulated strings.Builder
		streamErr   error
		clientGone  bool
		meta        *domainllm.StreamMetadata
	)

	events, err := sess.svc.provider.StreamResponse(streamCtx, req)
	if err != nil {
		streamErr = fmt.Errorf("opening upstream stream: %w", err)
	} else {
	relay:
		for event := range events {
			switch {
			case event.Error != nil:
				streamErr = event.Error
				break relay
			case event.TextDelta != nil:
				accumulated.WriteString(*event.TextDelta)
				if werr := w.WriteText(*event.TextDelta); werr != nil {
					// Client gone. Stop the upstream but keep what we have.
					clientGone = true
					cancel()
					break relay
				}
			case event.Metadata != nil:
				meta = event.Metadata
			}
		}
		// Unblock the producer goroutine if we left early.
		cancel()
		for range events {
		}
	}

	finalized := sess.finalize(ctx, accumulated.String())

	logger := sess.logger.With(
		slog.Int("response_chars", accumulated.Len()),
		slog.Bool("finalized", finalized),
	)
	if meta != nil {
		logger = logger.With(
			slog.Int("input_tokens", meta.InputTokens),
			slog.Int("output_tokens", meta.OutputTokens),
		)
	}

	switch {
	case clientGone:
		logger.Info("client disconnected mid-stream, partial response persisted")
	case streamErr != nil:
		logger.Error("upstream stream failed", slog.String("error", streamErr.Error()))
		if werr := w.WriteError("stream interrupted"); werr != nil {
			logger.Debug("client gone before error event could be written")
		}
	case !finalized:
		// Relayed fine but the persist failed: the stream ends without a
		// terminal marker so the client does not treat the turn as durable.
		logger.Error("assistant turn relayed but not persisted")
	default:
		if werr := w.WriteDone(); werr != nil {
			logger.Debug("client gone before terminal marker could be written")
		}
		logger.Info("turn completed")
	}
}

// finalize persists the assistant turn exactly once with whatever text
// accumulated, including the empty string, and bumps the conversation's
// last-activity timestamp. It runs detached from the request context so
// a client disconnect cannot skip it.
func (sess *Session) finalize(ctx context.Context, text string) bool {
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	assistantTurn := &models.Message{
		ConversationID: sess.conv.ID,
		Role:           models.RoleAssistant,
		Content:        text,
	}
	if err := sess.svc.msgRepo.Insert(persistCtx, assistantTurn); err != nil {
		sess.logger.Error("persisting assistant turn failed", slog.String("error", err.Error()))
		return false
	}

	if err := sess.svc.convRepo.TouchLastMessage(persistCtx, sess.conv.ID, assistantTurn.CreatedAt); err != nil {
		// The turn itself is durable; a stale activity timestamp is not
		// worth failing the request over.
		sess.logger.Warn("updating conversation activity failed", slog.String("error", err.Error()))
	}
	return true
}
