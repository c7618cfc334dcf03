package handler

import (
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"outpost/internal/config"
	"outpost/internal/handler/sse"
	"outpost/internal/httputil"
	"outpost/internal/service/chat"
)

type streamChatRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

func (r streamChatRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ConversationID, validation.Required, is.UUID),
		validation.Field(&r.Message, validation.Required, validation.Length(1, config.MaxMessageLength)),
	)
}

// ChatHandler serves the streaming chat endpoint.
type ChatHandler struct {
	chatService *chat.Service
	logger      *slog.Logger
}

func NewChatHandler(chatService *chat.Service, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, logger: logger}
}

// StreamChat handles POST /api/v1/chat/stream.
//
// Everything that can fail before streaming begins (auth, validation,
// conversation load, user-turn persist) gets a plain JSON error with a
// proper status code. Once the session opens, the response commits to
// SSE and all later failures are reported in-band.
func (h *ChatHandler) StreamChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.GetUserID(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req streamChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if _, ok := w.(http.Flusher); !ok {
		// Reject before any turn is persisted; a buffered writer cannot
		// carry an SSE stream.
		httputil.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sess, err := h.chatService.Open(r.Context(), userID, req.ConversationID, req.Message)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	defer sess.Close()

	writer, err := sse.NewWriter(w)
	if err != nil {
		h.logger.Error("response writer cannot stream", slog.String("error", err.Error()))
		return
	}

	sess.Relay(r.Context(), writer)
}
