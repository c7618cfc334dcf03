package handler

import (
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"outpost/internal/config"
	"outpost/internal/httputil"
	"outpost/internal/service/conversation"
)

type createConversationRequest struct {
	AgentID string  `json:"agentId"`
	Title   *string `json:"title"`
}

func (r createConversationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AgentID, validation.Required, is.UUID),
		validation.Field(&r.Title, validation.Length(1, config.MaxConversationTitleLength)),
	)
}

type ConversationHandler struct {
	convService *conversation.Service
	logger      *slog.Logger
}

func NewConversationHandler(convService *conversation.Service, logger *slog.Logger) *ConversationHandler {
	return &ConversationHandler{convService: convService, logger: logger}
}

// Create handles POST /api/v1/conversations.
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.GetUserID(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createConversationRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	conv, err := h.convService.Create(r.Context(), userID, req.AgentID, req.Title)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, conv)
}

// List handles GET /api/v1/conversations.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.GetUserID(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	convs, err := h.convService.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, convs)
}

// Get handles GET /api/v1/conversations/{id}.
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.GetUserID(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	detail, err := h.convService.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"conversation": detail.Conversation,
		"agent":        detail.Agent,
		"messages":     detail.Messages,
	})
}

// Close handles DELETE /api/v1/conversations/{id}.
func (h *ConversationHandler) Close(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.GetUserID(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.convService.Close(r.Context(), userID, r.PathValue("id")); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
