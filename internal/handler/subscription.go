package handler

import (
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"outpost/internal/httputil"
	"outpost/internal/service/subscription"
)

type subscribeRequest struct {
	AgentID       string `json:"agentId"`
	NotifyOnAlert *bool  `json:"notifyOnAlert"`
}

func (r subscribeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AgentID, validation.Required, is.UUID),
	)
}

type SubscriptionHandler struct {
	subService *subscription.Service
	logger     *slog.Logger
}

func NewSubscriptionHandler(subService *subscription.Service, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subService: subService, logger: logger}
}

// Subscribe handles POST /api/v1/subscriptions.
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.GetUserID(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req subscribeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	notify := true
	if req.NotifyOnAlert != nil {
		notify = *req.NotifyOnAlert
	}

	sub, err := h.subService.Subscribe(r.Context(), userID, req.AgentID, notify)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, sub)
}

// Unsubscribe handles DELETE /api/v1/subscriptions/{agentId}.
func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.GetUserID(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.subService.Unsubscribe(r.Context(), userID, r.PathValue("agentId")); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/v1/subscriptions.
func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.GetUserID(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	subs, err := h.subService.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, subs)
}

// Alerts handles GET /api/v1/alerts. The unread=true query parameter
// filters out read alerts.
func (h *SubscriptionHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.GetUserID(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	alerts, err := h.subService.Alerts(r.Context(), userID, unreadOnly)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, alerts)
}

// MarkAlertRead handles POST /api/v1/alerts/{id}/read.
func (h *SubscriptionHandler) MarkAlertRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.GetUserID(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.subService.MarkAlertRead(r.Context(), userID, r.PathValue("id")); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
