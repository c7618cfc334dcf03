package handler

import (
	"log/slog"
	"net/http"

	"outpost/internal/httputil"
	"outpost/internal/service/agent"
)

type AgentHandler struct {
	agentService *agent.Service
	logger       *slog.Logger
}

func NewAgentHandler(agentService *agent.Service, logger *slog.Logger) *AgentHandler {
	return &AgentHandler{agentService: agentService, logger: logger}
}

// List handles GET /api/v1/agents.
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	agents, err := h.agentService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, agents)
}

// Get handles GET /api/v1/agents/{id}.
func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.agentService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, a)
}
