package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"outpost/internal/httputil"
	"outpost/internal/middleware"
	"outpost/internal/service/analysis"
)

// AnalysisHandler exposes the sweep trigger for the external scheduler.
// It sits outside user auth; callers present the shared cron secret
// instead of a user token.
type AnalysisHandler struct {
	analysisService *analysis.Service
	cronSecret      string
	logger          *slog.Logger
}

func NewAnalysisHandler(analysisService *analysis.Service, cronSecret string, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		cronSecret:      cronSecret,
		logger:          logger,
	}
}

// Run handles POST /internal/v1/analysis/run.
func (h *AnalysisHandler) Run(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok || h.cronSecret == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) != 1 {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := h.analysisService.Run(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, summary)
}
