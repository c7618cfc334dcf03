package handler

import (
	"net/http"

	"outpost/internal/httputil"
)

// HealthCheck handles GET /health. Unauthenticated liveness probe.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
