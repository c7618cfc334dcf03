package handler

import (
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"outpost/internal/domain"
	"outpost/internal/httputil"
)

// respondServiceError maps domain sentinels onto HTTP statuses. Anything
// unrecognized is a 500 with a generic body; the real error is logged,
// never leaked.
func respondServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		httputil.RespondError(w, http.StatusBadRequest, verrs.Error())
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, "not found")
	default:
		logger.Error("request failed", slog.String("error", err.Error()))
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
