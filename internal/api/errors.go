package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/heimdex/heimdex-annotator/internal/domain"
)

// writeServiceError maps domain errors onto HTTP responses.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
			Error:  verr.Error(),
			Code:   "VALIDATION_ERROR",
			Fields: verr.Errors,
		})
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, domain.ErrAlreadyExists):
		WriteError(w, http.StatusConflict, err.Error(), "ALREADY_EXISTS")
	case errors.Is(err, domain.ErrPersist):
		logger.Error("save failed", "error", err)
		WriteError(w, http.StatusServiceUnavailable, err.Error(), "SAVE_FAILED")
	case errors.Is(err, domain.ErrEmptyExport):
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), "EMPTY_EXPORT")
	default:
		logger.Error("request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}

// saveError splits a persist failure off a mutation result. Any other error
// is returned as is.
func saveError(err error) (string, error) {
	if errors.Is(err, domain.ErrPersist) {
		return err.Error(), nil
	}
	return "", err
}
