package http

import (
	"errors"
	"net/http"
	"strings"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/services"
)

// isClientError reports whether err should surface as a 400.
func isClientError(err error) bool {
	return services.IsClientError(err) ||
		errors.Is(err, errInvalidID) ||
		errors.Is(err, errInvalidBody) ||
		errors.Is(err, errInvalidTop)
}

// writeError maps err to a status: caller input → 400, missing entity → 404,
// anything else → 500 with the cause only in the log.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)

	switch {
	case isClientError(err):
		logger.DebugContext(r.Context(), "Rejected request", log.FieldOperation, op, log.FieldError, err)
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError(err.Error()).Write(w)
	default:
		logger.ErrorContext(r.Context(), "Request failed", log.FieldOperation, op, log.FieldError, err)
		InternalServerError().Write(w)
	}
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
