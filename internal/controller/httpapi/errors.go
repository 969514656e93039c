package httpapi

import (
	"net/http"

	"github.com/Freeeeeet/demo_booking/internal/service"
	"go.uber.org/zap"
)

// mapServiceError returns the status and client-safe message for err.
// Internal errors never expose their text.
func mapServiceError(err error) (int, string) {
	switch {
	case service.IsErrValidation(err):
		return http.StatusBadRequest, err.Error()
	case service.IsErrUnauthorized(err):
		return http.StatusUnauthorized, "authentication required"
	case service.IsErrForbidden(err):
		return http.StatusForbidden, err.Error()
	case service.IsErrNotFound(err):
		return http.StatusNotFound, err.Error()
	case service.IsErrAlreadyBooked(err):
		return http.StatusConflict, "you already have an active request for this demo"
	case service.IsErrSlotFull(err):
		return http.StatusConflict, "this slot is full"
	case service.IsErrInvalidState(err):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *handler) failService(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapServiceError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	fail(w, status, service.Kind(err), msg)
}
