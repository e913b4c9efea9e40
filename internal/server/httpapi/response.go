package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/shlink/internal/common"
	"github.com/dmitrijs2005/shlink/internal/shlink"
)

// statusFor maps a service error to an HTTP status and public message.
// This is the only place errors become status codes.
func statusFor(err error) (int, string) {
	var pe *common.PasscodeError
	switch {
	case errors.As(err, &pe):
		return http.StatusUnauthorized, "invalid passcode"
	case errors.Is(err, common.ErrBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrLockedOut):
		return http.StatusForbidden, "locked"
	case errors.Is(err, common.ErrExpired):
		return http.StatusGone, "expired"
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrInactive),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusNotFound, "not found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request cancelled"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error(context.Background(), "response encoding failed", "error", err)
		w.Header().Set("Content-Type", common.ContentTypeJSON)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
		return
	}

	w.Header().Set("Content-Type", common.ContentTypeJSON)
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, shlink.ErrorResponse{Error: message})
}

// fail writes err using statusFor. Server-side failures are logged; a
// passcode failure carries the remaining attempt count.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "route", routePattern(r), "error", err)
	}

	body := shlink.ErrorResponse{Error: msg}
	var pe *common.PasscodeError
	if errors.As(err, &pe) {
		remaining := pe.Remaining
		body.RemainingAttempts = &remaining
	}
	h.respondWithJSON(w, code, body)
}

func (h *Handler) respondWithJOSE(w http.ResponseWriter, jwe string) {
	w.Header().Set("Content-Type", common.ContentTypeJOSE)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(jwe))
}
