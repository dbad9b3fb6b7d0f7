package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"gigmaps-engine/internal/contact"
	"gigmaps-engine/internal/entitlement"
	"gigmaps-engine/internal/session"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// writeDomainError maps the engine's sentinel errors onto status codes.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entitlement.ErrInvalidLicense):
		WriteError(w, r, http.StatusUnprocessableEntity, "invalid_license", err.Error())
	case errors.Is(err, entitlement.ErrLicenseExpired):
		WriteError(w, r, http.StatusUnprocessableEntity, "license_expired", err.Error())
	case errors.Is(err, entitlement.ErrVerificationUnavailable):
		WriteError(w, r, http.StatusServiceUnavailable, "verification_unavailable",
			"license verification is unavailable, try again shortly")
	case errors.Is(err, entitlement.ErrPaymentFailed):
		WriteError(w, r, http.StatusPaymentRequired, "payment_failed", err.Error())
	case errors.Is(err, session.ErrUnknownPlatform):
		WriteError(w, r, http.StatusNotFound, "unknown_platform", err.Error())
	case errors.Is(err, contact.ErrInvalidMessage):
		WriteError(w, r, http.StatusBadRequest, "invalid_message", err.Error())
	case errors.Is(err, contact.ErrRelayFailed):
		WriteError(w, r, http.StatusBadGateway, "relay_failed",
			"your message could not be sent, please try again")
	default:
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
