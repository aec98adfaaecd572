// Package httpserver exposes the kiosk-facing JSON API over chi.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/centbank/facegate/internal/errs"
)

type errorBody struct {
	Error reason `json:"error"`
}

type reason struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON serializes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps sentinel errors to stable machine-readable reason codes.
// Callers always get a specific code, never a bare 500 for a domain outcome.
func writeError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, errs.ErrNotFound):
		status, code = http.StatusNotFound, "not-found"
	case errors.Is(err, errs.ErrAlreadyExists):
		status, code = http.StatusConflict, "already-exists"
	case errors.Is(err, errs.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errs.ErrCredentialInvalid):
		status, code = http.StatusUnauthorized, "invalid-credentials"
	case errors.Is(err, errs.ErrIdentityMismatch):
		status, code = http.StatusForbidden, "identity-mismatch"
	case errors.Is(err, errs.ErrRateLimited):
		status, code = http.StatusTooManyRequests, "rate-limited"
	case errors.Is(err, errs.ErrMaxAttempts):
		status, code = http.StatusTooManyRequests, "max-attempts"
	case errors.Is(err, errs.ErrSessionExpired):
		status, code = http.StatusUnauthorized, "expired"
	case errors.Is(err, errs.ErrSessionTerminal):
		status, code = http.StatusConflict, "session-closed"
	case errors.Is(err, errs.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid-state"
	case errors.Is(err, errs.ErrInsufficientSamples):
		status, code = http.StatusUnprocessableEntity, "insufficient-samples"
	case errors.Is(err, errs.ErrInsufficientFunds):
		status, code = http.StatusUnprocessableEntity, "insufficient-funds"
	case errors.Is(err, errs.ErrSelfTransfer):
		status, code = http.StatusUnprocessableEntity, "self-transfer"
	case errors.Is(err, errs.ErrInvalidAmount):
		status, code = http.StatusBadRequest, "invalid-amount"
	case errors.Is(err, errs.ErrDimensionMismatch):
		status, code = http.StatusBadGateway, "extractor-mismatch"
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Internals stay in the logs.
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: reason{Code: code, Message: msg}})
}

// decode parses a JSON request body into dst.
func decode(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// badRequest reports a malformed request body or parameter.
func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: reason{Code: "bad-request", Message: msg}})
}
