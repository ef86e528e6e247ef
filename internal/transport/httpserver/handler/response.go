package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"splitledger/internal/domain/errs"
	"splitledger/internal/transport/httpserver/middleware"
)

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// fail writes the response for a service error. Domain errors keep their
// message and are logged as business errors; anything else is a 500.
func (h *Handlers) fail(w http.ResponseWriter, op string, err error, args ...any) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch kind := errs.Kind(err); {
	case errors.Is(kind, errs.ErrValidation):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(kind, errs.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(kind, errs.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(kind, errs.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(kind, errs.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	}

	if status == http.StatusInternalServerError {
		h.log.InternalError(op+": failed", err, args...)
		writeError(w, status, code, "internal error")
		return
	}
	h.log.BusinessError(op+": rejected", err, args...)
	writeError(w, status, code, err.Error())
}

func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return "", false
	}
	return userID, true
}
