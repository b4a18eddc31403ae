package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sentinelops/incident-core/internal/authz"
)

// ErrorBody is the error half of the response envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// envelope is the uniform JSON response shape. Success responses carry
// data, failures carry a structured error, never both.
type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// Error codes emitted by the handlers. The authorization gate adds its
// own codes on top of these.
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeDuplicate       = "DUPLICATE_ENTRY"
	ErrCodeInvalidRef      = "INVALID_REFERENCE"
	ErrCodeMissingRequired = "MISSING_REQUIRED_FIELD"
	ErrCodeInvalidState    = "INVALID_STATE"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeSuccess writes a success envelope wrapping the payload.
func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeError writes a failure envelope with the given code and message.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{Success: false, Error: &ErrorBody{Code: code, Message: message}})
}

// writeErrorDetails writes a failure envelope including structured details,
// typically per-field validation messages.
func writeErrorDetails(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, envelope{Success: false, Error: &ErrorBody{Code: code, Message: message, Details: details}})
}

// deny satisfies the gate's DenyFunc so authorization failures share the
// response envelope with everything else. Denials are also fed to the
// analytics sink when one is configured.
func (s *Server) deny(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	if s.influx != nil && (status == http.StatusUnauthorized || status == http.StatusForbidden) {
		orgID := ""
		if org := authz.OrganizationFrom(r.Context()); org != nil {
			orgID = org.ID
		}
		s.influx.WriteAuthzDenial(orgID, code, r.URL.Path)
	}
	writeError(w, status, code, message)
}

// writeStorageError maps a storage failure to a client-appropriate
// response. SQLite constraint violations become 4xx classifications;
// anything else is a 500 whose cause is only exposed outside production.
func (s *Server) writeStorageError(w http.ResponseWriter, err error) {
	msg := err.Error()

	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		writeError(w, http.StatusConflict, ErrCodeDuplicate, "a record with these values already exists")
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRef, "referenced record does not exist")
	case strings.Contains(msg, "NOT NULL constraint failed"):
		writeError(w, http.StatusBadRequest, ErrCodeMissingRequired, "a required field is missing")
	default:
		s.logger.Error("storage operation failed", "error", err)
		if s.production {
			writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
			return
		}
		writeErrorDetails(w, http.StatusInternalServerError, ErrCodeInternal, "internal server error", msg)
	}
}
