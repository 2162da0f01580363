package web

// errors.go maps errors to HTTP responses.
//
// Every error is logged server-side with its request ID and returned to the
// client as a core.UserMessage: JSON for API and fetch callers, an alert
// fragment for HTMX swaps, plain text otherwise.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/eqviz/internal/auth"
	"github.com/JonMunkholm/eqviz/internal/core"
	"github.com/JonMunkholm/eqviz/internal/logging"
	"github.com/JonMunkholm/eqviz/internal/web/templates"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Action  string   `json:"action,omitempty"`
	Code    string   `json:"code"`
	Columns []string `json:"columns,omitempty"`
}

// statusFor picks the HTTP status for an error returned by a service.
func statusFor(err error) int {
	switch {
	// Before the validation case, which also covers oversized files.
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case core.IsValidationError(err),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrNoFile),
		errors.Is(err, core.ErrNotCSV),
		errors.Is(err, auth.ErrCredentialsRequired),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, auth.ErrUserExists),
		errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// fail responds with the status statusFor picks.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.respondError(w, r, err, statusFor(err))
}

// respondError logs the technical error and writes the user-facing message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Info("request rejected", attrs...)
	}

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userMsg, statusCode)
	case wantsJSON(r):
		respondErrorJSON(w, userMsg, core.OffendingColumns(err), statusCode)
	default:
		http.Error(w, userMsg.Message+" ("+userMsg.Code+")", statusCode)
	}
}

func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, columns []string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Columns: columns,
	})
}

func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client should get a JSON error body.
// API routes always do.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
