package web

// errors.go provides unified error response handling for the web layer.
//
// Errors are logged with their technical text and the request id, then
// returned to clients as the mapped core.UserMessage: JSON for API clients,
// an HTML fragment for HTMX requests, and plain text otherwise.

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/JonMunkholm/subcheck/internal/core"
	"github.com/JonMunkholm/subcheck/internal/logging"
)

// ErrorResponse is the JSON body for API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes the user-facing message in the format the
// client asked for.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context(), s.logger)
	logFn := logger.Warn
	if statusCode >= http.StatusInternalServerError {
		logFn = logger.Error
	}
	logFn("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	switch {
	case isHTMX(r):
		renderErrorPartial(r.Context(), w, userMsg, statusCode)
	case wantsJSON(r):
		respondErrorJSON(w, userMsg, statusCode)
	default:
		http.Error(w, userMsg.Message+" ("+userMsg.Code+")", statusCode)
	}
}

func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

func renderErrorPartial(ctx context.Context, w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	errorAlert(msg).Render(ctx, w)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client prefers JSON. API routes default to
// JSON unless the client explicitly accepts HTML.
func wantsJSON(r *http.Request) bool {
	if isHTMX(r) {
		return false
	}
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") {
		return true
	}
	if strings.Contains(accept, "text/html") {
		return false
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
