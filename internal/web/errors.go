package web

// errors.go turns errors into HTTP responses.
//
// Every failure is logged with the technical error and request ID, then
// answered with the user-facing message from core.MapError. API routes get
// JSON; anything else gets plain text.

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/autoimport/internal/core"
	"github.com/JonMunkholm/autoimport/internal/logging"
)

// ErrorResponse is the JSON body of a failed API call.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// ImportErrorResponse is the JSON body of a failed import. ImportedCount is
// what the store kept before the failure.
type ImportErrorResponse struct {
	ErrorResponse
	ImportID      string            `json:"importId,omitempty"`
	ImportedCount int               `json:"importedCount"`
	Status        core.ImportStatus `json:"status"`
}

// statusFor picks the HTTP status for an error from the import pipeline.
func statusFor(err error) int {
	var (
		parseErr     *core.ParseError
		malformedErr *core.MalformedRowError
		writeErr     *core.WriteError
		tooLarge     *http.MaxBytesError
	)

	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNoFile),
		errors.Is(err, core.ErrInvalidBatchSize),
		errors.As(err, &parseErr),
		errors.As(err, &malformedErr):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.As(err, &writeErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	msg := logError(r, err, statusCode)

	if !wantsJSON(r) {
		http.Error(w, msg.Message+" ("+msg.Code+")", statusCode)
		return
	}
	writeJSONStatus(w, statusCode, newErrorResponse(msg.Message, msg))
}

// respondImportError is respondError for POST /api/import, whose failure
// body also reports how much was committed.
func (s *Server) respondImportError(w http.ResponseWriter, r *http.Request, err error, res *core.ImportResult) {
	status := statusFor(err)
	msg := logError(r, err, status)

	body := ImportErrorResponse{
		ErrorResponse: newErrorResponse("Failed to import data", msg),
		ImportedCount: core.CommittedCount(err),
		Status:        core.StatusFailure,
	}
	if res != nil {
		body.ImportID = res.ImportID
		body.ImportedCount = res.Committed
	}
	writeJSONStatus(w, status, body)
}

func newErrorResponse(summary string, msg core.UserMessage) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error:   summary,
		Details: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
}

func logError(r *http.Request, err error, statusCode int) core.UserMessage {
	msg := core.MapError(err)

	level := slog.LevelWarn
	if statusCode >= 500 {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", msg.Code,
	)
	return msg
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}

	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
