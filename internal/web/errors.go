package web

// errors.go turns service errors into responses.
//
// Every error goes through core.MapError. The technical error is logged with
// the request id and the client gets the mapped message, action and code, plus
// the offending row for row-level import failures. The HTTP status follows
// from the code.

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/pickimport/internal/core"
	"github.com/JonMunkholm/pickimport/internal/logging"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`

	// Set for row-level import failures.
	Row   *int   `json:"row,omitempty"`
	Line  *int   `json:"line,omitempty"`
	Value string `json:"value,omitempty"`
}

// statusForCode maps a user message code to an HTTP status.
func statusForCode(code string) int {
	switch code {
	case "IMP001", "IMP002", "IMP003", "IMP004", "IMP005", "IMP006", "IMP009":
		return http.StatusUnprocessableEntity
	case "IMP007":
		return http.StatusNotFound
	case "IMP008":
		return http.StatusConflict
	case "FILE001":
		return http.StatusRequestEntityTooLarge
	case "FILE002", "FILE003", "FILE004", "FILE005", "REQ001":
		return http.StatusBadRequest
	case "UPL002":
		return http.StatusServiceUnavailable
	case "UPL004":
		return 499
	case "UPL005":
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the mapped JSON error. It returns the
// status written.
func respondError(w http.ResponseWriter, r *http.Request, err error) int {
	msg := core.MapError(err)
	status := statusForCode(msg.Code)

	logRequestError(r, err, msg.Code, status)

	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	if row, line, value, ok := core.RowDetails(err); ok {
		resp.Row = &row
		resp.Line = &line
		resp.Value = value
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSONStatus(w, status, resp)
	return status
}

// logRequestError logs a failed request at warn, or error for 5xx.
func logRequestError(r *http.Request, err error, code string, status int) {
	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", code,
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request error", attrs...)
	}
}

// respondBadRequest writes a 400 for malformed requests that never reach
// the service.
func respondBadRequest(w http.ResponseWriter, message, action string) {
	writeJSONStatus(w, http.StatusBadRequest, ErrorResponse{
		Error:   message,
		Message: message,
		Action:  action,
		Code:    "REQ001",
	})
}

// writeJSON encodes v as JSON with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
