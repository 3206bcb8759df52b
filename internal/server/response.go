package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/market-advisor/internal/apperr"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

const unexpectedError = "Unexpected error while processing the request."

// envelope is the response body of every API route except health.
type envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Warning string `json:"warning,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeSuccess(w http.ResponseWriter, data any, message, warning string) {
	writeJSON(w, http.StatusOK, envelope{Status: statusSuccess, Data: data, Message: message, Warning: warning})
}

// writeError maps err through the error taxonomy. Internal errors are logged
// and reported without their cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
	} else {
		zap.L().Warn("request rejected",
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestID(r.Context())),
			zap.String("reason", apperr.Message(err)),
		)
	}
	writeJSON(w, status, envelope{Status: statusError, Message: apperr.Message(err)})
}
