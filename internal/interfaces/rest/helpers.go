package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/commercekit/globalpay-reconciler/internal/application"
)

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AckResponse struct {
	Success bool   `json:"success"`
	Result  string `json:"result,omitempty"`
}

// WriteError maps application errors to HTTP responses
func WriteError(w http.ResponseWriter, err error, logger *slog.Logger) {
	statusCode := application.ToHTTPStatus(err)
	errorCode := application.ToErrorCode(err)

	response := ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    errorCode,
			Message: err.Error(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if encodeErr := json.NewEncoder(w).Encode(response); encodeErr != nil {
		logger.Error("failed to encode error response", "error", encodeErr)
	}
}

// WriteAck acknowledges an accepted or idempotently-ignored callback.
func WriteAck(w http.ResponseWriter, result string, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(AckResponse{Success: true, Result: result}); err != nil {
		logger.Error("failed to encode ack response", "error", err)
	}
}
