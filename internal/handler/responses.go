package handler

import (
	"encoding/json"
	"net/http"

	"github.com/propestai/voice-agent-service/internal/domain"
	"github.com/propestai/voice-agent-service/pkg/logger"
	"go.uber.org/zap"
)

// APIResponse is the common JSON envelope for non-collection endpoints.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// PaginationMeta describes the page of a list response.
type PaginationMeta struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
}

// PaginatedResponse is the JSON envelope for collection endpoints.
type PaginatedResponse struct {
	Status     string         `json:"status"`
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// writeJSON serializes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Base().Error("failed to encode response", zap.Error(err))
	}
}

// writeSuccess writes a success envelope.
func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, APIResponse{Status: "success", Message: message, Data: data})
}

// writeError maps an application error to an HTTP status code and writes an
// error envelope. Internal details stay in the logs.
func writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Base().Error("request failed", zap.Error(err))
		message = "internal server error"
	}
	writeJSON(w, status, APIResponse{Status: "error", Message: message})
}

func statusForError(err error) int {
	switch domain.KindOf(err) {
	case domain.KindBadRequest:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvariantViolation:
		return http.StatusUnprocessableEntity
	case domain.KindRemoteService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
