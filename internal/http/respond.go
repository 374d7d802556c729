package http

import (
	"encoding/json"
	"net/http"

	"github.com/fjod/products-api/internal/domain"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// RawError mirrors a thrown error object for failures that are not validation errors.
type RawError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type DeleteResponse struct {
	Message  string          `json:"message"`
	Products *domain.Product `json:"products"`
}

func respondJSON(w http.ResponseWriter, log *zap.SugaredLogger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warnw("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, log *zap.SugaredLogger, status int, message string) {
	respondJSON(w, log, status, ErrorResponse{Error: message})
}
