package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/paperchat/backend/internal/models"
	"github.com/paperchat/backend/internal/utils"
)

func respondJSON(w http.ResponseWriter, logger *utils.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

func respondError(w http.ResponseWriter, logger *utils.Logger, err error) {
	appErr := utils.AsAppError(err)

	if appErr.IsClientError() {
		logger.Warn("Request failed", "status", appErr.StatusCode, "kind", appErr.Kind, "message", appErr.Message)
	} else {
		logger.Error("Request failed", "status", appErr.StatusCode, "kind", appErr.Kind, "message", appErr.Message)
	}

	respondJSON(w, logger, appErr.StatusCode, models.ErrorResponse{
		Error:   appErr.Kind,
		Message: appErr.Message,
	})
}
