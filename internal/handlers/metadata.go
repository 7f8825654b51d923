package handlers

import (
	"net/http"

	"github.com/paperchat/backend/internal/services"
	"github.com/paperchat/backend/internal/utils"
)

// backfillPageLimit bounds how many documents one backfill request scans.
const backfillPageLimit = 1000

type MetadataHandler struct {
	service services.MetadataService
	logger  *utils.Logger
}

func NewMetadataHandler(service services.MetadataService, logger *utils.Logger) *MetadataHandler {
	return &MetadataHandler{
		service: service,
		logger:  logger,
	}
}

// Backfill handles POST /api/metadata/backfill.
func (h *MetadataHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.BackfillAll(r.Context(), backfillPageLimit)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}
