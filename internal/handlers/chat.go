package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/paperchat/backend/internal/models"
	"github.com/paperchat/backend/internal/services"
	"github.com/paperchat/backend/internal/utils"
)

type ChatHandler struct {
	service services.ChatService
	logger  *utils.Logger
}

func NewChatHandler(service services.ChatService, logger *utils.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger,
	}
}

// Chat handles POST /api/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid request body"))
		return
	}

	if req.DocumentID == "" {
		respondError(w, h.logger, utils.NewBadRequestError("document_id is required"))
		return
	}

	resp, err := h.service.Chat(r.Context(), req.DocumentID, req.Messages)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, resp)
}

// History handles GET /api/chat/history/{document_id}.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["document_id"]

	messages, err := h.service.History(r.Context(), documentID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, messages)
}
