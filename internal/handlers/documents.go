package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/paperchat/backend/internal/services"
	"github.com/paperchat/backend/internal/utils"
)

const defaultListLimit = 20

type DocumentHandler struct {
	service     services.DocumentService
	logger      *utils.Logger
	maxFileSize int64
}

func NewDocumentHandler(service services.DocumentService, logger *utils.Logger, maxFileSize int64) *DocumentHandler {
	return &DocumentHandler{
		service:     service,
		logger:      logger,
		maxFileSize: maxFileSize,
	}
}

// Upload handles POST /api/upload: multipart field "pdf" carrying filename
// and bytes.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxFileSize {
		respondError(w, h.logger, utils.NewBadRequestError("File exceeds the upload size limit"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			respondError(w, h.logger, utils.NewBadRequestError("File exceeds the upload size limit"))
			return
		}
		respondError(w, h.logger, utils.NewBadRequestError("Invalid multipart form data"))
		return
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("No PDF file found"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, h.logger, utils.NewInternalError("Failed to read uploaded file"))
		return
	}

	filename := header.Filename
	if filename == "" {
		filename = "document.pdf"
	}

	resp, err := h.service.Upload(r.Context(), filename, data)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, resp)
}

// Get handles GET /api/documents/{id}: the raw PDF bytes.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["id"]

	data, filename, err := h.service.FetchPDF(r.Context(), documentID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Failed to write PDF response", "error", err, "document_id", documentID)
	}
}

// List handles GET /api/documents?limit=N.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, h.logger, utils.NewBadRequestError("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	documents, err := h.service.List(r.Context(), limit)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, documents)
}
