package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/paperchat/backend/internal/handlers"
	"github.com/paperchat/backend/internal/middleware"
	"github.com/paperchat/backend/internal/services"
	"github.com/paperchat/backend/internal/utils"
)

func NewRouter(
	documents services.DocumentService,
	chat services.ChatService,
	metadata services.MetadataService,
	logger *utils.Logger,
	maxFileSize int64,
) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Recovery(logger))

	documentHandler := handlers.NewDocumentHandler(documents, logger, maxFileSize)
	chatHandler := handlers.NewChatHandler(chat, logger)
	metadataHandler := handlers.NewMetadataHandler(metadata, logger)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	api.HandleFunc("/upload", documentHandler.Upload).Methods(http.MethodPost)
	api.HandleFunc("/chat", chatHandler.Chat).Methods(http.MethodPost)
	api.HandleFunc("/chat/history/{document_id}", chatHandler.History).Methods(http.MethodGet)
	api.HandleFunc("/documents", documentHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}", documentHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/metadata/backfill", metadataHandler.Backfill).Methods(http.MethodPost)

	return r
}
