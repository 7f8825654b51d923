package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paperchat/backend/internal/config"
	"github.com/paperchat/backend/internal/db"
	"github.com/paperchat/backend/internal/llm"
	"github.com/paperchat/backend/internal/pdfcache"
	"github.com/paperchat/backend/internal/repository"
	"github.com/paperchat/backend/internal/router"
	"github.com/paperchat/backend/internal/services"
	"github.com/paperchat/backend/internal/storage"
	"github.com/paperchat/backend/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.LogLevel)

	// Initialize database
	database, err := db.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.DatabasePath); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	repo := repository.NewRepository(database, logger)

	// Select the blob-store backend
	var store storage.Storage
	switch cfg.StorageBackend {
	case "s3":
		store, err = storage.NewS3Storage(cfg)
	default:
		store, err = storage.NewLocalStorage(cfg.UploadDir)
	}
	if err != nil {
		logger.Fatal("Failed to initialize storage", "backend", cfg.StorageBackend, "error", err)
	}

	pdfCache := pdfcache.New(store, pdfcache.DefaultCapacity, pdfcache.DefaultTTL)

	llmClient, err := llm.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, logger)
	if err != nil {
		logger.Fatal("Failed to initialize LLM client", "error", err)
	}

	metadataService := services.NewMetadataService(repo, store, llmClient, logger)
	documentService := services.NewDocumentService(repo, store, metadataService, logger)
	chatService := services.NewChatService(repo, pdfCache, llmClient, logger)

	handler := router.NewRouter(documentService, chatService, metadataService, logger, cfg.MaxFileSize)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "storage", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
