package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/paperchat/backend/internal/llm"
	"github.com/paperchat/backend/internal/models"
	"github.com/paperchat/backend/internal/repository"
	"github.com/paperchat/backend/internal/storage"
	"github.com/paperchat/backend/internal/utils"
)

const (
	backfillMaxAttempts = 3
	backfillBaseDelay   = time.Second
)

type MetadataService interface {
	// ExtractAndSave enriches one document with keywords and topics. Failures
	// propagate to the caller; retrying is the caller's decision.
	ExtractAndSave(ctx context.Context, documentID string) error

	// BackfillAll enriches up to limit most-recently-uploaded documents that
	// lack metadata, retrying each with exponential backoff. One failing
	// document never aborts the batch.
	BackfillAll(ctx context.Context, limit int) (*models.BackfillResponse, error)
}

type metadataService struct {
	repo   repository.Repository
	store  storage.Storage
	llm    llm.Client
	logger *utils.Logger
	sleep  func(time.Duration)
}

func NewMetadataService(repo repository.Repository, store storage.Storage, llmClient llm.Client, logger *utils.Logger) MetadataService {
	return &metadataService{
		repo:   repo,
		store:  store,
		llm:    llmClient,
		logger: logger,
		sleep:  time.Sleep,
	}
}

func (s *metadataService) ExtractAndSave(ctx context.Context, documentID string) error {
	pdfBase64, err := s.store.FetchBase64(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch pdf: %w", err)
	}

	metadata, err := s.llm.ExtractMetadata(ctx, pdfBase64)
	if err != nil {
		return fmt.Errorf("extract metadata: %w", err)
	}

	// Both lists are non-nil past the gateway's shape check; empty arrays are
	// a valid enrichment result and persist as [].
	keywordsJSON, err := json.Marshal(metadata.Keywords)
	if err != nil {
		return fmt.Errorf("encode keywords: %w", err)
	}
	topicsJSON, err := json.Marshal(metadata.Topics)
	if err != nil {
		return fmt.Errorf("encode topics: %w", err)
	}

	if err := s.repo.UpdateDocumentMetadata(ctx, documentID, string(keywordsJSON), string(topicsJSON)); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}

	s.logger.Info("Extracted document metadata",
		"document_id", documentID,
		"keywords", len(metadata.Keywords),
		"topics", len(metadata.Topics))

	return nil
}

func (s *metadataService) BackfillAll(ctx context.Context, limit int) (*models.BackfillResponse, error) {
	documents, err := s.repo.ListRecentDocuments(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to list documents for backfill", "error", err)
		return nil, utils.NewDatabaseError("Failed to list documents")
	}

	result := &models.BackfillResponse{}

	for _, doc := range documents {
		if doc.Keywords != nil && doc.Topics != nil {
			continue
		}

		result.Processed++
		s.logger.Info("Backfilling document metadata", "document_id", doc.ID, "filename", doc.Filename)

		err := s.retry(func() error { return s.ExtractAndSave(ctx, doc.ID) })
		if err != nil {
			result.Failed++
			s.logger.Error("Backfill failed for document", "document_id", doc.ID, "error", err)
			continue
		}
		result.Succeeded++
	}

	return result, nil
}

// retry runs fn up to backfillMaxAttempts times, waiting backfillBaseDelay
// before the first retry and doubling after each one. No jitter.
func (s *metadataService) retry(fn func() error) error {
	delay := backfillBaseDelay

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= backfillMaxAttempts {
			return err
		}

		s.logger.Warn("Attempt failed, retrying", "attempt", attempt, "delay", delay.String(), "error", err)
		s.sleep(delay)
		delay *= 2
	}
}
