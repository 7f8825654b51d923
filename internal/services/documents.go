package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paperchat/backend/internal/extractor"
	"github.com/paperchat/backend/internal/models"
	"github.com/paperchat/backend/internal/repository"
	"github.com/paperchat/backend/internal/storage"
	"github.com/paperchat/backend/internal/utils"
)

type DocumentService interface {
	// Upload validates and stores a PDF, records its document row and kicks
	// off metadata enrichment in the background.
	Upload(ctx context.Context, filename string, data []byte) (*models.UploadResponse, error)

	// FetchPDF returns the raw stored bytes and the original filename, when
	// one was recorded.
	FetchPDF(ctx context.Context, documentID string) ([]byte, string, error)

	// List returns up to limit most-recently-uploaded documents with decoded
	// keyword/topic lists.
	List(ctx context.Context, limit int) ([]models.DocumentSummary, error)
}

// blobSidecar is the small JSON document stored next to each PDF blob. It
// lets the store describe a blob without a database round trip.
type blobSidecar struct {
	Filename  string `json:"filename"`
	PageCount int    `json:"page_count"`
	Size      int    `json:"size"`
}

type documentService struct {
	repo     repository.Repository
	store    storage.Storage
	metadata MetadataService
	logger   *utils.Logger
}

func NewDocumentService(repo repository.Repository, store storage.Storage, metadata MetadataService, logger *utils.Logger) DocumentService {
	return &documentService{
		repo:     repo,
		store:    store,
		metadata: metadata,
		logger:   logger,
	}
}

func (s *documentService) Upload(ctx context.Context, filename string, data []byte) (*models.UploadResponse, error) {
	if err := extractor.ValidateHeader(data); err != nil {
		s.logger.Warn("Rejected non-PDF upload", "filename", filename)
		return nil, utils.NewBadRequestError("File is not a valid PDF")
	}

	pageCount, err := extractor.PageCount(data)
	if err != nil {
		// Header checked out; an unparseable body only costs us the count.
		s.logger.Warn("Could not determine page count", "filename", filename, "error", err)
		pageCount = 0
	}

	documentID, err := s.store.Store(ctx, filename, data)
	if err != nil {
		s.logger.Error("Failed to store PDF", "error", err, "filename", filename)
		return nil, utils.NewStorageError("Failed to store document")
	}

	if err := s.repo.CreateDocument(ctx, documentID, filename, pageCount); err != nil {
		s.logger.Error("Failed to save document record", "error", err, "document_id", documentID)
		// Best-effort cleanup of the orphaned blob
		_ = s.store.Delete(ctx, documentID)
		return nil, utils.NewDatabaseError("Failed to save document record")
	}

	// Sidecar is best-effort; the database row stays authoritative.
	if sidecar, err := json.Marshal(blobSidecar{Filename: filename, PageCount: pageCount, Size: len(data)}); err == nil {
		if err := s.store.StoreMetadata(ctx, documentID, sidecar); err != nil {
			s.logger.Warn("Failed to store blob sidecar", "document_id", documentID, "error", err)
		}
	}

	s.logger.Info("Document uploaded",
		"document_id", documentID,
		"filename", filename,
		"size", len(data),
		"pages", pageCount)

	// Enrichment is detached on purpose: the upload response never waits on
	// the model, and a failure here is logged and picked up by the next
	// backfill run.
	go func() {
		if err := s.metadata.ExtractAndSave(context.Background(), documentID); err != nil {
			s.logger.Error("Post-upload metadata extraction failed", "document_id", documentID, "error", err)
		}
	}()

	return &models.UploadResponse{DocumentID: documentID}, nil
}

func (s *documentService) FetchPDF(ctx context.Context, documentID string) ([]byte, string, error) {
	data, err := s.store.Fetch(ctx, documentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", utils.NewNotFoundError(fmt.Sprintf("Document not found: %s", documentID))
		}
		s.logger.Error("Failed to fetch PDF", "error", err, "document_id", documentID)
		return nil, "", utils.NewStorageError("Failed to fetch document")
	}

	return data, s.sidecarFilename(ctx, documentID), nil
}

// sidecarFilename reads the original filename from the blob sidecar. Any
// failure degrades to an empty name; the bytes themselves are what matters.
func (s *documentService) sidecarFilename(ctx context.Context, documentID string) string {
	raw, err := s.store.FetchMetadata(ctx, documentID)
	if err != nil || raw == nil {
		return ""
	}

	var sidecar blobSidecar
	if err := json.Unmarshal(raw, &sidecar); err != nil {
		return ""
	}
	return sidecar.Filename
}

func (s *documentService) List(ctx context.Context, limit int) ([]models.DocumentSummary, error) {
	documents, err := s.repo.ListRecentDocuments(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to list documents", "error", err)
		return nil, utils.NewDatabaseError("Failed to list documents")
	}

	summaries := make([]models.DocumentSummary, 0, len(documents))
	for _, doc := range documents {
		summaries = append(summaries, models.DocumentSummary{
			ID:         doc.ID,
			Filename:   doc.Filename,
			Keywords:   s.decodeTags(doc.ID, doc.Keywords),
			Topics:     s.decodeTags(doc.ID, doc.Topics),
			PageCount:  doc.PageCount,
			UploadedAt: doc.UploadedAt,
		})
	}

	return summaries, nil
}

// decodeTags turns a stored JSON array into a string slice. Absent or
// unparseable values decode to an empty list so the API never returns null.
func (s *documentService) decodeTags(documentID string, raw *string) []string {
	if raw == nil {
		return []string{}
	}

	var tags []string
	if err := json.Unmarshal([]byte(*raw), &tags); err != nil || tags == nil {
		if err != nil {
			s.logger.Warn("Unparseable tag list on document", "document_id", documentID, "error", err)
		}
		return []string{}
	}

	return tags
}
