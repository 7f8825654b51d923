package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paperchat/backend/internal/utils"
)

// localStorage keeps PDFs under <base>/pdfs/<id>.pdf and metadata sidecars
// under <base>/metadata/<id>.json.
type localStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (Storage, error) {
	for _, dir := range []string{basePath, filepath.Join(basePath, "pdfs"), filepath.Join(basePath, "metadata")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	return &localStorage{basePath: basePath}, nil
}

func (s *localStorage) pdfPath(documentID string) string {
	return filepath.Join(s.basePath, "pdfs", documentID+".pdf")
}

func (s *localStorage) metadataPath(documentID string) string {
	return filepath.Join(s.basePath, "metadata", documentID+".json")
}

func (s *localStorage) Store(_ context.Context, _ string, data []byte) (string, error) {
	documentID := utils.GenerateID()

	if err := os.WriteFile(s.pdfPath(documentID), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write PDF: %w", err)
	}

	return documentID, nil
}

func (s *localStorage) Fetch(_ context.Context, documentID string) ([]byte, error) {
	data, err := os.ReadFile(s.pdfPath(documentID))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	return data, nil
}

func (s *localStorage) FetchBase64(ctx context.Context, documentID string) (string, error) {
	data, err := s.Fetch(ctx, documentID)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

func (s *localStorage) Exists(_ context.Context, documentID string) (bool, error) {
	_, err := os.Stat(s.pdfPath(documentID))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *localStorage) Delete(_ context.Context, documentID string) error {
	for _, path := range []string{s.pdfPath(documentID), s.metadataPath(documentID)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
	}
	return nil
}

func (s *localStorage) StoreMetadata(_ context.Context, documentID string, data []byte) error {
	if err := os.WriteFile(s.metadataPath(documentID), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

func (s *localStorage) FetchMetadata(_ context.Context, documentID string) ([]byte, error) {
	data, err := os.ReadFile(s.metadataPath(documentID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	return data, nil
}
