package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no blob exists for a document id. Callers
// match it with errors.Is.
var ErrNotFound = errors.New("document not found")

// Storage is the blob store holding raw PDF bytes keyed by generated
// document id, plus an optional metadata sidecar per document. Implementations
// are chosen at construction time; callers never inspect the concrete type.
type Storage interface {
	// Store persists the PDF bytes and returns the new document id.
	Store(ctx context.Context, filename string, data []byte) (string, error)

	// Fetch returns the raw PDF bytes, or ErrNotFound.
	Fetch(ctx context.Context, documentID string) ([]byte, error)

	// FetchBase64 returns the PDF in the base64 text form the model API
	// consumes, or ErrNotFound.
	FetchBase64(ctx context.Context, documentID string) (string, error)

	Exists(ctx context.Context, documentID string) (bool, error)

	// Delete removes the PDF and any metadata sidecar. Deleting an absent
	// document is not an error.
	Delete(ctx context.Context, documentID string) error

	StoreMetadata(ctx context.Context, documentID string, data []byte) error

	// FetchMetadata returns nil without error when no sidecar exists.
	FetchMetadata(ctx context.Context, documentID string) ([]byte, error)
}
