package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/paperchat/backend/internal/config"
	"github.com/paperchat/backend/internal/utils"
)

// s3Storage is the remote-object-store variant of Storage, using the same
// pdfs/ and metadata/ key layout as the local variant.
type s3Storage struct {
	client     *minio.Client
	bucketName string
}

func NewS3Storage(cfg *config.Config) (Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	// Ensure bucket exists
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.S3BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, cfg.S3BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &s3Storage{
		client:     client,
		bucketName: cfg.S3BucketName,
	}, nil
}

func pdfKey(documentID string) string {
	return "pdfs/" + documentID + ".pdf"
}

func metadataKey(documentID string) string {
	return "metadata/" + documentID + ".json"
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (s *s3Storage) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(
		ctx,
		s.bucketName,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

func (s *s3Storage) get(ctx context.Context, key string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer object.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(object); err != nil {
		// minio defers missing-key errors to the first read
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read object data: %w", err)
	}

	return buf.Bytes(), nil
}

func (s *s3Storage) Store(ctx context.Context, _ string, data []byte) (string, error) {
	documentID := utils.GenerateID()

	if err := s.put(ctx, pdfKey(documentID), data, "application/pdf"); err != nil {
		return "", err
	}

	return documentID, nil
}

func (s *s3Storage) Fetch(ctx context.Context, documentID string) ([]byte, error) {
	data, err := s.get(ctx, pdfKey(documentID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, documentID)
		}
		return nil, err
	}
	return data, nil
}

func (s *s3Storage) FetchBase64(ctx context.Context, documentID string) (string, error) {
	data, err := s.Fetch(ctx, documentID)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (s *s3Storage) Exists(ctx context.Context, documentID string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucketName, pdfKey(documentID), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return true, nil
}

func (s *s3Storage) Delete(ctx context.Context, documentID string) error {
	for _, key := range []string{pdfKey(documentID), metadataKey(documentID)} {
		if err := s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to delete from S3: %w", err)
		}
	}
	return nil
}

func (s *s3Storage) StoreMetadata(ctx context.Context, documentID string, data []byte) error {
	return s.put(ctx, metadataKey(documentID), data, "application/json")
}

func (s *s3Storage) FetchMetadata(ctx context.Context, documentID string) ([]byte, error) {
	data, err := s.get(ctx, metadataKey(documentID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}
