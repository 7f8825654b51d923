package config

import (
	"fmt"
	"os"
	"strconv"
)

const defaultMaxFileSize = 50 * 1024 * 1024

type Config struct {
	Port         string
	DatabasePath string
	LogLevel     string

	// Blob storage
	StorageBackend string // "local" or "s3"
	UploadDir      string

	// S3 (used when StorageBackend is "s3")
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3BucketName      string
	S3UseSSL          bool

	// Anthropic
	AnthropicAPIKey string
	AnthropicModel  string

	// Upload limits
	MaxFileSize int64
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "3001"),
		DatabasePath:      getEnv("DATABASE_PATH", "data/chat_history.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		StorageBackend:    getEnv("STORAGE_BACKEND", "local"),
		UploadDir:         getEnv("UPLOAD_DIR", "./uploads"),
		S3Endpoint:        getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", "minioadmin"),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", "minioadmin"),
		S3BucketName:      getEnv("S3_BUCKET_NAME", "documents"),
		S3UseSSL:          getEnv("S3_USE_SSL", "false") == "true",
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:    getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
	}

	maxFileSize, err := strconv.ParseInt(getEnv("MAX_FILE_SIZE", strconv.Itoa(defaultMaxFileSize)), 10, 64)
	if err != nil || maxFileSize <= 0 {
		return nil, fmt.Errorf("MAX_FILE_SIZE must be a positive integer of bytes, got %q", os.Getenv("MAX_FILE_SIZE"))
	}
	cfg.MaxFileSize = maxFileSize

	if cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}

	if cfg.StorageBackend != "local" && cfg.StorageBackend != "s3" {
		return nil, fmt.Errorf("STORAGE_BACKEND must be \"local\" or \"s3\", got %q", cfg.StorageBackend)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
