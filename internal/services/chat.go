package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/paperchat/backend/internal/llm"
	"github.com/paperchat/backend/internal/models"
	"github.com/paperchat/backend/internal/pdfcache"
	"github.com/paperchat/backend/internal/repository"
	"github.com/paperchat/backend/internal/storage"
	"github.com/paperchat/backend/internal/utils"
)

type ChatService interface {
	// Chat runs one conversation turn against the document and returns the
	// assistant reply with token usage.
	Chat(ctx context.Context, documentID string, messages []models.ChatMessage) (*models.ChatResponse, error)

	// History returns the document's messages in ascending creation order.
	History(ctx context.Context, documentID string) ([]models.StoredMessage, error)
}

type chatService struct {
	repo   repository.Repository
	cache  *pdfcache.Cache
	llm    llm.Client
	logger *utils.Logger
}

func NewChatService(repo repository.Repository, cache *pdfcache.Cache, llmClient llm.Client, logger *utils.Logger) ChatService {
	return &chatService{
		repo:   repo,
		cache:  cache,
		llm:    llmClient,
		logger: logger,
	}
}

func (s *chatService) Chat(ctx context.Context, documentID string, messages []models.ChatMessage) (*models.ChatResponse, error) {
	conversationID, err := s.repo.GetOrCreateConversation(ctx, documentID)
	if err != nil {
		s.logger.Error("Failed to resolve conversation", "error", err, "document_id", documentID)
		return nil, utils.NewDatabaseError("Failed to resolve conversation")
	}

	pdfBase64, err := s.cache.GetOrCompute(ctx, documentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, utils.NewNotFoundError(fmt.Sprintf("Document not found: %s", documentID))
		}
		s.logger.Error("Failed to load PDF", "error", err, "document_id", documentID)
		return nil, utils.NewStorageError("Failed to load document")
	}

	result, err := s.llm.Chat(ctx, buildMessages(pdfBase64, messages))
	if err != nil {
		s.logger.Error("Chat completion failed", "error", err, "document_id", documentID)
		return nil, utils.NewExternalAPIError(fmt.Sprintf("Chat completion failed: %v", err))
	}

	// The model has already run at this point; a persistence failure is
	// surfaced, and a caller retry re-runs the whole turn. That only appends
	// more messages, so the data stays consistent.
	if n := len(messages); n > 0 && messages[n-1].Role == "user" {
		if _, err := s.repo.SaveMessage(ctx, conversationID, "user", messages[n-1].Content); err != nil {
			s.logger.Error("Failed to save user message", "error", err, "conversation_id", conversationID)
			return nil, utils.NewDatabaseError("Failed to save message")
		}
	}

	if _, err := s.repo.SaveMessage(ctx, conversationID, "assistant", result.Text); err != nil {
		s.logger.Error("Failed to save assistant message", "error", err, "conversation_id", conversationID)
		return nil, utils.NewDatabaseError("Failed to save message")
	}

	usage := result.Usage
	return &models.ChatResponse{
		Response: result.Text,
		Usage:    &usage,
	}, nil
}

func (s *chatService) History(ctx context.Context, documentID string) ([]models.StoredMessage, error) {
	messages, err := s.repo.GetConversationMessages(ctx, documentID)
	if err != nil {
		s.logger.Error("Failed to read chat history", "error", err, "document_id", documentID)
		return nil, utils.NewDatabaseError("Failed to read chat history")
	}

	return messages, nil
}

// buildMessages renders caller turns for the provider. Only the turn at index
// zero, and only when it is a user turn, carries the document attachment; it
// re-establishes the document context once, and later turns ride on the
// provider-side prompt cache.
func buildMessages(pdfBase64 string, messages []models.ChatMessage) []anthropic.MessageParam {
	rendered := make([]anthropic.MessageParam, 0, len(messages))
	for i, msg := range messages {
		if i == 0 && msg.Role == "user" {
			rendered = append(rendered, llm.PDFMessage(pdfBase64, msg.Content, true))
			continue
		}
		rendered = append(rendered, llm.TextMessage(msg.Role, msg.Content))
	}
	return rendered
}
