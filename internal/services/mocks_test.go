package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/paperchat/backend/internal/llm"
	"github.com/paperchat/backend/internal/models"
	"github.com/paperchat/backend/internal/storage"
	"github.com/paperchat/backend/internal/utils"
)

// fakeRepo is an in-memory repository.Repository.
type fakeRepo struct {
	docs          map[string]*models.Document
	conversations map[string]string // document id -> conversation id
	messages      map[string][]models.StoredMessage

	saveMessageErr error
	listErr        error
	metadataErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		docs:          map[string]*models.Document{},
		conversations: map[string]string{},
		messages:      map[string][]models.StoredMessage{},
	}
}

func (r *fakeRepo) CreateDocument(_ context.Context, id, filename string, pageCount int) error {
	r.docs[id] = &models.Document{ID: id, Filename: filename, PageCount: pageCount}
	return nil
}

func (r *fakeRepo) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	return r.docs[id], nil
}

func (r *fakeRepo) ListRecentDocuments(_ context.Context, limit int) ([]models.Document, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	docs := []models.Document{}
	for _, doc := range r.docs {
		docs = append(docs, *doc)
		if len(docs) == limit {
			break
		}
	}
	return docs, nil
}

func (r *fakeRepo) UpdateDocumentMetadata(_ context.Context, id, keywordsJSON, topicsJSON string) error {
	if r.metadataErr != nil {
		return r.metadataErr
	}
	doc, ok := r.docs[id]
	if !ok {
		return fmt.Errorf("document %s not found", id)
	}
	doc.Keywords = &keywordsJSON
	doc.Topics = &topicsJSON
	return nil
}

func (r *fakeRepo) GetOrCreateConversation(_ context.Context, documentID string) (string, error) {
	if _, ok := r.docs[documentID]; !ok {
		r.docs[documentID] = &models.Document{ID: documentID, Filename: "document.pdf"}
	}
	if id, ok := r.conversations[documentID]; ok {
		return id, nil
	}
	id := utils.GenerateID()
	r.conversations[documentID] = id
	return id, nil
}

func (r *fakeRepo) DeleteConversation(_ context.Context, conversationID string) error {
	delete(r.messages, conversationID)
	return nil
}

func (r *fakeRepo) SaveMessage(_ context.Context, conversationID, role, content string) (string, error) {
	if r.saveMessageErr != nil {
		return "", r.saveMessageErr
	}
	id := utils.GenerateID()
	r.messages[conversationID] = append(r.messages[conversationID], models.StoredMessage{
		ID:      id,
		Role:    role,
		Content: content,
	})
	return id, nil
}

func (r *fakeRepo) GetConversationMessages(_ context.Context, documentID string) ([]models.StoredMessage, error) {
	conversationID, ok := r.conversations[documentID]
	if !ok {
		return []models.StoredMessage{}, nil
	}
	return r.messages[conversationID], nil
}

// fakeStore is an in-memory storage.Storage.
type fakeStore struct {
	blobs    map[string][]byte
	metadata map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		blobs:    map[string][]byte{},
		metadata: map[string][]byte{},
	}
}

func (s *fakeStore) Store(_ context.Context, _ string, data []byte) (string, error) {
	id := utils.GenerateID()
	s.blobs[id] = data
	return id, nil
}

func (s *fakeStore) Fetch(_ context.Context, documentID string) ([]byte, error) {
	data, ok := s.blobs[documentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, documentID)
	}
	return data, nil
}

func (s *fakeStore) FetchBase64(ctx context.Context, documentID string) (string, error) {
	data, err := s.Fetch(ctx, documentID)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (s *fakeStore) Exists(_ context.Context, documentID string) (bool, error) {
	_, ok := s.blobs[documentID]
	return ok, nil
}

func (s *fakeStore) Delete(_ context.Context, documentID string) error {
	delete(s.blobs, documentID)
	delete(s.metadata, documentID)
	return nil
}

func (s *fakeStore) StoreMetadata(_ context.Context, documentID string, data []byte) error {
	s.metadata[documentID] = data
	return nil
}

func (s *fakeStore) FetchMetadata(_ context.Context, documentID string) ([]byte, error) {
	return s.metadata[documentID], nil
}

// fakeLLM is a scriptable llm.Client recording every call.
type fakeLLM struct {
	chatCalls  [][]anthropic.MessageParam
	chatResult *llm.ChatResult
	chatErr    error

	extractCalls    int
	extractFailures int // fail this many extract calls before succeeding
	extractResult   *llm.DocumentMetadata
	extractErr      error
}

func (f *fakeLLM) Chat(_ context.Context, messages []anthropic.MessageParam) (*llm.ChatResult, error) {
	f.chatCalls = append(f.chatCalls, messages)
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	if f.chatResult != nil {
		return f.chatResult, nil
	}
	return &llm.ChatResult{
		Text:  "stub reply (page 1)",
		Usage: models.Usage{InputTokens: 42, OutputTokens: 7},
	}, nil
}

func (f *fakeLLM) ExtractMetadata(context.Context, string) (*llm.DocumentMetadata, error) {
	f.extractCalls++
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	if f.extractCalls <= f.extractFailures {
		return nil, errors.New("transient extraction failure")
	}
	if f.extractResult != nil {
		return f.extractResult, nil
	}
	return &llm.DocumentMetadata{Keywords: []string{"a", "b"}, Topics: []string{"x"}}, nil
}

func testLogger() *utils.Logger {
	return utils.NewLogger("error")
}
