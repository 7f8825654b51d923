package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/paperchat/backend/internal/llm"
	"github.com/paperchat/backend/internal/models"
	"github.com/paperchat/backend/internal/pdfcache"
	"github.com/paperchat/backend/internal/repository"
	"github.com/paperchat/backend/internal/router"
	"github.com/paperchat/backend/internal/services"
	"github.com/paperchat/backend/internal/storage"
	"github.com/paperchat/backend/internal/utils"
)

const samplePDF = "%PDF-1.4 end to end test payload 1234"

// stubLLM answers every call with a canned response so the HTTP stack can be
// exercised without a network dependency.
type stubLLM struct {
	chatCalls int
}

func (s *stubLLM) Chat(context.Context, []anthropic.MessageParam) (*llm.ChatResult, error) {
	s.chatCalls++
	return &llm.ChatResult{
		Text:  "The report covers quarterly results (page 1).",
		Usage: models.Usage{InputTokens: 42, OutputTokens: 11},
	}, nil
}

func (s *stubLLM) ExtractMetadata(context.Context, string) (*llm.DocumentMetadata, error) {
	return &llm.DocumentMetadata{
		Keywords: []string{"quarterly", "results"},
		Topics:   []string{"finance"},
	}, nil
}

type testEnv struct {
	handler http.Handler
	repo    repository.Repository
	llm     *stubLLM
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := utils.NewLogger("error")

	db, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("../db/migrations/000001_init.up.sql")
	require.NoError(t, err)
	for _, stmt := range strings.Split(string(schema), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	repo := repository.NewRepository(db, logger)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	llmClient := &stubLLM{}
	cache := pdfcache.New(store, pdfcache.DefaultCapacity, pdfcache.DefaultTTL)

	metadataSvc := services.NewMetadataService(repo, store, llmClient, logger)
	documentSvc := services.NewDocumentService(repo, store, metadataSvc, logger)
	chatSvc := services.NewChatService(repo, cache, llmClient, logger)

	handler := router.NewRouter(documentSvc, chatSvc, metadataSvc, logger, 50<<20)

	return &testEnv{handler: handler, repo: repo, llm: llmClient}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func multipartPDF(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func (e *testEnv) uploadPDF(t *testing.T) string {
	t.Helper()
	body, contentType := multipartPDF(t, "pdf", "report.pdf", samplePDF)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := e.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.DocumentID)
	return resp.DocumentID
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestUploadReturnsDocumentID(t *testing.T) {
	env := newTestEnv(t)
	env.uploadPDF(t)
}

func TestUploadWithoutPDFField(t *testing.T) {
	env := newTestEnv(t)
	body, contentType := multipartPDF(t, "file", "report.pdf", samplePDF)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := env.do(t, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "BAD_REQUEST", resp.Error)
	assert.Equal(t, "No PDF file found", resp.Message)
}

func TestUploadRejectsNonPDFContent(t *testing.T) {
	env := newTestEnv(t)
	body, contentType := multipartPDF(t, "pdf", "notes.pdf", "just plain text")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := env.do(t, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", decodeError(t, rec).Error)
}

func TestChatUnknownDocument(t *testing.T) {
	env := newTestEnv(t)
	payload := `{"document_id":"no-such-doc","messages":[{"role":"user","content":"hello"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := env.do(t, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Error)
	assert.Zero(t, env.llm.chatCalls, "a missing document never reaches the model")
}

func TestChatMissingDocumentID(t *testing.T) {
	env := newTestEnv(t)
	payload := `{"messages":[{"role":"user","content":"hello"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := env.do(t, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", decodeError(t, rec).Error)
}

func TestChatMalformedBody(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")

	rec := env.do(t, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadThenChat(t *testing.T) {
	env := newTestEnv(t)
	docID := env.uploadPDF(t)

	payload := fmt.Sprintf(`{"document_id":%q,"messages":[{"role":"user","content":"what does it say?"}]}`, docID)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Response, "(page 1)")
	require.NotNil(t, resp.Usage)
	assert.Equal(t, int64(42), resp.Usage.InputTokens)
	assert.Equal(t, int64(11), resp.Usage.OutputTokens)
}

func TestChatHistoryAfterTurn(t *testing.T) {
	env := newTestEnv(t)
	docID := env.uploadPDF(t)

	payload := fmt.Sprintf(`{"document_id":%q,"messages":[{"role":"user","content":"summarize this"}]}`, docID)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	require.Equal(t, http.StatusOK, env.do(t, req).Code)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/chat/history/"+docID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var messages []models.StoredMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &messages))
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "summarize this", messages[0].Content)
	assert.Equal(t, "assistant", messages[1].Role)
}

func TestChatHistoryEmptyDocument(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/chat/history/fresh-doc", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetDocumentBytes(t *testing.T) {
	env := newTestEnv(t)
	docID := env.uploadPDF(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/"+docID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="report.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, samplePDF, rec.Body.String())
}

func TestGetDocumentMissing(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/no-such-doc", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Error)
}

func TestListDocuments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Inserted directly so the test does not race the detached enrichment
	// that a real upload kicks off.
	require.NoError(t, env.repo.CreateDocument(ctx, "doc-1", "tagged.pdf", 4))
	require.NoError(t, env.repo.UpdateDocumentMetadata(ctx, "doc-1", `["alpha","beta"]`, `["gamma"]`))
	require.NoError(t, env.repo.CreateDocument(ctx, "doc-2", "bare.pdf", 0))

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []models.DocumentSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 2)

	byID := map[string]models.DocumentSummary{}
	for _, s := range summaries {
		byID[s.ID] = s
	}

	assert.Equal(t, []string{"alpha", "beta"}, byID["doc-1"].Keywords)
	assert.Equal(t, []string{"gamma"}, byID["doc-1"].Topics)
	assert.Equal(t, 4, byID["doc-1"].PageCount)

	assert.Equal(t, []string{}, byID["doc-2"].Keywords, "unenriched documents list empty tags, not null")
	assert.Equal(t, []string{}, byID["doc-2"].Topics)
}

func TestListDocumentsInvalidLimit(t *testing.T) {
	env := newTestEnv(t)

	for _, limit := range []string{"abc", "0", "-3"} {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/documents?limit="+limit, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}

func TestBackfillCounts(t *testing.T) {
	env := newTestEnv(t)
	env.uploadPDF(t)
	ctx := context.Background()

	// A document row with no stored blob; its enrichment must fail.
	require.NoError(t, env.repo.CreateDocument(ctx, "orphan", "orphan.pdf", 0))

	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/metadata/backfill", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.BackfillResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, resp.Processed, resp.Succeeded+resp.Failed)
	assert.GreaterOrEqual(t, resp.Failed, 1, "the blobless document cannot be enriched")
}
