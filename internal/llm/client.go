// Package llm wraps the Anthropic messages API behind the two operations the
// orchestrators need: a document-grounded chat call and a structured
// keyword/topic extraction call.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/paperchat/backend/internal/models"
	"github.com/paperchat/backend/internal/utils"
)

const (
	defaultModel     = "claude-sonnet-4-5-20250929"
	chatMaxTokens    = 4096
	extractMaxTokens = 1024
)

// SystemPrompt is sent on every chat call. The page-citation format is a
// contract with the frontend's page-link parser; do not reword it.
const SystemPrompt = `You are an AI assistant helping users understand research papers.

Guidelines:
- CRITICAL: Always format page references using EXACTLY this format: (page X) for single pages or (page X, page Y) for multiple pages
- ONLY state information you can actually find in the PDF content
- NEVER make assumptions or educated guesses
- If you cannot find specific information, clearly state "I cannot find this information in the paper"
- Use markdown formatting for better readability
- Be concise and clear in your explanations`

const extractionPrompt = `Extract keywords and topics from this PDF document. Analyze the content and return ONLY a valid JSON object with this exact format: {"keywords": ["keyword1", "keyword2", ...], "topics": ["topic1", "topic2", ...]}. Provide 5-10 relevant keywords and 3-5 main topics. No additional text, just the JSON.`

// ChatResult is the decoded outcome of one chat call: the text segments of
// the reply joined with newlines, plus the provider's token accounting.
type ChatResult struct {
	Text  string
	Usage models.Usage
}

// DocumentMetadata is the structured extraction result.
type DocumentMetadata struct {
	Keywords []string `json:"keywords"`
	Topics   []string `json:"topics"`
}

// Client is the gateway consumed by the chat and backfill orchestrators.
type Client interface {
	Chat(ctx context.Context, messages []anthropic.MessageParam) (*ChatResult, error)
	ExtractMetadata(ctx context.Context, pdfBase64 string) (*DocumentMetadata, error)
}

type anthropicClient struct {
	client *anthropic.Client
	model  anthropic.Model
	logger *utils.Logger
}

func NewClient(apiKey, model string, logger *utils.Logger) (Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	if model == "" {
		model = defaultModel
	}

	return &anthropicClient{
		client: &client,
		model:  anthropic.Model(model),
		logger: logger.With("component", "llm"),
	}, nil
}

// PDFMessage renders a user turn carrying the document and its question. The
// cache-control hint marks the document block for provider-side reuse on
// later turns of the same conversation.
func PDFMessage(pdfBase64, text string, cached bool) anthropic.MessageParam {
	document := &anthropic.DocumentBlockParam{
		Source: anthropic.DocumentBlockParamSourceUnion{
			OfBase64: &anthropic.Base64PDFSourceParam{
				Data: pdfBase64,
			},
		},
	}
	if cached {
		document.CacheControl = anthropic.NewCacheControlEphemeralParam()
	}

	return anthropic.MessageParam{
		Role: anthropic.MessageParamRoleUser,
		Content: []anthropic.ContentBlockParamUnion{
			{OfDocument: document},
			{OfText: &anthropic.TextBlockParam{Text: text}},
		},
	}
}

// TextMessage renders a text-only turn for the given role.
func TextMessage(role, text string) anthropic.MessageParam {
	return anthropic.MessageParam{
		Role: anthropic.MessageParamRole(role),
		Content: []anthropic.ContentBlockParamUnion{
			{OfText: &anthropic.TextBlockParam{Text: text}},
		},
	}
}

func systemBlocks() []anthropic.TextBlockParam {
	return []anthropic.TextBlockParam{{
		Text:         SystemPrompt,
		CacheControl: anthropic.NewCacheControlEphemeralParam(),
	}}
}

func (c *anthropicClient) Chat(ctx context.Context, messages []anthropic.MessageParam) (*ChatResult, error) {
	c.logger.Debug("Sending chat request", "model", c.model, "message_count", len(messages))

	response, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: chatMaxTokens,
		Messages:  messages,
		System:    systemBlocks(),
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic messages API: %w", err)
	}

	text, err := joinTextSegments(response)
	if err != nil {
		return nil, err
	}

	return &ChatResult{
		Text: text,
		Usage: models.Usage{
			InputTokens:              response.Usage.InputTokens,
			OutputTokens:             response.Usage.OutputTokens,
			CacheCreationInputTokens: response.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     response.Usage.CacheReadInputTokens,
		},
	}, nil
}

func (c *anthropicClient) ExtractMetadata(ctx context.Context, pdfBase64 string) (*DocumentMetadata, error) {
	response, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: extractMaxTokens,
		Messages:  []anthropic.MessageParam{PDFMessage(pdfBase64, extractionPrompt, false)},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic messages API: %w", err)
	}

	if len(response.Content) == 0 || response.Content[0].Type != "text" {
		return nil, fmt.Errorf("no text content in extraction response")
	}

	return decodeMetadata(response.Content[0].Text)
}

// decodeMetadata parses the extraction reply. Both keys must be present: a
// reply like {} is a malformed extraction, not an empty one, and failing here
// keeps the document eligible for the next backfill attempt.
func decodeMetadata(raw string) (*DocumentMetadata, error) {
	var metadata DocumentMetadata
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata JSON: %w (response was: %s)", err, raw)
	}

	if metadata.Keywords == nil || metadata.Topics == nil {
		return nil, fmt.Errorf("metadata JSON is missing keywords or topics (response was: %s)", raw)
	}

	return &metadata, nil
}

// joinTextSegments concatenates the text blocks of a reply with newlines. A
// reply may contain several text blocks; any other block kind is a decode
// failure since no tools are offered.
func joinTextSegments(response *anthropic.Message) (string, error) {
	parts := make([]string, 0, len(response.Content))
	for _, block := range response.Content {
		if block.Type != "text" {
			return "", fmt.Errorf("unexpected %q content block in response", block.Type)
		}
		parts = append(parts, block.Text)
	}
	return strings.Join(parts, "\n"), nil
}

// stripCodeFence removes optional ```json fences some replies wrap around
// the requested JSON object.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
