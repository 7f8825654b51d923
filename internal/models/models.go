package models

// Document is one uploaded PDF and its enrichment metadata. Keywords and
// Topics hold serialized JSON arrays of strings; nil means the document has
// not been enriched yet, which is distinct from an empty array.
type Document struct {
	ID         string  `json:"id" db:"id"`
	Filename   string  `json:"filename" db:"filename"`
	Keywords   *string `json:"-" db:"keywords"`
	Topics     *string `json:"-" db:"topics"`
	PageCount  int     `json:"page_count" db:"page_count"`
	UploadedAt string  `json:"uploaded_at" db:"uploaded_at"`
	CreatedAt  string  `json:"created_at" db:"created_at"`
	UpdatedAt  string  `json:"updated_at" db:"updated_at"`
}

// DocumentSummary is the listing-endpoint view of a document, with keyword
// and topic arrays already decoded. Missing or unparseable metadata decodes
// to empty lists, never null.
type DocumentSummary struct {
	ID         string   `json:"id"`
	Filename   string   `json:"filename"`
	Keywords   []string `json:"keywords"`
	Topics     []string `json:"topics"`
	PageCount  int      `json:"page_count"`
	UploadedAt string   `json:"uploaded_at"`
}

// Conversation is the chat thread associated with a document. Its DocumentID
// never changes after creation.
type Conversation struct {
	ID         string  `json:"id" db:"id"`
	DocumentID string  `json:"document_id" db:"document_id"`
	Title      *string `json:"title,omitempty" db:"title"`
	CreatedAt  string  `json:"created_at" db:"created_at"`
	UpdatedAt  string  `json:"updated_at" db:"updated_at"`
}

// StoredMessage is one persisted chat turn half, as returned by the history
// endpoint.
type StoredMessage struct {
	ID        string `json:"id" db:"id"`
	Role      string `json:"role" db:"role"`
	Content   string `json:"content" db:"content"`
	CreatedAt string `json:"created_at" db:"created_at"`
}

// ChatMessage is one caller-supplied turn in a chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	DocumentID string        `json:"document_id"`
	Messages   []ChatMessage `json:"messages"`
}

// Usage carries the provider's token accounting for one chat call. The cache
// counters are only present when the provider reports them.
type Usage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens,omitempty"`
}

type ChatResponse struct {
	Response string `json:"response"`
	Usage    *Usage `json:"usage,omitempty"`
}

type UploadResponse struct {
	DocumentID string `json:"document_id"`
}

type BackfillResponse struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ErrorResponse is the envelope for every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
