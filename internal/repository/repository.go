package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/paperchat/backend/internal/models"
	"github.com/paperchat/backend/internal/utils"
)

// timeLayout is a fixed-width RFC3339 variant. Timestamps are stored as TEXT
// and message ordering relies on ORDER BY created_at, so the encoding must
// sort lexicographically; time.RFC3339Nano trims trailing zeros and does not.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nowString() string {
	return time.Now().UTC().Format(timeLayout)
}

// Repository is the single writer of truth for documents, conversations and
// messages. Orchestrators never touch the tables directly.
type Repository interface {
	CreateDocument(ctx context.Context, id, filename string, pageCount int) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListRecentDocuments(ctx context.Context, limit int) ([]models.Document, error)
	UpdateDocumentMetadata(ctx context.Context, id, keywordsJSON, topicsJSON string) error

	GetOrCreateConversation(ctx context.Context, documentID string) (string, error)
	DeleteConversation(ctx context.Context, conversationID string) error

	SaveMessage(ctx context.Context, conversationID, role, content string) (string, error)
	GetConversationMessages(ctx context.Context, documentID string) ([]models.StoredMessage, error)
}

type repository struct {
	db     *sqlx.DB
	logger *utils.Logger
}

func NewRepository(db *sqlx.DB, logger *utils.Logger) Repository {
	return &repository{db: db, logger: logger}
}

func (r *repository) CreateDocument(ctx context.Context, id, filename string, pageCount int) error {
	now := nowString()

	query := `
		INSERT INTO documents (id, filename, page_count, uploaded_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, id, filename, pageCount, now, now, now)
	return err
}

// GetDocumentByID returns nil without error when no document exists.
func (r *repository) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document

	query := `
		SELECT id, filename, keywords, topics, page_count, uploaded_at, created_at, updated_at
		FROM documents
		WHERE id = ?
	`

	err := r.db.GetContext(ctx, &doc, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &doc, nil
}

func (r *repository) ListRecentDocuments(ctx context.Context, limit int) ([]models.Document, error) {
	docs := []models.Document{}

	query := `
		SELECT id, filename, keywords, topics, page_count, uploaded_at, created_at, updated_at
		FROM documents
		ORDER BY uploaded_at DESC
		LIMIT ?
	`

	if err := r.db.SelectContext(ctx, &docs, query, limit); err != nil {
		return nil, err
	}

	return docs, nil
}

// UpdateDocumentMetadata sets keywords and topics together in one statement,
// so a reader never observes one without the other.
func (r *repository) UpdateDocumentMetadata(ctx context.Context, id, keywordsJSON, topicsJSON string) error {
	query := `
		UPDATE documents
		SET keywords = ?, topics = ?, updated_at = ?
		WHERE id = ?
	`

	res, err := r.db.ExecContext(ctx, query, keywordsJSON, topicsJSON, nowString(), id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("document %s not found", id)
	}

	return nil
}

// GetOrCreateConversation returns the most recent conversation for the
// document, creating one when none exists. A document row missing for the id
// (data that predates document records) is synthesized with a placeholder
// filename so the foreign key always resolves.
//
// Two concurrent calls for a brand-new document can both insert; readers
// always pick the most recent conversation, so the extra row is inert.
func (r *repository) GetOrCreateConversation(ctx context.Context, documentID string) (string, error) {
	doc, err := r.GetDocumentByID(ctx, documentID)
	if err != nil {
		return "", err
	}
	if doc == nil {
		r.logger.Warn("Synthesizing document record for legacy id", "document_id", documentID)
		if err := r.CreateDocument(ctx, documentID, "document.pdf", 0); err != nil {
			return "", err
		}
	}

	var conversationID string
	err = r.db.GetContext(ctx, &conversationID,
		`SELECT id FROM conversations WHERE document_id = ? ORDER BY created_at DESC LIMIT 1`,
		documentID,
	)

	switch {
	case err == nil:
		_, err = r.db.ExecContext(ctx,
			`UPDATE conversations SET updated_at = ? WHERE id = ?`,
			nowString(), conversationID,
		)
		if err != nil {
			return "", err
		}
		return conversationID, nil

	case errors.Is(err, sql.ErrNoRows):
		conversationID = utils.GenerateID()
		now := nowString()
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO conversations (id, document_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			conversationID, documentID, now, now,
		)
		if err != nil {
			return "", err
		}
		return conversationID, nil

	default:
		return "", err
	}
}

// DeleteConversation removes a conversation and all of its messages. This is
// the only delete in the schema; the chat-turn path never removes rows.
func (r *repository) DeleteConversation(ctx context.Context, conversationID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE conversation_id = ?`, conversationID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, conversationID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *repository) SaveMessage(ctx context.Context, conversationID, role, content string) (string, error) {
	messageID := utils.GenerateID()

	query := `
		INSERT INTO chat_messages (id, conversation_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, messageID, conversationID, role, content, nowString())
	if err != nil {
		return "", err
	}

	return messageID, nil
}

// GetConversationMessages returns every message across the document's
// conversations in ascending creation order.
func (r *repository) GetConversationMessages(ctx context.Context, documentID string) ([]models.StoredMessage, error) {
	messages := []models.StoredMessage{}

	query := `
		SELECT m.id, m.role, m.content, m.created_at
		FROM chat_messages m
		JOIN conversations c ON m.conversation_id = c.id
		WHERE c.document_id = ?
		ORDER BY m.created_at ASC
	`

	if err := r.db.SelectContext(ctx, &messages, query, documentID); err != nil {
		return nil, err
	}

	return messages, nil
}
