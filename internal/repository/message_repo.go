package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/talenthub/internal/db"
	"github.com/oggyb/talenthub/internal/utils/pagination"
)

// MessageRepository stores immutable messages.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// Create inserts msg. When it belongs to a conversation, the conversation's
// updated_at is moved forward to the message time in the same transaction.
// A send that commits after a newer one never moves it back.
func (r *MessageRepository) Create(ctx context.Context, msg *db.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		if msg.ConversationID == nil {
			return nil
		}
		return tx.Model(&db.Conversation{}).
			Where("id = ? AND updated_at < ?", *msg.ConversationID, msg.CreatedAt).
			UpdateColumn("updated_at", msg.CreatedAt).Error
	})
}

// ListByConversation returns the whole history oldest first.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// PageByConversation returns up to limit messages after the cursor, oldest
// first, plus a token for the next page when more remain.
func (r *MessageRepository) PageByConversation(
	ctx context.Context,
	conversationID string,
	paginationToken *string,
	limit int,
) ([]db.Message, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Limit(limit + 1)

	if !cursor.IsZero() {
		ts := cursor.At()
		query = query.Where(
			"(created_at > ? OR (created_at = ? AND id > ?))",
			ts, ts, cursor.ID,
		)
	}

	var msgs []db.Message
	if err := query.Find(&msgs).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(msgs) > limit {
		last := msgs[limit-1]
		token, _ := pagination.Encode(pagination.From(last.ID, last.CreatedAt))
		nextToken = &token
		msgs = msgs[:limit]
	}
	return msgs, nextToken, nil
}

// Between returns every message exchanged between a and b in either
// direction, oldest first.
func (r *MessageRepository) Between(ctx context.Context, a, b string) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
