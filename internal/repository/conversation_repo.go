package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/talenthub/internal/db"
)

// ConversationRepository provides data access for conversations and their
// participant join rows.
type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(database *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: database}
}

// loaded preloads participants with their profile summaries.
func loaded(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Participants.User.Student").
		Preload("Participants.User.Business")
}

// Get loads one conversation with participants.
func (r *ConversationRepository) Get(ctx context.Context, id string) (*db.Conversation, error) {
	var c db.Conversation
	if err := loaded(r.db.WithContext(ctx)).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByKey loads the conversation registered under a participant fingerprint.
// Returns gorm.ErrRecordNotFound when there is none.
func (r *ConversationRepository) FindByKey(ctx context.Context, key string) (*db.Conversation, error) {
	var c db.Conversation
	if err := loaded(r.db.WithContext(ctx)).First(&c, "participant_key = ?", key).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts the conversation and every participant row atomically.
//
// Behavior:
//   - A concurrent insert for the same key fails with gorm.ErrDuplicatedKey
//     and leaves nothing behind.
//   - The returned conversation is reloaded with participants.
func (r *ConversationRepository) Create(ctx context.Context, key string, participantIDs []string) (*db.Conversation, error) {
	conv := db.Conversation{ParticipantKey: key, ParticipantCount: len(participantIDs)}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		rows := make([]db.ConversationParticipant, 0, len(participantIDs))
		for _, id := range participantIDs {
			rows = append(rows, db.ConversationParticipant{ConversationID: conv.ID, UserID: id})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, conv.ID)
}

// ListForUser returns every conversation userID participates in, most
// recently active first, each annotated with its last message.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID string) ([]db.Conversation, error) {
	var convs []db.Conversation

	member := r.db.
		Table("conversation_participants").
		Select("conversation_id").
		Where("user_id = ?", userID)

	err := loaded(r.db.WithContext(ctx)).
		Where("id IN (?)", member).
		Order("updated_at DESC, id DESC").
		Find(&convs).Error
	if err != nil || len(convs) == 0 {
		return convs, err
	}

	ids := make([]string, len(convs))
	for i := range convs {
		ids[i] = convs[i].ID
	}

	// message ids are monotonic, so MAX(id) is the newest message
	latest := r.db.
		Model(&db.Message{}).
		Select("MAX(id)").
		Where("conversation_id IN ?", ids).
		Group("conversation_id")

	var last []db.Message
	if err := r.db.WithContext(ctx).Where("id IN (?)", latest).Find(&last).Error; err != nil {
		return nil, err
	}

	byConv := make(map[string]*db.Message, len(last))
	for i := range last {
		if last[i].ConversationID != nil {
			byConv[*last[i].ConversationID] = &last[i]
		}
	}
	for i := range convs {
		convs[i].LastMessage = byConv[convs[i].ID]
	}
	return convs, nil
}

// Delete removes messages, participant rows and the conversation in one
// transaction. Returns gorm.ErrRecordNotFound if the conversation is absent.
func (r *ConversationRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&db.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&db.ConversationParticipant{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&db.Conversation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
