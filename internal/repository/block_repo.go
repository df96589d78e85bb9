package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/talenthub/internal/db"
)

// BlockRepository provides data access for directed block relations.
type BlockRepository struct {
	db *gorm.DB
}

func NewBlockRepository(database *gorm.DB) *BlockRepository {
	return &BlockRepository{db: database}
}

// Create inserts blocker -> blocked unless it already exists.
//
// Behavior:
//   - Existing pair → nothing is written, the stored row is returned, created=false.
//   - Unique index (blocker_id, blocked_user_id) makes concurrent calls safe.
func (r *BlockRepository) Create(ctx context.Context, blockerID, blockedID string) (*db.BlockedUser, bool, error) {
	row := db.BlockedUser{BlockerID: blockerID, BlockedUserID: blockedID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "blocker_id"}, {Name: "blocked_user_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if res.Error != nil {
		return nil, false, res.Error
	}

	stored, err := r.Get(ctx, blockerID, blockedID)
	if err != nil {
		return nil, false, err
	}
	return stored, res.RowsAffected > 0, nil
}

// Get loads the relation blocker -> blocked.
func (r *BlockRepository) Get(ctx context.Context, blockerID, blockedID string) (*db.BlockedUser, error) {
	var b db.BlockedUser
	err := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_user_id = ?", blockerID, blockedID).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Delete removes blocker -> blocked. Returns gorm.ErrRecordNotFound when
// there was nothing to remove.
func (r *BlockRepository) Delete(ctx context.Context, blockerID, blockedID string) error {
	res := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_user_id = ?", blockerID, blockedID).
		Delete(&db.BlockedUser{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Exists reports whether blocker has blocked blocked. Direction matters.
func (r *BlockRepository) Exists(ctx context.Context, blockerID, blockedID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.BlockedUser{}).
		Where("blocker_id = ? AND blocked_user_id = ?", blockerID, blockedID).
		Count(&count).Error
	return count > 0, err
}

// AnyAmong reports whether any user in ids has blocked another user in ids.
func (r *BlockRepository) AnyAmong(ctx context.Context, ids []string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.BlockedUser{}).
		Where("blocker_id IN ? AND blocked_user_id IN ? AND blocker_id <> blocked_user_id", ids, ids).
		Count(&count).Error
	return count > 0, err
}

// BlockedByAny reports whether any of blockerIDs has blocked target.
func (r *BlockRepository) BlockedByAny(ctx context.Context, blockerIDs []string, targetID string) (bool, error) {
	if len(blockerIDs) == 0 {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.BlockedUser{}).
		Where("blocker_id IN ? AND blocked_user_id = ?", blockerIDs, targetID).
		Count(&count).Error
	return count > 0, err
}

// ListByBlocker returns the blocker's relations newest first, with the
// blocked user's profile summaries.
func (r *BlockRepository) ListByBlocker(ctx context.Context, blockerID string) ([]db.BlockedUser, error) {
	var rows []db.BlockedUser
	err := r.db.WithContext(ctx).
		Preload("BlockedUser.Student").
		Preload("BlockedUser.Business").
		Where("blocker_id = ?", blockerID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

// BlockedIDs returns the ids blockerID has blocked.
func (r *BlockRepository) BlockedIDs(ctx context.Context, blockerID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&db.BlockedUser{}).
		Where("blocker_id = ?", blockerID).
		Pluck("blocked_user_id", &ids).Error
	return ids, err
}

// ClaimNotification flips developer_notified from false to true.
// Exactly one caller per relation ever gets claimed=true.
func (r *BlockRepository) ClaimNotification(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.BlockedUser{}).
		Where("id = ? AND developer_notified = ?", id, false).
		UpdateColumn("developer_notified", true)
	return res.RowsAffected > 0, res.Error
}

// Counts returns the total number of relations and of distinct blocked users.
func (r *BlockRepository) Counts(ctx context.Context) (total, distinctBlocked int64, err error) {
	q := r.db.WithContext(ctx).Model(&db.BlockedUser{})
	if err = q.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = r.db.WithContext(ctx).
		Model(&db.BlockedUser{}).
		Distinct("blocked_user_id").
		Count(&distinctBlocked).Error
	return total, distinctBlocked, err
}
