package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/talenthub/internal/db"
	"github.com/oggyb/talenthub/internal/utils/pagination"
)

// TalentRepository provides data access for the talent feed and the
// talent_reactions join table.
type TalentRepository struct {
	db *gorm.DB
}

func NewTalentRepository(database *gorm.DB) *TalentRepository {
	return &TalentRepository{db: database}
}

func (r *TalentRepository) Get(ctx context.Context, id string) (*db.Talent, error) {
	var t db.Talent
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns the feed newest first, skipping talents owned by excludeOwners.
func (r *TalentRepository) List(ctx context.Context, excludeOwners []string) ([]db.Talent, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if len(excludeOwners) > 0 {
		q = q.Where("owner_user_id NOT IN ?", excludeOwners)
	}
	var talents []db.Talent
	err := q.Find(&talents).Error
	return talents, err
}

// AddReaction records (user, talent, kind). Repeats are no-ops.
//
// Example:
//
//	repo.AddReaction(ctx, "u1", "t1", db.ReactionLike) // u1 likes t1
func (r *TalentRepository) AddReaction(ctx context.Context, userID, talentID string, kind db.ReactionKind) (bool, error) {
	row := db.TalentReaction{UserID: userID, TalentID: talentID, Kind: kind}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "talent_id"}, {Name: "kind"}},
			DoNothing: true,
		}).
		Create(&row)
	return res.RowsAffected > 0, res.Error
}

// RemoveReaction deletes (user, talent, kind). Missing rows are not an error.
func (r *TalentRepository) RemoveReaction(ctx context.Context, userID, talentID string, kind db.ReactionKind) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND talent_id = ? AND kind = ?", userID, talentID, kind).
		Delete(&db.TalentReaction{})
	return res.RowsAffected > 0, res.Error
}

// CountReactions counts reactions of one kind on a talent.
// Used in conjunction with Redis cache (DB is fallback).
func (r *TalentRepository) CountReactions(ctx context.Context, talentID string, kind db.ReactionKind) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.TalentReaction{}).
		Where("talent_id = ? AND kind = ?", talentID, kind).
		Count(&count).Error
	return count, err
}

// ReactedTalent is a talent together with when the user reacted to it.
type ReactedTalent struct {
	db.Talent
	ReactedAt time.Time
}

// ListReacted returns the talents userID reacted to with kind, newest
// reaction first, with cursor-based pagination over (created_at, talent_id).
func (r *TalentRepository) ListReacted(
	ctx context.Context,
	userID string,
	kind db.ReactionKind,
	paginationToken *string,
	limit int,
) ([]ReactedTalent, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("talent_reactions tr").
		Select("t.*, tr.created_at AS reacted_at").
		Joins("JOIN talents t ON t.id = tr.talent_id").
		Where("tr.user_id = ? AND tr.kind = ?", userID, kind).
		Order("tr.created_at DESC, tr.talent_id DESC").
		Limit(limit + 1)

	// apply cursor
	if !cursor.IsZero() {
		ts := cursor.At()
		query = query.Where(
			"(tr.created_at < ? OR (tr.created_at = ? AND tr.talent_id < ?))",
			ts, ts, cursor.ID,
		)
	}

	var rows []ReactedTalent
	if err := query.Scan(&rows).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(rows) > limit {
		last := rows[limit-1]
		token, _ := pagination.Encode(pagination.From(last.ID, last.ReactedAt))
		nextToken = &token
		rows = rows[:limit]
	}
	return rows, nextToken, nil
}
