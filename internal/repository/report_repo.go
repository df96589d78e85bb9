package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/talenthub/internal/db"
)

// ErrNotPending is returned when a transition targets a report that has
// already left PENDING.
var ErrNotPending = errors.New("report is not pending")

// ReportRepository provides data access for content reports.
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(database *gorm.DB) *ReportRepository {
	return &ReportRepository{db: database}
}

func withParties(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Reporter.Student").
		Preload("Reporter.Business").
		Preload("ReportedUser.Student").
		Preload("ReportedUser.Business")
}

func (r *ReportRepository) Create(ctx context.Context, report *db.ContentReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *ReportRepository) Get(ctx context.Context, id string) (*db.ContentReport, error) {
	var rep db.ContentReport
	if err := withParties(r.db.WithContext(ctx)).First(&rep, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rep, nil
}

// Transition is the input of a PENDING -> terminal move.
type Transition struct {
	To          db.ReportStatus
	ReviewerID  string
	ActionTaken *string
	// SuspendReported also flips the reported user to SUSPENDED.
	SuspendReported bool
}

// Transition moves a report out of PENDING.
//
// Behavior:
//   - The update is guarded by status = PENDING, so of two racing reviewers
//     exactly one wins; the other gets ErrNotPending.
//   - Unknown id → gorm.ErrRecordNotFound.
//   - With SuspendReported, the reported user's status changes in the same
//     transaction. suspended reports whether that happened.
func (r *ReportRepository) Transition(ctx context.Context, id string, t Transition) (report *db.ContentReport, suspended bool, err error) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&db.ContentReport{}).
			Where("id = ? AND status = ?", id, db.ReportPending).
			Updates(map[string]any{
				"status":       t.To,
				"reviewed_by":  t.ReviewerID,
				"reviewed_at":  now,
				"action_taken": t.ActionTaken,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&db.ContentReport{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return gorm.ErrRecordNotFound
			}
			return ErrNotPending
		}

		if !t.SuspendReported {
			return nil
		}
		var rep db.ContentReport
		if err := tx.First(&rep, "id = ?", id).Error; err != nil {
			return err
		}
		if rep.ReportedUserID == nil {
			return nil
		}
		upd := tx.Model(&db.User{}).
			Where("id = ?", *rep.ReportedUserID).
			Update("status", db.UserSuspended)
		if upd.Error != nil {
			return upd.Error
		}
		suspended = upd.RowsAffected > 0
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	report, err = r.Get(ctx, id)
	return report, suspended, err
}

// List returns reports newest first, optionally filtered by status.
func (r *ReportRepository) List(ctx context.Context, status *db.ReportStatus) ([]db.ContentReport, error) {
	q := withParties(r.db.WithContext(ctx)).Order("created_at DESC, id DESC")
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var reps []db.ContentReport
	err := q.Find(&reps).Error
	return reps, err
}

// Pending returns the review queue oldest first.
func (r *ReportRepository) Pending(ctx context.Context) ([]db.ContentReport, error) {
	var reps []db.ContentReport
	err := withParties(r.db.WithContext(ctx)).
		Where("status = ?", db.ReportPending).
		Order("created_at ASC, id ASC").
		Find(&reps).Error
	return reps, err
}

// ForReportedUser returns reports filed against userID, newest first.
func (r *ReportRepository) ForReportedUser(ctx context.Context, userID string) ([]db.ContentReport, error) {
	var reps []db.ContentReport
	err := withParties(r.db.WithContext(ctx)).
		Where("reported_user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&reps).Error
	return reps, err
}

// CountByStatus returns a count for every status that has at least one report.
func (r *ReportRepository) CountByStatus(ctx context.Context) (map[db.ReportStatus]int64, error) {
	var rows []struct {
		Status db.ReportStatus
		N      int64
	}
	err := r.db.WithContext(ctx).
		Model(&db.ContentReport{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[db.ReportStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}
