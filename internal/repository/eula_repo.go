package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/talenthub/internal/db"
)

// EulaRepository provides data access for EULA versions and acceptances.
type EulaRepository struct {
	db *gorm.DB
}

func NewEulaRepository(database *gorm.DB) *EulaRepository {
	return &EulaRepository{db: database}
}

// Active returns every version flagged active, highest version first.
// More than one row means the single-active rule was broken.
func (r *EulaRepository) Active(ctx context.Context) ([]db.EulaVersion, error) {
	var versions []db.EulaVersion
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("version DESC").
		Find(&versions).Error
	return versions, err
}

// ActiveByVersion loads an active version by number.
func (r *EulaRepository) ActiveByVersion(ctx context.Context, version int) (*db.EulaVersion, error) {
	var v db.EulaVersion
	err := r.db.WithContext(ctx).
		Where("version = ? AND active = ?", version, true).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Accept records userID's acceptance of versionID.
//
// Behavior:
//   - First acceptance inserts the row and sets users.agreed_to_terms in one transaction.
//   - Repeat calls write nothing and return the stored row with created=false.
func (r *EulaRepository) Accept(ctx context.Context, userID, versionID string, ip *string) (*db.UserEulaAcceptance, bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := db.UserEulaAcceptance{UserID: userID, EulaVersionID: versionID, IPAddress: ip}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "eula_version_id"}},
			DoNothing: true,
		}).Create(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		return tx.Model(&db.User{}).Where("id = ?", userID).Update("agreed_to_terms", true).Error
	})
	if err != nil {
		return nil, false, err
	}

	var stored db.UserEulaAcceptance
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND eula_version_id = ?", userID, versionID).
		First(&stored).Error
	if err != nil {
		return nil, false, err
	}
	return &stored, created, nil
}

// HasAccepted reports whether an acceptance row exists for the pair.
func (r *EulaRepository) HasAccepted(ctx context.Context, userID, versionID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.UserEulaAcceptance{}).
		Where("user_id = ? AND eula_version_id = ?", userID, versionID).
		Count(&count).Error
	return count > 0, err
}

// Publish deactivates every version and inserts the new active one
// atomically. A duplicate version number fails with gorm.ErrDuplicatedKey
// and leaves the previous active version untouched.
func (r *EulaRepository) Publish(ctx context.Context, version int, content string) (*db.EulaVersion, error) {
	v := db.EulaVersion{Version: version, Content: content, Active: true}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&db.EulaVersion{}).
			Where("active = ?", true).
			Update("active", false).Error; err != nil {
			return err
		}
		return tx.Create(&v).Error
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}
