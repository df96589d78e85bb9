package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/talenthub/internal/db"
)

// UserRepository reads the account mirror and owns the two columns the
// trust layer writes: status and agreed_to_terms.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// Get loads a user with both profile summaries.
// Returns gorm.ErrRecordNotFound when absent.
func (r *UserRepository) Get(ctx context.Context, id string) (*db.User, error) {
	var u db.User
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Business").
		First(&u, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Exists reports whether a user row exists.
func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Missing returns the ids that do not resolve to a user, in input order.
func (r *UserRepository) Missing(ctx context.Context, ids []string) ([]string, error) {
	var found []string
	err := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error
	if err != nil {
		return nil, err
	}

	have := make(map[string]struct{}, len(found))
	for _, id := range found {
		have[id] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// ByRole lists users with the given role; used to address admin notifications.
func (r *UserRepository) ByRole(ctx context.Context, role db.UserRole) ([]db.User, error) {
	var users []db.User
	err := r.db.WithContext(ctx).Where("role = ?", role).Order("created_at ASC").Find(&users).Error
	return users, err
}
