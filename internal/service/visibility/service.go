// Package visibility hides blocked relationships from profile and feed reads.
package visibility

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/talenthub/internal/app"
	"github.com/oggyb/talenthub/internal/db"
	svcErr "github.com/oggyb/talenthub/internal/errors"
	"github.com/oggyb/talenthub/internal/repository"
	"github.com/oggyb/talenthub/internal/service"
)

// ErrBlockedByOwner is the message returned when a profile owner blocked the viewer.
const ErrBlockedByOwner = "You cannot view this profile. This user has blocked you."

type Service struct {
	appCtx  *app.AppContext
	users   *repository.UserRepository
	blocks  *repository.BlockRepository
	talents *repository.TalentRepository
}

func NewVisibilityService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:  appCtx,
		users:   repository.NewUserRepository(appCtx.DB),
		blocks:  repository.NewBlockRepository(appCtx.DB),
		talents: repository.NewTalentRepository(appCtx.DB),
	}
}

// FetchProfile loads ownerID's profile as seen by viewerID.
// An empty viewer is anonymous and is never filtered.
func (s *Service) FetchProfile(ctx context.Context, ownerID, viewerID string) (*db.User, error) {
	ownerID, ok := service.CleanID(ownerID)
	if !ok {
		return nil, svcErr.FieldValidation("userId", "userId is required")
	}

	owner, err := s.users.Get(ctx, ownerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("Profile not found")
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}

	if viewerID, ok := service.CleanID(viewerID); ok && viewerID != ownerID {
		blocked, err := s.blocks.Exists(ctx, ownerID, viewerID)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		if blocked {
			s.appCtx.Logger.Debug("profile hidden from blocked viewer", "owner", ownerID, "viewer", viewerID)
			return nil, svcErr.Forbidden(ErrBlockedByOwner)
		}
	}
	return owner, nil
}

// ListTalents returns the talent feed, dropping talents whose owner the
// viewer has blocked.
func (s *Service) ListTalents(ctx context.Context, viewerID string) ([]db.Talent, error) {
	var exclude []string
	if viewerID, ok := service.CleanID(viewerID); ok {
		ids, err := s.blocks.BlockedIDs(ctx, viewerID)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		exclude = ids
	}

	talents, err := s.talents.List(ctx, exclude)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if talents == nil {
		talents = []db.Talent{}
	}
	return talents, nil
}
