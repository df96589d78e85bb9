package talent

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/talenthub/internal/app"
	"github.com/oggyb/talenthub/internal/db"
	svcErr "github.com/oggyb/talenthub/internal/errors"
	"github.com/oggyb/talenthub/internal/repository"
	"github.com/oggyb/talenthub/internal/service"
	"github.com/oggyb/talenthub/internal/utils/pagination"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service handles like/save reactions on talents.
// Like counts are served from Redis when possible.
type Service struct {
	appCtx     *app.AppContext
	talentRepo *repository.TalentRepository
}

// NewTalentService creates the reaction service with dependencies from AppContext.
// Dependencies include:
//   - DB connection (via TalentRepository)
//   - RedisCache for like counters (optional)
func NewTalentService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:     appCtx,
		talentRepo: repository.NewTalentRepository(appCtx.DB),
	}
}

// ParseKind maps a path segment ("likes", "saved", "like", "save") to a reaction kind.
func ParseKind(s string) (db.ReactionKind, bool) {
	switch s {
	case "like", "likes", "liked":
		return db.ReactionLike, true
	case "save", "saves", "saved":
		return db.ReactionSave, true
	}
	return "", false
}

func (s *Service) Like(ctx context.Context, userID, talentID string) error {
	return s.react(ctx, userID, talentID, db.ReactionLike, true)
}

func (s *Service) Unlike(ctx context.Context, userID, talentID string) error {
	return s.react(ctx, userID, talentID, db.ReactionLike, false)
}

func (s *Service) Save(ctx context.Context, userID, talentID string) error {
	return s.react(ctx, userID, talentID, db.ReactionSave, true)
}

func (s *Service) Unsave(ctx context.Context, userID, talentID string) error {
	return s.react(ctx, userID, talentID, db.ReactionSave, false)
}

// react adds or removes a reaction.
//
// Behavior:
//   - Validates both ids; the talent must exist.
//   - Insert-or-ignore / delete-by-key, so repeats are no-ops.
//   - A like change drops the cached count; the next read refills it.
func (s *Service) react(ctx context.Context, userID, talentID string, kind db.ReactionKind, on bool) error {
	s.appCtx.Logger.Debug("react called", "user", userID, "talent", talentID, "kind", kind, "on", on)

	userID, ok := service.CleanID(userID)
	if !ok {
		return svcErr.Unauthorized("Authentication required")
	}
	talentID, err := s.requireTalent(ctx, talentID)
	if err != nil {
		return err
	}

	var changed bool
	if on {
		changed, err = s.talentRepo.AddReaction(ctx, userID, talentID, kind)
	} else {
		changed, err = s.talentRepo.RemoveReaction(ctx, userID, talentID, kind)
	}
	if err != nil {
		return svcErr.Map(err)
	}

	if changed && kind == db.ReactionLike && s.appCtx.RedisCache != nil {
		key := s.appCtx.RedisCache.KeyForTalentLikes(talentID)
		if err := s.appCtx.RedisCache.Del(ctx, key); err != nil {
			s.appCtx.Logger.Warn("like count invalidation failed", "talent", talentID, "err", err)
		}
	}
	return nil
}

// LikeCount returns how many users liked the talent.
// Cache-first strategy:
//  1. Attempts to read from Redis (talent:likes:count:<id>), refreshing its TTL.
//  2. On miss or Redis error, falls back to the DB.
//  3. On DB fetch, writes the count back with a 1h TTL.
//
// Example:
//
//	n, err := svc.LikeCount(ctx, "t1")
func (s *Service) LikeCount(ctx context.Context, talentID string) (int64, error) {
	talentID, err := s.requireTalent(ctx, talentID)
	if err != nil {
		return 0, err
	}

	rc := s.appCtx.RedisCache
	var key string
	if rc != nil {
		key = rc.KeyForTalentLikes(talentID)
		n, hit, err := rc.GetCount(ctx, key)
		if err != nil {
			s.appCtx.Logger.Warn("like count cache read failed", "talent", talentID, "err", err)
		} else if hit {
			return n, nil
		}
	}

	count, err := s.talentRepo.CountReactions(ctx, talentID, db.ReactionLike)
	if err != nil {
		return 0, svcErr.Map(err)
	}

	if rc != nil {
		_ = rc.SetCount(ctx, key, count)
	}
	return count, nil
}

// Reacted lists the talents userID liked or saved, newest reaction first.
func (s *Service) Reacted(
	ctx context.Context,
	userID string,
	kind db.ReactionKind,
	paginationToken *string,
	limit int,
) ([]repository.ReactedTalent, *string, error) {
	userID, ok := service.CleanID(userID)
	if !ok {
		return nil, nil, svcErr.Unauthorized("Authentication required")
	}
	if kind != db.ReactionLike && kind != db.ReactionSave {
		return nil, nil, svcErr.FieldValidation("kind", "kind must be likes or saved")
	}
	if paginationToken != nil {
		if _, err := pagination.Decode(*paginationToken); err != nil {
			return nil, nil, svcErr.FieldValidation("cursor", "cursor is invalid")
		}
	}

	rows, next, err := s.talentRepo.ListReacted(ctx, userID, kind, paginationToken,
		pagination.ClampLimit(limit, defaultPageSize, maxPageSize))
	if err != nil {
		return nil, nil, svcErr.Map(err)
	}
	if rows == nil {
		rows = []repository.ReactedTalent{}
	}
	return rows, next, nil
}

func (s *Service) requireTalent(ctx context.Context, talentID string) (string, error) {
	talentID, ok := service.CleanID(talentID)
	if !ok {
		return "", svcErr.FieldValidation("talentId", "talentId is required")
	}
	if _, err := s.talentRepo.Get(ctx, talentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", svcErr.NotFound("Talent not found")
		}
		return "", svcErr.Map(err)
	}
	return talentID, nil
}
