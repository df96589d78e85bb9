package block

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/talenthub/internal/app"
	"github.com/oggyb/talenthub/internal/db"
	svcErr "github.com/oggyb/talenthub/internal/errors"
	"github.com/oggyb/talenthub/internal/metrics"
	"github.com/oggyb/talenthub/internal/notify"
	"github.com/oggyb/talenthub/internal/repository"
	"github.com/oggyb/talenthub/internal/service"
)

// Service maintains directed block relations. A block hides the blocker's
// profile from the blocked user and stops the blocked user from messaging
// the blocker; it never deletes history.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
	blocks *repository.BlockRepository
}

func NewBlockService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
		blocks: repository.NewBlockRepository(appCtx.DB),
	}
}

// Block records blocker -> blocked and returns the relation.
//
// Behavior:
//   - Self-block is a validation error; an unknown target is not found.
//   - Repeat calls return the existing relation unchanged.
//   - Admins are emailed at most once per relation, best-effort.
func (s *Service) Block(ctx context.Context, blockerID, blockedID string) (*db.BlockedUser, error) {
	blockerID, blockedID, err := pair(blockerID, blockedID)
	if err != nil {
		return nil, err
	}
	if blockerID == blockedID {
		return nil, svcErr.Validation("You cannot block yourself")
	}

	ok, err := s.users.Exists(ctx, blockedID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if !ok {
		return nil, svcErr.NotFound("User not found")
	}

	row, created, err := s.blocks.Create(ctx, blockerID, blockedID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if created {
		metrics.BlocksCreated.Inc()
		s.appCtx.Logger.Info("user blocked", "blocker", blockerID, "blocked", blockedID)
	}

	s.notifyAdmins(ctx, row)
	return row, nil
}

// Unblock removes blocker -> blocked. Missing relations are not found.
func (s *Service) Unblock(ctx context.Context, blockerID, blockedID string) error {
	blockerID, blockedID, err := pair(blockerID, blockedID)
	if err != nil {
		return err
	}
	err = s.blocks.Delete(ctx, blockerID, blockedID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.NotFound("Block relationship not found")
	}
	if err != nil {
		return svcErr.Map(err)
	}
	s.appCtx.Logger.Info("user unblocked", "blocker", blockerID, "blocked", blockedID)
	return nil
}

// IsBlocked reports whether blocker has blocked blocked. Direction matters.
func (s *Service) IsBlocked(ctx context.Context, blockerID, blockedID string) (bool, error) {
	blockerID, blockedID, err := pair(blockerID, blockedID)
	if err != nil {
		return false, err
	}
	ok, err := s.blocks.Exists(ctx, blockerID, blockedID)
	if err != nil {
		return false, svcErr.Map(err)
	}
	return ok, nil
}

// ListBlocked returns the users blockerID has blocked, newest first.
func (s *Service) ListBlocked(ctx context.Context, blockerID string) ([]db.BlockedUser, error) {
	blockerID, ok := service.CleanID(blockerID)
	if !ok {
		return nil, svcErr.FieldValidation("userId", "userId is required")
	}
	rows, err := s.blocks.ListByBlocker(ctx, blockerID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if rows == nil {
		rows = []db.BlockedUser{}
	}
	return rows, nil
}

// BlockedIDs returns the set of users blockerID has blocked.
func (s *Service) BlockedIDs(ctx context.Context, blockerID string) (map[string]struct{}, error) {
	ids, err := s.blocks.BlockedIDs(ctx, blockerID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// Stats is the block half of the moderation dashboard.
type Stats struct {
	TotalBlocks  int64 `json:"totalBlocks"`
	BlockedUsers int64 `json:"blockedUsers"`
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	total, distinct, err := s.blocks.Counts(ctx)
	if err != nil {
		return Stats{}, svcErr.Map(err)
	}
	return Stats{TotalBlocks: total, BlockedUsers: distinct}, nil
}

// notifyAdmins claims the relation's notification flag and, if this call
// won it, emails every admin. The flag is claimed before sending, so a
// failed send is never retried.
func (s *Service) notifyAdmins(ctx context.Context, row *db.BlockedUser) {
	if row.DeveloperNotified {
		return
	}
	claimed, err := s.blocks.ClaimNotification(ctx, row.ID)
	if err != nil {
		s.appCtx.Logger.Warn("block notification claim failed", "block_id", row.ID, "err", err)
		return
	}
	if !claimed {
		return
	}
	row.DeveloperNotified = true

	admins, err := s.users.ByRole(ctx, db.RoleAdmin)
	if err != nil {
		s.appCtx.Logger.Warn("block notification skipped, admin lookup failed", "block_id", row.ID, "err", err)
		metrics.NotificationFailures.WithLabelValues("block").Inc()
		return
	}
	to := make([]string, 0, len(admins))
	for _, a := range admins {
		to = append(to, a.Email)
	}

	subject, body := s.blockEmail(ctx, row)
	if err := notify.Broadcast(ctx, s.appCtx.Notifier, to, subject, body); err != nil {
		s.appCtx.Logger.Warn("block notification failed", "block_id", row.ID, "err", err)
		metrics.NotificationFailures.WithLabelValues("block").Inc()
	}
}

func (s *Service) blockEmail(ctx context.Context, row *db.BlockedUser) (subject, body string) {
	blocker := s.emailOf(ctx, row.BlockerID)
	blocked := s.emailOf(ctx, row.BlockedUserID)

	subject = "User Blocked - " + blocked
	body = fmt.Sprintf(`A user has been blocked:

Block ID: %s
Blocker: %s
Blocked User: %s
Blocked At: %s

This may indicate inappropriate behavior. Please review the blocked user's account.

Review at: %s/admin/users/%s
`, row.ID, blocker, blocked, row.CreatedAt.Format(time.RFC3339), s.appURL(), row.BlockedUserID)
	return subject, body
}

func (s *Service) emailOf(ctx context.Context, id string) string {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return "Unknown"
	}
	return u.Email
}

func (s *Service) appURL() string {
	if s.appCtx.Config != nil {
		return s.appCtx.Config.App.URL
	}
	return ""
}

func pair(a, b string) (string, string, error) {
	a, okA := service.CleanID(a)
	b, okB := service.CleanID(b)
	if !okA || !okB {
		return "", "", svcErr.Validation("Both user ids are required")
	}
	return a, b, nil
}
