package conversation

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/blake3"
	"gorm.io/gorm"

	"github.com/oggyb/talenthub/internal/app"
	"github.com/oggyb/talenthub/internal/db"
	svcErr "github.com/oggyb/talenthub/internal/errors"
	"github.com/oggyb/talenthub/internal/metrics"
	"github.com/oggyb/talenthub/internal/repository"
	"github.com/oggyb/talenthub/internal/service"
)

const defaultLockTTL = 5 * time.Second

// Service owns conversation identity: one conversation per distinct
// participant set, however many callers race to create it.
type Service struct {
	appCtx  *app.AppContext
	users   *repository.UserRepository
	convs   *repository.ConversationRepository
	blocks  *repository.BlockRepository
	lockTTL time.Duration
}

// NewConversationService creates the registry with dependencies from AppContext.
// Dependencies include:
//   - DB connection (users, conversations, blocks)
//   - RedisCache for the per-fingerprint creation lock (optional)
func NewConversationService(appCtx *app.AppContext) *Service {
	ttl := defaultLockTTL
	if appCtx.Config != nil && appCtx.Config.Conversation.LockTTL > 0 {
		ttl = appCtx.Config.Conversation.LockTTL
	}
	return &Service{
		appCtx:  appCtx,
		users:   repository.NewUserRepository(appCtx.DB),
		convs:   repository.NewConversationRepository(appCtx.DB),
		blocks:  repository.NewBlockRepository(appCtx.DB),
		lockTTL: ttl,
	}
}

// Fingerprint is the canonical key of a participant set: the blake3-256 of
// the sorted ids joined by "|", hex encoded. Order and duplicates in the
// input do not matter.
func Fingerprint(participantIDs []string) string {
	ids := service.Dedupe(participantIDs)
	sort.Strings(ids)
	sum := blake3.Sum256([]byte(strings.Join(ids, "|")))
	return hex.EncodeToString(sum[:])
}

// FindOrCreate returns the conversation whose participant set equals
// participantIDs, creating it if none exists. created reports which happened.
//
// Behavior:
//   - Ids are trimmed and deduplicated; blanks and "undefined" are rejected.
//   - Fewer than two distinct ids → validation error; unknown ids → not found.
//   - Creation is serialised per fingerprint through a Redis lock. The unique
//     participant_key index is the final guard: losing a race re-reads and
//     returns the winner.
//   - A block between any two participants forbids creating a new thread.
//
// Example:
//
//	conv, created, err := svc.FindOrCreate(ctx, []string{"u1", "u2"})
func (s *Service) FindOrCreate(ctx context.Context, participantIDs []string) (*db.Conversation, bool, error) {
	ids, err := normalize(participantIDs)
	if err != nil {
		return nil, false, err
	}

	missing, err := s.users.Missing(ctx, ids)
	if err != nil {
		return nil, false, svcErr.Map(err)
	}
	if len(missing) > 0 {
		return nil, false, svcErr.NotFound(fmt.Sprintf("User %s not found", missing[0]))
	}

	key := Fingerprint(ids)
	if conv, err := s.lookup(ctx, key, ids); err != nil || conv != nil {
		return conv, false, err
	}

	unlock := s.lock(ctx, key)
	defer unlock()

	// someone may have created it while we waited
	if conv, err := s.lookup(ctx, key, ids); err != nil || conv != nil {
		return conv, false, err
	}

	blocked, err := s.blocks.AnyAmong(ctx, ids)
	if err != nil {
		return nil, false, svcErr.Map(err)
	}
	if blocked {
		return nil, false, svcErr.Forbidden("A conversation cannot be started between users who have blocked each other")
	}

	conv, err := s.convs.Create(ctx, key, ids)
	if err != nil {
		winner, lookupErr := s.lookup(ctx, key, ids)
		if lookupErr == nil && winner != nil {
			metrics.ConversationCreateConflicts.Inc()
			s.appCtx.Logger.Warn("conversation create lost race, returning existing",
				"conversation_id", winner.ID, "participants", len(ids), "err", err)
			return winner, false, nil
		}
		s.appCtx.Logger.Error("conversation create failed", "participants", len(ids), "err", err)
		return nil, false, svcErr.Map(err)
	}

	metrics.ConversationsCreated.Inc()
	s.appCtx.Logger.Debug("conversation created", "conversation_id", conv.ID, "participants", len(ids))
	return conv, true, nil
}

// lookup returns the conversation stored under key, or nil if there is none.
// A stored set that differs from ids is a fingerprint collision.
func (s *Service) lookup(ctx context.Context, key string, ids []string) (*db.Conversation, error) {
	conv, err := s.convs.FindByKey(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if !sameSet(conv.ParticipantIDs(), ids) {
		s.appCtx.Logger.Error("participant key collision", "conversation_id", conv.ID, "key", key)
		return nil, svcErr.Internal(fmt.Errorf("participant key %s maps to a different set", key))
	}
	return conv, nil
}

// lock takes the per-fingerprint creation lock. When Redis is missing or
// unhealthy it logs and carries on; the unique index still holds.
func (s *Service) lock(ctx context.Context, key string) (unlock func()) {
	rc := s.appCtx.RedisCache
	if rc == nil {
		return func() {}
	}

	lockKey := rc.KeyForConversationLock(key)
	token, err := rc.Lock(ctx, lockKey, s.lockTTL, s.lockTTL)
	if err != nil {
		s.appCtx.Logger.Warn("conversation lock unavailable, relying on unique key", "key", key, "err", err)
		return func() {}
	}

	return func() {
		// ctx may already be done; the release must still go out
		if err := rc.Unlock(context.WithoutCancel(ctx), lockKey, token); err != nil {
			s.appCtx.Logger.Warn("conversation lock release failed", "key", key, "err", err)
		}
	}
}

// Get loads one conversation with participants.
func (s *Service) Get(ctx context.Context, id string) (*db.Conversation, error) {
	id, ok := service.CleanID(id)
	if !ok {
		return nil, svcErr.FieldValidation("id", "conversation id is required")
	}
	conv, err := s.convs.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("Conversation not found")
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return conv, nil
}

// FindAllForUser lists the user's conversations, most recently active first,
// each with its last message. A blank id yields an empty list.
func (s *Service) FindAllForUser(ctx context.Context, userID string) ([]db.Conversation, error) {
	userID, ok := service.CleanID(userID)
	if !ok {
		return []db.Conversation{}, nil
	}
	convs, err := s.convs.ListForUser(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if convs == nil {
		convs = []db.Conversation{}
	}
	return convs, nil
}

// Remove deletes the conversation and its messages.
func (s *Service) Remove(ctx context.Context, id string) error {
	id, ok := service.CleanID(id)
	if !ok {
		return svcErr.FieldValidation("id", "conversation id is required")
	}
	err := s.convs.Delete(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.NotFound("Conversation not found")
	}
	if err != nil {
		return svcErr.Map(err)
	}
	s.appCtx.Logger.Info("conversation removed", "conversation_id", id)
	return nil
}

func normalize(participantIDs []string) ([]string, error) {
	ids := make([]string, 0, len(participantIDs))
	for _, raw := range participantIDs {
		id, ok := service.CleanID(raw)
		if !ok {
			return nil, svcErr.FieldValidation("participantIds", "participant ids must be non-empty and not 'undefined'")
		}
		ids = append(ids, id)
	}
	ids = service.Dedupe(ids)
	if len(ids) < 2 {
		return nil, svcErr.FieldValidation("participantIds", "at least 2 required")
	}
	return ids, nil
}

// sameSet reports whether a and b hold the same ids, ignoring order.
func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}
