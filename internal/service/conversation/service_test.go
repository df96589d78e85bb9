package conversation_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/talenthub/internal/db"
	"github.com/oggyb/talenthub/internal/db/testdb"
	svcErr "github.com/oggyb/talenthub/internal/errors"
	"github.com/oggyb/talenthub/internal/service/conversation"
)

func TestFingerprint_OrderAndDuplicatesIgnored(t *testing.T) {
	a := conversation.Fingerprint([]string{"u1", "u2", "u3"})
	assert.Equal(t, a, conversation.Fingerprint([]string{"u3", "u1", "u2"}))
	assert.Equal(t, a, conversation.Fingerprint([]string{"u2", "u3", "u1", "u2"}))
	assert.NotEqual(t, a, conversation.Fingerprint([]string{"u1", "u2"}))
	assert.Len(t, a, 64)
}

func TestFindOrCreate_ReturnsSameConversationRegardlessOfOrder(t *testing.T) {
	ctx := context.Background()
	env := testdb.NewEnv(t)
	svc := conversation.NewConversationService(env.App)

	first, created, err := svc.FindOrCreate(ctx, []string{"u1", "u2"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.ElementsMatch(t, []string{"u1", "u2"}, first.ParticipantIDs())

	second, created, err := svc.FindOrCreate(ctx, []string{"u2", "u1", "u2"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestFindOrCreate_SubsetAndSupersetAreDistinct(t *testing.T) {
	ctx := context.Background()
	env := testdb.NewEnv(t)
	svc := conversation.NewConversationService(env.App)

	pair, _, err := svc.FindOrCreate(ctx, []string{"u1", "u2"})
	require.NoError(t, err)
	group, created, err := svc.FindOrCreate(ctx, []string{"u1", "u2", "u3"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, pair.ID, group.ID)
	assert.Len(t, group.Participants, 3)

	again, created, err := svc.FindOrCreate(ctx, []string{"u3", "u2", "u1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, group.ID, again.ID)
}

func TestFindOrCreate_Validation(t *testing.T) {
	ctx := context.Background()
	env := testdb.NewEnv(t)
	svc := conversation.NewConversationService(env.App)

	tests := []struct {
		name string
		ids  []string
		kind svcErr.Kind
	}{
		{"empty", nil, svcErr.KindValidation},
		{"single", []string{"u1"}, svcErr.KindValidation},
		{"same id twice", []string{"u1", "u1"}, svcErr.KindValidation},
		{"blank id", []string{"u1", "  "}, svcErr.KindValidation},
		{"undefined sentinel", []string{"u1", "undefined"}, svcErr.KindValidation},
		{"unknown user", []string{"u1", "ghost"}, svcErr.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.FindOrCreate(ctx, tt.ids)
			require.Error(t, err)
			assert.Equal(t, tt.kind, svcErr.As(err).Kind)
		})
	}

	_, _, err := svc.FindOrCreate(ctx, []string{"u1"})
	assert.Equal(t, []string{"at least 2 required"}, svcErr.As(err).Fields["participantIds"])

	var count int64
	env.App.DB.Model(&db.Conversation{}).Count(&count)
	assert.Zero(t, count)
}

func TestFindOrCreate_BlockedPairForbidden(t *testing.T) {
	ctx := context.Background()
	env := testdb.NewEnv(t)
	svc := conversation.NewConversationService(env.App)

	require.NoError(t, env.App.DB.Create(&db.BlockedUser{BlockerID: "u2", BlockedUserID: "u1"}).Error)

	_, _, err := svc.FindOrCreate(ctx, []string{"u1", "u2"})
	assert.True(t, svcErr.IsKind(err, svcErr.KindForbidden))

	_, created, err := svc.FindOrCreate(ctx, []string{"u1", "u3"})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestFindOrCreate_ExistingConversationSurvivesLaterBlock(t *testing.T) {
	ctx := context.Background()
	env := testdb.NewEnv(t)
	svc := conversation.NewConversationService(env.App)

	conv, _, err := svc.FindOrCreate(ctx, []string{"u1", "u2"})
	require.NoError(t, err)
	require.NoError(t, env.App.DB.Create(&db.BlockedUser{BlockerID: "u2", BlockedUserID: "u1"}).Error)

	again, created, err := svc.FindOrCreate(ctx, []string{"u1", "u2"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, again.ID)
}

func runConcurrent(t *testing.T, svc *conversation.Service, ids []string, n int) map[string]int {
	t.Helper()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		seen    = map[string]int{}
		created int
		errs    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv, c, err := svc.FindOrCreate(context.Background(), ids)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			seen[conv.ID]++
			if c {
				created++
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Equal(t, 1, created)
	return seen
}

func TestFindOrCreate_ConcurrentCallsProduceOneConversation(t *testing.T) {
	env := testdb.NewEnv(t)
	svc := conversation.NewConversationService(env.App)

	seen := runConcurrent(t, svc, []string{"u1", "u2", "u3"}, 16)
	assert.Len(t, seen, 1)

	var count int64
	env.App.DB.Model(&db.Conversation{}).Count(&count)
	assert.Equal(t, int64(1), count)

	var parts int64
	env.App.DB.Model(&db.ConversationParticipant{}).Count(&parts)
	assert.Equal(t, int64(3), parts)
}

func TestFindOrCreate_ConcurrentWithoutRedis(t *testing.T) {
	env := testdb.NewEnv(t)
	env.App.RedisCache = nil
	svc := conversation.NewConversationService(env.App)

	seen := runConcurrent(t, svc, []string{"u2", "u4"}, 16)
	assert.Len(t, seen, 1)
}

func TestFindOrCreate_RedisDownFallsBackToUniqueKey(t *testing.T) {
	env := testdb.NewEnv(t)
	env.Redis.Close()
	svc := conversation.NewConversationService(env.App)

	_, created, err := svc.FindOrCreate(context.Background(), []string{"u1", "u4"})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestFindAllForUser(t *testing.T) {
	ctx := context.Background()
	env := testdb.NewEnv(t)
	svc := conversation.NewConversationService(env.App)

	a, _, err := svc.FindOrCreate(ctx, []string{"u1", "u2"})
	require.NoError(t, err)
	b, _, err := svc.FindOrCreate(ctx, []string{"u1", "u3"})
	require.NoError(t, err)

	list, err := svc.FindAllForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)

	list, err = svc.FindAllForUser(ctx, "")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	list, err = svc.FindAllForUser(ctx, "undefined")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetAndRemove(t *testing.T) {
	ctx := context.Background()
	env := testdb.NewEnv(t)
	svc := conversation.NewConversationService(env.App)

	conv, _, err := svc.FindOrCreate(ctx, []string{"u1", "u2"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)

	require.NoError(t, svc.Remove(ctx, conv.ID))

	_, err = svc.Get(ctx, conv.ID)
	assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound))
	assert.True(t, svcErr.IsKind(svc.Remove(ctx, conv.ID), svcErr.KindNotFound))

	// the pair can start over
	_, created, err := svc.FindOrCreate(ctx, []string{"u2", "u1"})
	require.NoError(t, err)
	assert.True(t, created)
}
