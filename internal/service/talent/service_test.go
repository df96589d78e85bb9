package talent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/talenthub/internal/db"
	"github.com/oggyb/talenthub/internal/db/testdb"
	svcErr "github.com/oggyb/talenthub/internal/errors"
	"github.com/oggyb/talenthub/internal/service/talent"
)

// setupService seeds three talents owned by u2/u3 on top of the minimal
// dataset and wires a Service against sqlite + miniredis.
func setupService(t *testing.T) (*talent.Service, *testdb.Env) {
	t.Helper()
	env := testdb.NewEnv(t)
	require.NoError(t, env.App.DB.Create(&[]db.Talent{
		{ID: "t1", OwnerUserID: "u2", Title: "poster"},
		{ID: "t2", OwnerUserID: "u3", Title: "app"},
		{ID: "t3", OwnerUserID: "u3", Title: "film"},
	}).Error)
	return talent.NewTalentService(env.App), env
}

func TestLikeCount_CacheFirst(t *testing.T) {
	ctx := context.Background()
	svc, env := setupService(t)

	require.NoError(t, svc.Like(ctx, "u1", "t1"))
	require.NoError(t, svc.Like(ctx, "u4", "t1"))

	n, err := svc.LikeCount(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	key := env.App.RedisCache.KeyForTalentLikes("t1")
	cached, err := env.Redis.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "2", cached)

	// a stale cache value is served until a change invalidates it
	require.NoError(t, env.Redis.Set(key, "42"))
	n, err = svc.LikeCount(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	require.NoError(t, svc.Unlike(ctx, "u1", "t1"))
	assert.False(t, env.Redis.Exists(key))

	n, err = svc.LikeCount(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLikeCount_RedisDownFallsBackToDB(t *testing.T) {
	ctx := context.Background()
	svc, env := setupService(t)
	require.NoError(t, svc.Like(ctx, "u1", "t2"))

	env.Redis.Close()

	n, err := svc.LikeCount(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestReactions_IdempotentAndSeparateKinds(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	require.NoError(t, svc.Like(ctx, "u1", "t1"))
	require.NoError(t, svc.Like(ctx, "u1", "t1"))
	require.NoError(t, svc.Save(ctx, "u1", "t2"))

	n, err := svc.LikeCount(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	liked, _, err := svc.Reacted(ctx, "u1", db.ReactionLike, nil, 0)
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.Equal(t, "t1", liked[0].ID)

	saved, _, err := svc.Reacted(ctx, "u1", db.ReactionSave, nil, 0)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "t2", saved[0].ID)

	require.NoError(t, svc.Unsave(ctx, "u1", "t2"))
	require.NoError(t, svc.Unsave(ctx, "u1", "t2"))
	saved, _, err = svc.Reacted(ctx, "u1", db.ReactionSave, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestReacted_Paging(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	for _, id := range []string{"t1", "t2", "t3"} {
		require.NoError(t, svc.Like(ctx, "u1", id))
	}

	first, next, err := svc.Reacted(ctx, "u1", db.ReactionLike, nil, 2)
	require.NoError(t, err)
	assert.Len(t, first, 2)
	require.NotNil(t, next)

	rest, next, err := svc.Reacted(ctx, "u1", db.ReactionLike, next, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
	assert.Nil(t, next)

	bad := "%%%"
	_, _, err = svc.Reacted(ctx, "u1", db.ReactionLike, &bad, 2)
	assert.True(t, svcErr.IsKind(err, svcErr.KindValidation))
}

func TestReactions_Rejections(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	assert.True(t, svcErr.IsKind(svc.Like(ctx, "u1", "nope"), svcErr.KindNotFound))
	assert.True(t, svcErr.IsKind(svc.Save(ctx, "", "t1"), svcErr.KindUnauthorized))
	assert.True(t, svcErr.IsKind(svc.Like(ctx, "u1", "undefined"), svcErr.KindValidation))

	_, err := svc.LikeCount(ctx, "nope")
	assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound))
}

func TestParseKind(t *testing.T) {
	k, ok := talent.ParseKind("likes")
	assert.True(t, ok)
	assert.Equal(t, db.ReactionLike, k)

	k, ok = talent.ParseKind("saved")
	assert.True(t, ok)
	assert.Equal(t, db.ReactionSave, k)

	_, ok = talent.ParseKind("shared")
	assert.False(t, ok)
}
