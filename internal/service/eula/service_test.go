package eula_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/talenthub/internal/db"
	"github.com/oggyb/talenthub/internal/db/testdb"
	svcErr "github.com/oggyb/talenthub/internal/errors"
	"github.com/oggyb/talenthub/internal/metrics"
	"github.com/oggyb/talenthub/internal/service/eula"
)

func TestCurrent(t *testing.T) {
	env := testdb.NewEnv(t)
	svc := eula.NewEulaService(env.App)

	cur, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cur.Version)
	assert.Equal(t, db.InitialEula, cur.Content)
}

func TestCurrent_NoneActive(t *testing.T) {
	env := testdb.NewEnv(t)
	require.NoError(t, env.App.DB.Model(&db.EulaVersion{}).Where("1 = 1").Update("active", false).Error)

	_, err := eula.NewEulaService(env.App).Current(context.Background())
	assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound))
}

func TestCurrent_MultipleActiveServesHighestAndAlarms(t *testing.T) {
	env := testdb.NewEnv(t)
	require.NoError(t, env.App.DB.Create(&db.EulaVersion{Version: 3, Content: "v3", Active: true}).Error)

	cur, err := eula.NewEulaService(env.App).Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, cur.Version)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.EulaActiveVersions))
}

func TestAccept_Idempotent(t *testing.T) {
	ctx := context.Background()
	env := testdb.NewEnv(t)
	svc := eula.NewEulaService(env.App)

	ok, err := svc.HasAccepted(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	first, err := svc.Accept(ctx, "u1", 1, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "10.0.0.1", *first.Record.IPAddress)

	second, err := svc.Accept(ctx, "u1", 1, "10.0.0.2")
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.Equal(t, "10.0.0.1", *second.Record.IPAddress)

	var count int64
	env.App.DB.Model(&db.UserEulaAcceptance{}).Where("user_id = ?", "u1").Count(&count)
	assert.Equal(t, int64(1), count)

	var u db.User
	require.NoError(t, env.App.DB.First(&u, "id = ?", "u1").Error)
	assert.True(t, u.AgreedToTerms)

	ok, err = svc.HasAccepted(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAccept_Rejections(t *testing.T) {
	ctx := context.Background()
	env := testdb.NewEnv(t)
	svc := eula.NewEulaService(env.App)

	_, err := svc.Accept(ctx, "u1", 7, "")
	assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound))

	_, err = svc.Accept(ctx, "u1", 0, "")
	assert.True(t, svcErr.IsKind(err, svcErr.KindValidation))

	_, err = svc.Accept(ctx, "ghost", 1, "")
	assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound))

	_, err = svc.Accept(ctx, "", 1, "")
	assert.True(t, svcErr.IsKind(err, svcErr.KindUnauthorized))
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	env := testdb.NewEnv(t)
	svc := eula.NewEulaService(env.App)

	_, err := svc.Accept(ctx, "u1", 1, "")
	require.NoError(t, err)

	v2, err := svc.Publish(ctx, 2, "Second edition")
	require.NoError(t, err)
	assert.True(t, v2.Active)

	cur, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cur.Version)

	// the old acceptance no longer counts, and v1 can't be accepted any more
	ok, err := svc.HasAccepted(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = svc.Accept(ctx, "u1", 1, "")
	assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound))

	_, err = svc.Publish(ctx, 2, "again")
	assert.True(t, svcErr.IsKind(err, svcErr.KindConflict))
	cur, err = svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Second edition", cur.Content)

	_, err = svc.Publish(ctx, 0, "")
	assert.True(t, svcErr.IsKind(err, svcErr.KindValidation))
}
