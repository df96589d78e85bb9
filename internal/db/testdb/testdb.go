// Package testdb spins up isolated stores for package tests.
package testdb

import (
	"fmt"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oggyb/talenthub/internal/app"
	"github.com/oggyb/talenthub/internal/cache"
	"github.com/oggyb/talenthub/internal/config"
	"github.com/oggyb/talenthub/internal/db"
	"github.com/oggyb/talenthub/internal/logger"
	"github.com/oggyb/talenthub/internal/notify"
)

// Open returns a migrated in-memory SQLite database private to the test.
//
// A single connection is used: SQLite serialises writers anyway, and one
// connection keeps the in-memory database alive for the test's lifetime.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "_" + uuid.NewString()[:8]
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)

	database, err := gorm.Open(sqlite.Open(dsn), db.Options(gormlogger.Default.LogMode(gormlogger.Silent)))
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(database))
	return database
}

// Seeded is Open plus db.SeedMinimalTestData.
func Seeded(t *testing.T) *gorm.DB {
	t.Helper()
	database := Open(t)
	require.NoError(t, db.SeedMinimalTestData(database))
	return database
}

// Redis starts a miniredis instance and returns a cache bound to it.
func Redis(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.Password = ""
	cfg.Redis.DB = 0

	rc := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = rc.Client.Close() })
	return rc, mr
}

// Env is a fully wired AppContext over a seeded database and miniredis.
type Env struct {
	App      *app.AppContext
	Redis    *miniredis.Miniredis
	Notifier *notify.Recorder
}

// NewEnv builds an Env. Logs are discarded and EULA enforcement follows the
// config defaults.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	database := Seeded(t)
	rc, mr := Redis(t)
	rec := &notify.Recorder{}

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	cfg.App.URL = "http://talenthub.test"

	return &Env{
		App:      app.New(cfg, database, rc, logger.Discard(), rec),
		Redis:    mr,
		Notifier: rec,
	}
}
