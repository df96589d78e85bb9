package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/talenthub/internal/cache"
	"github.com/oggyb/talenthub/internal/config"
	"github.com/oggyb/talenthub/internal/notify"
)

// AppContext holds shared dependencies (DB, Redis, Logger, Notifier, etc.)
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Notifier   notify.Notifier
}

// New creates a new AppContext. A nil notifier becomes notify.Noop.
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, n notify.Notifier) *AppContext {
	if n == nil {
		n = notify.Noop{}
	}
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Notifier:   n,
	}
}
