package db

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/talenthub/internal/config"
)

// NewDB initializes the database connection using DSN from config.
// DB_DRIVER=sqlite is meant for local runs; production uses MySQL.
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DB.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DB.DSN + "?_busy_timeout=5000&_txlock=immediate")
	default:
		dialector = mysql.Open(cfg.DB.DSN)
	}

	logMode := logger.Warn
	if cfg.Log.Level == "debug" {
		logMode = logger.Info // log SQL queries
	}

	db, err := gorm.Open(dialector, Options(logger.Default.LogMode(logMode)))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Options is the gorm config shared by the server and the tests.
// TranslateError turns unique violations into gorm.ErrDuplicatedKey,
// which the conversation registry relies on.
func Options(l logger.Interface) *gorm.Config {
	return &gorm.Config{
		Logger:         l,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Migrate ensures schema is in sync with models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
