package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/oggyb/talenthub/internal/app"
	"github.com/oggyb/talenthub/internal/cache"
	"github.com/oggyb/talenthub/internal/config"
	"github.com/oggyb/talenthub/internal/db"
	"github.com/oggyb/talenthub/internal/http/handlers"
	"github.com/oggyb/talenthub/internal/logger"
	"github.com/oggyb/talenthub/internal/notify"
	"github.com/oggyb/talenthub/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB (migrates on open)
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis. The API keeps running without it: locks fall back to the
	// unique index and like counts to the database.
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Warn("redis unavailable, running degraded", "addr", cfg.Redis.Addr, "err", err)
	}

	notifier := notify.FromConfig(cfg, redisCache, log)
	appCtx := app.New(cfg, database, redisCache, log, notifier)

	if cfg.App.ENV == "development" {
		var count int64
		if err := database.Model(&db.User{}).Count(&count).Error; err == nil && count == 0 {
			if _, err := db.SeedTestData(database); err != nil {
				log.Error("failed to seed", "err", err)
			}
		}
	}

	health := server.NewHealthRegistrar(appCtx)
	grpcServer := server.NewGRPCServer(health)
	go health.Watch(ctx, 15*time.Second)
	go func() {
		log.Info("starting gRPC server", "addr", cfg.GRPC.Host+":"+cfg.GRPC.Port)
		if err := server.StartGRPCServer(cfg, grpcServer); err != nil {
			log.Error("gRPC server stopped", "err", err)
			stop()
		}
	}()

	httpServer := server.NewHTTPServer(cfg, handlers.NewRouter(appCtx))
	log.Info("starting HTTP server", "addr", httpServer.Addr)
	if err := server.StartHTTPServer(ctx, httpServer, 10*time.Second); err != nil {
		log.Error("HTTP server stopped", "err", err)
	}

	grpcServer.GracefulStop()
	log.Info("shutdown complete")
}
