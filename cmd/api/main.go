package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"fieldlog/api/internal/cache"
	"fieldlog/api/internal/config"
	"fieldlog/api/internal/database"
	"fieldlog/api/internal/handlers"
	"fieldlog/api/internal/jobs"
	"fieldlog/api/internal/log"
	"fieldlog/api/internal/repository"
	"fieldlog/api/internal/server"
	"fieldlog/api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	if err := database.Migrate(ctx, dbPool); err != nil {
		logger.Fatal().Err(err).Msg("failed to provision schema")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
	}
	userCache := cache.NewUserCache(redisClient, cfg.Redis.UserTTL)

	userRepo := repository.NewUserRepository(dbPool)
	visitRepo := repository.NewVisitRepository(dbPool)

	handlerSet := handlers.NewHandlerSet(logger, cfg, userRepo, visitRepo, objectStore, userCache, dbPool, objectStore)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	sweeper := jobs.NewSweeper(visitRepo, objectStore, cfg.Sweep, logger)
	if err := sweeper.Start(); err != nil {
		logger.Error().Err(err).Msg("orphan sweep start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, sweeper, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, sweeper *jobs.Sweeper, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	sweeper.Stop()

	db.Close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
