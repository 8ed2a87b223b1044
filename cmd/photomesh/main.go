package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/photomesh/photomesh/config"
	"github.com/photomesh/photomesh/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting photomesh service",
		"addr", cfg.HTTP.Addr,
		"history_enabled", cfg.Postgres.Enabled(),
		"cache_enabled", cfg.Redis.Enabled())

	db, redisClient, err := initInfrastructure(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer func() {
			if cerr := db.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close database failed", "error", cerr)
			}
		}()
	}
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	services := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &cfg,
		DB:          db,
		RedisClient: redisClient,
		Logger:      logger,
	})

	return bootstrap.RunWithShutdown(&bootstrap.RunConfig{
		Config:   &cfg,
		Services: services,
		Logger:   logger,
	})
}

// initInfrastructure connects the optional persistence backends. Both
// are skipped when not configured; the service runs fully in memory.
//
//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func initInfrastructure(
	ctx context.Context,
	cfg *config.AppConfig,
	logger *slog.Logger,
) (*sql.DB, redis.UniversalClient, error) {
	var db *sql.DB
	if cfg.Postgres.Enabled() {
		var err error
		db, err = bootstrap.ConnectDB(bootstrap.DatabaseConfig{
			DBConfig: cfg.Postgres,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect db: %w", err)
		}
		if cfg.Postgres.RunMigrationsOnStart {
			if err = bootstrap.RunMigrations(ctx, db, logger); err != nil {
				closeQuietly(ctx, db, logger)
				return nil, nil, err
			}
		}
	} else {
		logger.InfoContext(ctx, "history database not configured; job history disabled")
	}

	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled() {
		var err error
		redisClient, err = bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
			RedisConfig: cfg.Redis,
			Logger:      logger,
		})
		if err != nil {
			closeQuietly(ctx, db, logger)
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
	} else {
		logger.InfoContext(ctx, "redis not configured; terminal snapshot cache disabled")
	}

	return db, redisClient, nil
}

func closeQuietly(ctx context.Context, db *sql.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if cerr := db.Close(); cerr != nil {
		logger.ErrorContext(ctx, "close database failed", "error", cerr)
	}
}
