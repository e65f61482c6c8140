package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/tillpoint/tillpoint/internal/app"
	"github.com/tillpoint/tillpoint/internal/catalog"
	"github.com/tillpoint/tillpoint/internal/inventory"
	"github.com/tillpoint/tillpoint/internal/sales"
	"github.com/tillpoint/tillpoint/internal/store"
	syncpkg "github.com/tillpoint/tillpoint/internal/sync"
	"github.com/tillpoint/tillpoint/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if cfg.RemoteDriver == "none" {
		logger.Info("no remote store configured, nothing to sync")
		return
	}

	st, err := store.Open(cfg.StoreDSN)
	if err != nil {
		logger.Error("open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("store close", slog.Any("error", err))
		}
	}()

	products := catalog.NewRepository(st)
	changes := inventory.NewRepository(st)
	salesRepo := sales.NewRepository(st, products, changes, logger)

	var remote syncpkg.RemoteStore
	switch cfg.RemoteDriver {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RemoteRedisAddr})
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		remote = syncpkg.NewRedisRemote(client, cfg.RemoteRedisPrefix)
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.RemotePGDSN)
		if err != nil {
			logger.Error("connect remote postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		pg, err := syncpkg.NewPostgresRemote(ctx, pool)
		if err != nil {
			logger.Error("init remote postgres", slog.Any("error", err))
			os.Exit(1)
		}
		remote = pg
	}

	engine := syncpkg.NewEngine(st, products, salesRepo, changes, remote, logger, syncpkg.Options{})

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSyncAll, Handler: jobs.NewSyncAllHandler(engine, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SyncCron, Task: jobs.NewSyncAllTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
