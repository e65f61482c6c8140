package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/tillpoint/tillpoint/internal/app"
	"github.com/tillpoint/tillpoint/internal/auth"
	"github.com/tillpoint/tillpoint/internal/catalog"
	"github.com/tillpoint/tillpoint/internal/inventory"
	"github.com/tillpoint/tillpoint/internal/observability"
	"github.com/tillpoint/tillpoint/internal/sales"
	"github.com/tillpoint/tillpoint/internal/store"
	syncpkg "github.com/tillpoint/tillpoint/internal/sync"
	"github.com/tillpoint/tillpoint/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("remote redis ping", slog.Any("error", err))
		}
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
	default:
		logger.Info("running local-only, no remote store configured")
	}

	metrics := observability.NewMetrics()

	engine := syncpkg.NewEngine(st, products, salesRepo, changes, remote, logger, syncpkg.Options{
		AutoSync: cfg.AutoSync,
		Recorder: metrics,
	})

	var monitor *syncpkg.Monitor
	if remote != nil {
		monitor = syncpkg.NewMonitor(remote.Ping, cfg.SyncProbeInterval, logger)
		monitor.Subscribe(engine.HandleConnectivityChange)
		monitor.Start()
		defer monitor.Stop()
	}

	authService := auth.NewService(st, cfg.SessionTTL)
	if cfg.DevicePasscode != "" && !authService.Enabled(ctx) {
		if err := authService.SetPasscode(ctx, cfg.DevicePasscode); err != nil {
			logger.Error("set device passcode", slog.Any("error", err))
			os.Exit(1)
		}
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthHandler:      auth.NewHandler(logger, authService),
		CatalogHandler:   catalog.NewHandler(logger, products),
		SalesHandler:     sales.NewHandler(logger, salesRepo),
		InventoryHandler: inventory.NewHandler(logger, changes),
		SyncHandler:      syncpkg.NewHandler(engine),
		JobHandler:       jobs.NewHandler(inspector, jobClient, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
