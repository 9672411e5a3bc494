package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/gasflow-erp/gasflow/internal/app"
	"github.com/gasflow-erp/gasflow/internal/assignment"
	"github.com/gasflow-erp/gasflow/internal/catalog"
	"github.com/gasflow-erp/gasflow/internal/dailyledger"
	"github.com/gasflow-erp/gasflow/internal/dailyreport"
	"github.com/gasflow-erp/gasflow/internal/inventory"
	"github.com/gasflow-erp/gasflow/internal/ledger"
	"github.com/gasflow-erp/gasflow/internal/platform/cache"
	"github.com/gasflow-erp/gasflow/internal/platform/db"
	"github.com/gasflow-erp/gasflow/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	ledgerRepo := ledger.NewRepository(pool)
	assignmentRepo := assignment.NewRepository(pool)
	dailyRepo := dailyledger.NewRepository(pool)

	var reportCache *dailyreport.Cache
	if redisClient != nil {
		reportCache = dailyreport.NewCache(redisClient, cfg.ReportCacheTTL, logger)
	}
	inventoryService := inventory.NewService(inventory.NewRepository(pool), logger)
	reportService := dailyreport.NewService(dailyRepo, ledgerRepo, inventoryService, catalog.NewRepository(pool), reportCache, logger)

	rebuilder := jobs.NewRebuilder(ledgerRepo, assignmentRepo, dailyRepo, reportService, logger)

	rebuildTask, err := jobs.NewDailyRebuildTask(jobs.DailyRebuildPayload{})
	if err != nil {
		logger.Error("build rebuild task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Rebuilder: rebuilder,
		Cron: []jobs.CronRegistration{
			{Spec: cfg.DailyRebuildCron, Task: rebuildTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
