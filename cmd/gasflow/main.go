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

	"github.com/gasflow-erp/gasflow/internal/app"
	"github.com/gasflow-erp/gasflow/internal/assignment"
	"github.com/gasflow-erp/gasflow/internal/catalog"
	"github.com/gasflow-erp/gasflow/internal/dailyledger"
	"github.com/gasflow-erp/gasflow/internal/dailyreport"
	"github.com/gasflow-erp/gasflow/internal/inventory"
	"github.com/gasflow-erp/gasflow/internal/ledger"
	"github.com/gasflow-erp/gasflow/internal/platform/cache"
	"github.com/gasflow-erp/gasflow/internal/platform/db"
	"github.com/gasflow-erp/gasflow/internal/refill"
	"github.com/gasflow-erp/gasflow/internal/sequence"
	"github.com/gasflow-erp/gasflow/internal/shared"
	"github.com/gasflow-erp/gasflow/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		// Redis only backs the report cache and queue observability; the core
		// keeps working without it.
		logger.Warn("redis unavailable", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	auditLogger := shared.NewAuditLogger(pool)

	catalogRepo := catalog.NewRepository(pool)
	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, logger)

	ledgerRepo := ledger.NewRepository(pool)
	sequenceRepo := sequence.NewRepository(pool)
	generator := sequence.NewGenerator(sequenceRepo, ledgerRepo.HighestInvoiceSeq)

	dailyRepo := dailyledger.NewRepository(pool)

	assignmentRepo := assignment.NewRepository(pool)
	assignmentService := assignment.NewService(assignmentRepo, catalogRepo, inventoryService, dailyRepo, auditLogger, logger)
	assignmentHandler := assignment.NewHandler(logger, assignmentService)

	ledgerService := ledger.NewService(ledgerRepo, generator, assignmentService, inventoryService, dailyRepo, auditLogger, logger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	refillService := refill.NewService(catalogRepo, inventoryService, dailyRepo, generator, ledgerRepo, auditLogger, logger)
	refillHandler := refill.NewHandler(logger, refillService)

	var reportCache *dailyreport.Cache
	if redisClient != nil {
		reportCache = dailyreport.NewCache(redisClient, cfg.ReportCacheTTL, logger)
	}
	reportService := dailyreport.NewService(dailyRepo, ledgerRepo, inventoryService, catalogRepo, reportCache, logger)
	reportHandler := dailyreport.NewHandler(logger, reportService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AssignmentHandler: assignmentHandler,
		LedgerHandler:     ledgerHandler,
		RefillHandler:     refillHandler,
		ReportHandler:     reportHandler,
		JobHandler:        jobHandler,
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
