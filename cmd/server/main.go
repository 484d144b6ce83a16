package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"workshop-backend/internal/audit"
	"workshop-backend/internal/config"
	"workshop-backend/internal/database"
	"workshop-backend/internal/ledger"
	"workshop-backend/internal/logger"
	"workshop-backend/internal/metrics"
	"workshop-backend/internal/scheduler"
	"workshop-backend/internal/server"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Env))
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	db, err := database.Open(cfg, logger.Named(baseLogger, "db"))
	if err != nil {
		baseLogger.Fatal("failed to open database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db); err != nil {
			baseLogger.Error("failed to close database", zap.Error(err))
		}
	}()

	var m *metrics.Metrics
	ledgerOpts := ledger.Options{
		MaxBatchQuantity:    cfg.Ledger.MaxBatchQuantity,
		ExclusiveActivation: cfg.Ledger.ExclusiveActivation,
		Logger:              logger.Named(baseLogger, "ledger"),
	}
	if cfg.MetricsEnabled {
		m = metrics.New()
		ledgerOpts.Hooks = m
	}
	l := ledger.New(db, ledgerOpts)

	app := server.New(server.Deps{
		Config:  cfg,
		DB:      db,
		Ledger:  l,
		Audit:   audit.NewRecorder(db, logger.Named(baseLogger, "audit")),
		Metrics: m,
		Logger:  logger.Named(baseLogger, "http"),
	})

	sched := scheduler.NewScheduler(cfg.Ledger.ReconcileCron, l, logger.Named(baseLogger, "scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		baseLogger.Info("server starting",
			zap.String("port", cfg.HTTPPort),
			zap.Bool("exclusive_activation", l.ExclusiveActivation()),
		)
		return app.Listen(":" + cfg.HTTPPort)
	})
	g.Go(func() error {
		<-gctx.Done()
		baseLogger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		baseLogger.Error("server stopped with error", zap.Error(err))
	}
}
