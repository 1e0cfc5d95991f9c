package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/refuelos/ledger/internal/config"
	"github.com/refuelos/ledger/internal/jobs"
	"github.com/refuelos/ledger/internal/service/report"
	pgstore "github.com/refuelos/ledger/internal/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if cfg.DatabaseURL == "" || cfg.RedisAddr == "" {
		logger.Error("worker needs DATABASE_URL and REDIS_ADDR")
		os.Exit(1)
	}

	pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pg.Close()

	reports := report.New(pg, logger, report.Options{StrictReferences: cfg.ReportStrictReferences})
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Verify:      jobs.NewVerifyJob(reports, logger),
		VerifyCron:  cfg.VerifyCron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker shut down")
}
