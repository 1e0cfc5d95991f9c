package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/refuelos/ledger/internal/config"
	"github.com/refuelos/ledger/internal/dictionary"
	"github.com/refuelos/ledger/internal/httpapi"
	"github.com/refuelos/ledger/internal/ledger"
	"github.com/refuelos/ledger/internal/service/account"
	"github.com/refuelos/ledger/internal/service/journal"
	"github.com/refuelos/ledger/internal/service/report"
	"github.com/refuelos/ledger/internal/storage/memory"
	pgstore "github.com/refuelos/ledger/internal/storage/postgres"
	"github.com/refuelos/ledger/internal/storage/redisstore"
)

// backend is what every store in this repo provides.
type backend interface {
	journal.Repo
	journal.Writer
	account.Repo
	account.Writer
	report.Repo
	httpapi.IdempotencyStore
	httpapi.ReadinessChecker
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Default().Error("load config", "err", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	var store backend
	var closers []func()

	if cfg.DatabaseURL != "" {
		if cfg.DBMigrate {
			changed, err := pgstore.Migrate(cfg.DatabaseURL)
			if err != nil {
				logger.Error("database migration failed", "err", err)
				os.Exit(1)
			}
			logger.Info("database migrations checked", "applied", changed)
		}
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		pg.SetIdempotencyTTL(cfg.IdempotencyTTL)
		closers = append(closers, pg.Close)
		if cfg.DevSeed {
			n, err := pg.SeedDev(ctx)
			if err != nil {
				logger.Error("dev seed failed", "err", err)
			} else {
				logger.Info("DEV seed (postgres)", "accounts_added", n)
			}
		}
		store = pg
		logger.Info("storage backend: postgres")
	} else {
		mem := memory.New()
		mem.SetIdempotencyTTL(cfg.IdempotencyTTL)
		store = mem
		logger.Info("storage backend: memory")
	}

	accounts := account.New(store, store)
	if cfg.DevSeed && cfg.DatabaseURL == "" {
		seedMemory(ctx, logger, accounts)
	}

	deps := httpapi.Deps{
		Accounts:    accounts,
		Journal:     journal.New(store, store, logger),
		Reports:     report.New(store, logger, report.Options{StrictReferences: cfg.ReportStrictReferences}),
		Idempotency: store,
		Ready:       []httpapi.ReadinessChecker{store},
		Logger:      logger,
	}
	if cfg.RedisAddr != "" {
		client, err := redisstore.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("failed to connect to redis", "err", err)
			os.Exit(1)
		}
		closers = append(closers, func() { _ = client.Close() })
		idem := redisstore.NewIdempotency(client, cfg.IdempotencyTTL)
		deps.Idempotency = idem
		deps.Ready = append(deps.Ready, idem)
		logger.Info("idempotency backend: redis", "addr", cfg.RedisAddr)
	}

	api := httpapi.New(deps, httpapi.Options{
		JWTSecret:          cfg.JWTSecret,
		JWTIssuer:          cfg.JWTIssuer,
		JWTAudience:        cfg.JWTAudience,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Currency:           cfg.BaseCurrency,
		Production:         cfg.IsProduction(),
	})
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_HS256_SECRET not set; API runs without authentication")
	}

	srv := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: cfg.AppReadTimeout,
		WriteTimeout:      cfg.AppWriteTimeout,
		IdleTimeout:       cfg.AppIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ledger service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.AppShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}

// seedMemory loads the default chart into a fresh in-memory store and prints
// the ids for copy/paste.
func seedMemory(ctx context.Context, l *slog.Logger, svc account.Service) {
	defs := dictionary.Chart(nil)
	specs := make([]ledger.Account, 0, len(defs))
	for _, d := range defs {
		specs = append(specs, ledger.Account{Code: d.Code, Name: d.Name, Type: d.Type, Classification: d.Classification})
	}
	created, itemErrs, err := svc.EnsureAccountsBatch(ctx, specs)
	if err != nil || len(itemErrs) > 0 {
		l.Error("dev seed failed", "err", err, "item_errors", len(itemErrs))
		return
	}
	l.Info("DEV seed (memory)", "accounts_added", len(created))
	fmt.Println("==================== DEV SEED ====================")
	for _, a := range created {
		fmt.Printf("%-6s %-28s %s\n", a.Code, a.Name, a.ID)
	}
	fmt.Println("==================================================")
}
