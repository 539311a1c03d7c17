// cmd/circulation/main.go
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
	"time"

	"libralend/internal/audit"
	"libralend/internal/catalog"
	"libralend/internal/circulation"
	"libralend/internal/config"
	"libralend/internal/jobs"
	"libralend/internal/membership"
	"libralend/internal/server"
	"libralend/internal/storage/memory"
	"libralend/internal/storage/postgres"
	"libralend/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "circulation: %v\n", err)
		os.Exit(1)
	}
}

// backend is the store pair a deployment runs on.
type backend struct {
	stores  circulation.Stores
	audit   audit.Source
	journal circulation.Journal
	close   func() error
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := telemetry.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.close()

	policy, err := server.FinePolicy(cfg)
	if err != nil {
		return err
	}

	circulationService := circulation.NewService(be.stores,
		circulation.WithLoanPeriod(cfg.LoanPeriod),
		circulation.WithFinePolicy(policy),
		circulation.WithJournal(be.journal),
		circulation.WithLogger(logger),
	)

	jobManager := jobs.NewJobManager(
		circulationService,
		audit.NewAuditor(be.audit, logger),
		cfg.OverdueSweepSchedule,
		cfg.AuditSchedule,
		logger,
	)
	if err := jobManager.StartAll(); err != nil {
		return err
	}
	defer jobManager.StopAll()

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: server.NewRouter(server.Dependencies{
			Catalog:     catalog.NewService(be.stores.Catalog),
			Members:     membership.NewService(be.stores.Directory, cfg.RegistrationRatePerMinute),
			Circulation: circulationService,
			Logger:      logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("circulation service listening", "port", cfg.HTTPPort, "fine_policy", cfg.FinePolicy)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, keeping all records in memory")
		store := memory.NewStore()
		return &backend{
			stores:  store.Stores(),
			audit:   store,
			journal: memory.NewJournal(),
			close:   func() error { return nil },
		}, nil
	}

	db, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	store := postgres.NewStore(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &backend{
		stores:  store.Stores(),
		audit:   store,
		journal: postgres.NewJournal(db),
		close:   db.Close,
	}, nil
}
