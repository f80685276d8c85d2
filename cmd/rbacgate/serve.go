package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/rbacgate/rbacgate/internal/app"
	"github.com/rbacgate/rbacgate/internal/observability"
	"github.com/rbacgate/rbacgate/internal/platform/db"
	"github.com/rbacgate/rbacgate/jobs"
)

func runServe(ctx context.Context, rt *runtime) error {
	cfg, logger := rt.cfg, rt.logger

	pool, err := rt.openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		if err := migrateUp(pool); err != nil {
			logger.Error("migrate on start", slog.Any("error", err))
			return err
		}
		logger.Info("schema migrated")
	}

	store, closeStore, err := app.OpenSessionStore(ctx, cfg, pool)
	if err != nil {
		logger.Error("open session store", slog.String("store", cfg.SessionStore), slog.Any("error", err))
		return err
	}
	defer closeStore()

	sessions := app.NewSessionManager(cfg, store)
	metrics := observability.NewMetrics()
	handlers := app.BuildHandlers(cfg, logger, app.PostgresRepositories(pool), sessions, metrics)

	inspector := asynq.NewInspector(cfg.Redis().Queue())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessions,
		Handlers:       handlers,
		Health:         app.HealthHandler{Database: pool, Sessions: sessions, Logger: logger},
		JobHandler:     jobs.NewHandler(inspector, logger),
		Metrics:        metrics,
		RequestLog:     true,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("session_store", cfg.SessionStore))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown", slog.Any("error", err))
			return err
		}
		return nil
	})
	return g.Wait()
}

func migrateUp(pool *pgxpool.Pool) error {
	m, err := db.NewMigrator(pool)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}
