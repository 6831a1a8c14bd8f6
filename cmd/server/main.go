package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"savesync/internal/app/server/api"
	"savesync/internal/app/server/config"
	"savesync/internal/domain/session"
	"savesync/internal/infrastructure/migration"
	"savesync/internal/infrastructure/storage/postgres"
	"savesync/internal/utils/logger"
)

const sessionCleanupInterval = time.Hour

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env, logger.WithLevel(cfg.Logger.LogLevel))

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migration.NewMigration(cfg.DB, nil).Up(); err != nil {
		return err
	}

	storage, err := postgres.New(ctx, cfg.DB.DatabaseURI)
	if err != nil {
		return err
	}
	defer storage.Close()

	sessions := session.NewService(postgres.NewSessionRepository(storage, log), cfg.Session.TTL, log)
	go sessions.Cleanup(ctx, sessionCleanupInterval)

	router := api.New(api.Deps{
		Users:    postgres.NewUserRepository(storage, log),
		Saves:    postgres.NewSaveRepository(storage, log),
		Sessions: sessions,
	}, log)

	srv := &http.Server{
		Addr:              cfg.Server.RunAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("address", cfg.Server.RunAddress), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
