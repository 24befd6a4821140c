package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/pickimport/internal/config"
	"github.com/JonMunkholm/pickimport/internal/core"
	"github.com/JonMunkholm/pickimport/internal/logging"
	"github.com/JonMunkholm/pickimport/internal/store"
	"github.com/JonMunkholm/pickimport/internal/web"
)

func main() {
	// Overload lets a local .env win over the shell environment.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"import_max_file_size", cfg.Import.MaxFileSize,
		"api_key_required", cfg.Security.RequireAPIKey,
	)

	ctx := context.Background()
	pool, err := store.Open(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	db := store.New(pool)
	if err := db.EnsureSchema(ctx); err != nil {
		slog.Error("failed to prepare import log table", "error", err)
		os.Exit(1)
	}

	service := core.NewService(db, core.ServiceConfig{
		Importer: core.ImporterConfig{
			SourceLocationID: cfg.Import.SourceLocationID,
			DestLocationID:   cfg.Import.DestLocationID,
			CompanyID:        cfg.Import.CompanyID,
			Description:      cfg.Import.Description,
			ProcureMethod:    cfg.Import.ProcureMethod,
			MaxFileSize:      cfg.Import.MaxFileSize,
		},
		MaxConcurrent: cfg.Import.MaxConcurrent,
		MaxWaitTime:   cfg.Import.MaxWaitTime,
		Timeout:       cfg.Import.Timeout,
	})

	moves := service.ImporterConfig()
	slog.Info("stock move defaults",
		"source_location_id", moves.SourceLocationID,
		"dest_location_id", moves.DestLocationID,
		"company_id", moves.CompanyID,
		"procure_method", moves.ProcureMethod,
		"description", moves.Description,
	)

	server := web.NewServer(service, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartRetentionScheduler(jobCtx, core.RetentionConfig{
		Retention:     cfg.Import.LogRetention,
		CheckInterval: cfg.Import.LogPurgeInterval,
	})

	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		cancelJobs()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
