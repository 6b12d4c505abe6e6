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

	"github.com/king-kite/nexthrms-v2-sub002/internal/config"
	"github.com/king-kite/nexthrms-v2-sub002/internal/core"
	_ "github.com/king-kite/nexthrms-v2-sub002/internal/core/kinds" // Register import kinds
	"github.com/king-kite/nexthrms-v2-sub002/internal/logging"
	"github.com/king-kite/nexthrms-v2-sub002/internal/store/postgres"
	"github.com/king-kite/nexthrms-v2-sub002/internal/store/sqlite"
	"github.com/king-kite/nexthrms-v2-sub002/internal/web"
)

func main() {
	// Overload lets a local .env win over inherited variables.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	service := core.NewService(store, core.Options{
		DataMember:        cfg.Import.DataMember,
		PermissionsMember: cfg.Import.PermissionsMember,
		Encoding:          cfg.Import.Encoding,
		MaxFileSize:       cfg.Import.MaxFileSize,
		MaxMemberSize:     cfg.Import.MaxMemberSize,
		Timeout:           cfg.Import.Timeout,
		MaxConcurrent:     cfg.Import.MaxConcurrent,
		MaxWait:           cfg.Import.MaxWaitTime,
	})

	kinds := service.ListKinds()
	slog.Info("import kinds registered", "count", len(kinds))
	for _, k := range kinds {
		slog.Debug("import kind", "key", k.Key, "columns", len(k.Columns), "archive_only", k.ArchiveOnly)
	}

	jobsCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()
	if cfg.Import.HistoryRetention > 0 {
		go service.StartRetentionScheduler(jobsCtx, core.RetentionConfig{
			KeepFor:       cfg.Import.HistoryRetention,
			CheckInterval: cfg.Import.HistoryCheckInterval,
		})
	} else {
		slog.Info("import history retention disabled")
	}

	server := web.NewServer(service, cfg)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		stopJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Stop accepting requests first, then let running imports commit or
		// roll back before the store closes.
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		if status := service.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		store.Close()
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}

// openStore connects the store selected by cfg.Driver and applies its schema.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (core.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("opened sqlite database", "path", cfg.SQLitePath)
		return store, nil
	default:
		store, err := postgres.Connect(ctx, cfg.URL, postgres.PoolOptions{
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("connected to database", "name", postgres.DatabaseName(cfg.URL))
		return store, nil
	}
}
