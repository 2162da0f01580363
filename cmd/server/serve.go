package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/eqviz/internal/auth"
	"github.com/JonMunkholm/eqviz/internal/blob"
	"github.com/JonMunkholm/eqviz/internal/config"
	"github.com/JonMunkholm/eqviz/internal/core"
	"github.com/JonMunkholm/eqviz/internal/database"
	"github.com/JonMunkholm/eqviz/internal/report"
	"github.com/JonMunkholm/eqviz/internal/web"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func poolConfig(cfg *config.Config) database.PoolConfig {
	return database.PoolConfig{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"database", cfg.Database.Enabled(),
		"object_storage", cfg.Storage.Enabled(),
		"redis", cfg.Redis.Enabled(),
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"history_capacity", cfg.History.Capacity,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistence: Postgres when configured, otherwise process memory.
	var (
		backend  core.HistoryBackend = core.NewMemoryHistory()
		accounts auth.Repository     = auth.NewMemoryRepository()
	)
	if cfg.Database.Enabled() {
		pool, err := database.Connect(ctx, poolConfig(cfg))
		if err != nil {
			return err
		}
		defer pool.Close()

		if cfg.Database.AutoMigrate {
			if _, err := database.MigrateUp(pool); err != nil {
				return err
			}
		}
		backend = database.NewHistoryBackend(pool)
		accounts = database.NewUserRepository(pool)
	} else {
		slog.Warn("DATABASE_URL not set, history and accounts are kept in memory")
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		slog.Info("connected to redis", "addr", cfg.Redis.Addr)
	}

	store := core.NewHistoryStore(backend, blobs, core.WithCapacity(cfg.History.Capacity))
	service := core.NewService(store, core.ServiceConfig{
		MaxFileSize:   cfg.Upload.MaxFileSize,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
	})

	var reports report.Renderer = report.NewPDFRenderer()
	if cfg.Report.CacheMaxBytes > 0 {
		cached, err := report.NewCachedRenderer(reports, cfg.Report.CacheMaxBytes)
		if err != nil {
			return err
		}
		defer cached.Close()
		store.OnEvict(cached.OnEvict)
		reports = cached
	}

	authService := auth.NewService(accounts, auth.Config{
		TokenTTL:   cfg.Auth.TokenTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	})

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()
	go authService.StartPurgeScheduler(jobCtx, cfg.Auth.PurgeInterval)

	server := web.NewServer(cfg, web.Deps{
		Service: service,
		Auth:    authService,
		Reports: reports,
		Redis:   rdb,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Addr())
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	cancelJobs()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if status := service.UploadLimiterStatus(); status.Active > 0 {
		slog.Info("waiting for uploads to complete", "active", status.Active)
		if err := service.WaitForUploads(shutdownCtx); err != nil {
			slog.Warn("uploads did not complete in time", "error", err)
		} else {
			slog.Info("all uploads completed")
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

func openBlobStore(ctx context.Context, cfg *config.Config) (core.BlobStore, error) {
	if !cfg.Storage.Enabled() {
		slog.Warn("STORAGE_ENDPOINT not set, raw uploads are kept in memory")
		return blob.NewMemoryStore(), nil
	}

	store, err := blob.NewMinioStore(blob.MinioConfig{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	slog.Info("connected to object storage", "endpoint", cfg.Storage.Endpoint, "bucket", cfg.Storage.Bucket)
	return store, nil
}
